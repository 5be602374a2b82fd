package services

import "errors"

// Checkout outcomes surfaced to callers. Coupon and side-effect problems are
// absorbed and never reach the caller of Checkout.
var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidPayment     = errors.New("payment fields are incomplete")
	ErrTransactionFailure = errors.New("checkout could not be completed")
)

// ErrCouponInvalid wraps one of the specific reasons below.
var (
	ErrCouponInvalid   = errors.New("coupon not applicable")
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrCouponInactive  = errors.New("coupon is inactive")
	ErrCouponExpired   = errors.New("coupon has expired")
	ErrCouponExhausted = errors.New("coupon usage limit reached")
)

var (
	ErrGameNotFound     = errors.New("game not found")
	ErrAlreadyOwned     = errors.New("game already owned")
	ErrAlreadyInCart    = errors.New("game already in cart")
	ErrCartLineNotFound = errors.New("cart item not found")
	ErrNotOwned         = errors.New("game not owned")
)

// ServiceError carries the HTTP status for the coupon admin API.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}
