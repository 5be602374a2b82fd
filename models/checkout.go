package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutRequest is the body of POST /checkout.
type CheckoutRequest struct {
	CouponCode string        `json:"coupon_code"`
	Payment    PaymentFields `json:"payment" binding:"required"`
}

// CheckoutLine is the price recorded for one game granted by the checkout.
type CheckoutLine struct {
	GameID    uuid.UUID       `json:"game_id"`
	Title     string          `json:"title"`
	Original  decimal.Decimal `json:"original_price"`
	PricePaid decimal.Decimal `json:"price_paid"`
}

// CheckoutResult is returned after a committed checkout.
type CheckoutResult struct {
	Lines      []CheckoutLine  `json:"lines"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Total      decimal.Decimal `json:"total"`
	Multiplier decimal.Decimal `json:"multiplier"`
	CouponCode string          `json:"coupon_code,omitempty"`
	// Granted counts entitlements created by this call.
	Granted int `json:"granted"`
	// Skipped lists cart games the user already owned. They were removed
	// from the cart without being priced or charged.
	Skipped []uuid.UUID `json:"skipped,omitempty"`
}

// CheckoutCompletedEvent is handed to the side-effect dispatcher after commit
// and published to Kafka/SNS.
type CheckoutCompletedEvent struct {
	EventType  string      `json:"event_type"`
	UserID     uuid.UUID   `json:"user_id"`
	GameIDs    []uuid.UUID `json:"game_ids"`
	Inserted   int         `json:"inserted"`
	// FirstPurchase is decided inside the commit: the user owned nothing
	// before this checkout and it granted at least one game.
	FirstPurchase bool `json:"first_purchase"`
	Total      string      `json:"total"`
	CouponCode string      `json:"coupon_code,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

const EventCheckoutCompleted = "checkout.completed"
