package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/GuilhermeXavier08/mythic/common/errors"
	"github.com/GuilhermeXavier08/mythic/metrics"
	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/GuilhermeXavier08/mythic/repository"
	"github.com/GuilhermeXavier08/mythic/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type Checkouter interface {
	Checkout(ctx context.Context, userID uuid.UUID, couponCode string, payment models.PaymentFields) (*models.CheckoutResult, error)
}

// CheckoutController handles POST /checkout.
type CheckoutController struct {
	checkout    Checkouter
	idempotency repository.IdempotencyStore
	prom        *metrics.Metrics
	logger      *zap.Logger
}

// NewCheckoutController creates a CheckoutController. idempotency may be nil,
// in which case the Idempotency-Key header is ignored.
func NewCheckoutController(checkout Checkouter, idempotency repository.IdempotencyStore, prom *metrics.Metrics, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{checkout: checkout, idempotency: idempotency, prom: prom, logger: logger}
}

func (cc *CheckoutController) Checkout(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	key := c.GetHeader(IdempotencyKeyHeader)
	claimed := false
	if key != "" && cc.idempotency != nil {
		stored, ok, err := cc.idempotency.Begin(ctx, userID, key)
		switch {
		case errors.Is(err, repository.ErrRequestInProgress):
			apperrors.Respond(c, apperrors.Conflict("A checkout with this Idempotency-Key is already in progress"))
			return
		case err != nil:
			// proceed without replay protection
			cc.logger.Warn("Idempotency store unavailable", zap.Error(err))
		case stored != nil:
			cc.prom.Checkout(metrics.OutcomeReplayed, 0)
			c.Header("Idempotent-Replayed", "true")
			c.Data(http.StatusOK, "application/json; charset=utf-8", stored)
			return
		default:
			claimed = ok
		}
	}

	result, err := cc.checkout.Checkout(ctx, userID, req.CouponCode, req.Payment)
	if err != nil {
		if claimed {
			if relErr := cc.idempotency.Release(context.WithoutCancel(ctx), userID, key); relErr != nil {
				cc.logger.Warn("Failed to release idempotency key", zap.Error(relErr))
			}
		}
		apperrors.Respond(c, checkoutError(err))
		return
	}

	body, err := json.Marshal(result)
	if err != nil {
		apperrors.Respond(c, apperrors.Internal("Internal server error", err))
		return
	}
	if claimed {
		if err := cc.idempotency.Complete(context.WithoutCancel(ctx), userID, key, body); err != nil {
			cc.logger.Warn("Failed to store checkout response", zap.Error(err))
		}
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func checkoutError(err error) error {
	switch {
	case errors.Is(err, services.ErrEmptyCart):
		return apperrors.BadRequest("Cart is empty")
	case errors.Is(err, services.ErrInvalidPayment):
		return apperrors.BadRequest("Invalid payment details")
	default:
		return apperrors.Internal("Checkout failed, please try again", err)
	}
}
