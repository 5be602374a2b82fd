package controllers

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/GuilhermeXavier08/mythic/common/errors"
	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/GuilhermeXavier08/mythic/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CartManager interface {
	GetCart(ctx context.Context, userID uuid.UUID, couponCode string) (*models.CartView, error)
	AddItem(ctx context.Context, userID, gameID uuid.UUID) (*models.CartLine, error)
	RemoveItem(ctx context.Context, userID, lineID uuid.UUID) error
}

type CouponPreviewer interface {
	PreviewCoupon(ctx context.Context, code string) (*models.CouponPreview, *services.ServiceError)
}

// CartController handles the /cart routes.
type CartController struct {
	carts   CartManager
	coupons CouponPreviewer
}

func NewCartController(carts CartManager, coupons CouponPreviewer) *CartController {
	return &CartController{carts: carts, coupons: coupons}
}

// GetCart handles GET /cart?coupon=CODE.
func (cc *CartController) GetCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	view, err := cc.carts.GetCart(c.Request.Context(), userID, c.Query("coupon"))
	if err != nil {
		apperrors.Respond(c, apperrors.Internal("Failed to load cart", err))
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddItem handles POST /cart.
func (cc *CartController) AddItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	line, err := cc.carts.AddItem(c.Request.Context(), userID, req.GameID)
	switch {
	case errors.Is(err, services.ErrGameNotFound):
		apperrors.Respond(c, apperrors.NotFound("Game not found"))
	case errors.Is(err, services.ErrAlreadyOwned):
		apperrors.Respond(c, apperrors.Conflict("You already own this game"))
	case errors.Is(err, services.ErrAlreadyInCart):
		apperrors.Respond(c, apperrors.Conflict("Game is already in your cart"))
	case err != nil:
		apperrors.Respond(c, apperrors.Internal("Failed to add item", err))
	default:
		c.JSON(http.StatusCreated, gin.H{"item": line})
	}
}

// RemoveItem handles DELETE /cart/:itemId.
func (cc *CartController) RemoveItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	lineID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid item id"))
		return
	}

	err = cc.carts.RemoveItem(c.Request.Context(), userID, lineID)
	if errors.Is(err, services.ErrCartLineNotFound) {
		apperrors.Respond(c, apperrors.NotFound("Cart item not found"))
		return
	}
	if err != nil {
		apperrors.Respond(c, apperrors.Internal("Failed to remove item", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed"})
}

// ApplyCoupon handles POST /cart/coupon. It only checks the code; usage is
// counted at checkout.
func (cc *CartController) ApplyCoupon(c *gin.Context) {
	var req models.PreviewCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	preview, svcErr := cc.coupons.PreviewCoupon(c.Request.Context(), req.Code)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupon": preview})
}
