package controllers

import (
	"net/http"
	"strconv"

	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/GuilhermeXavier08/mythic/services"
	"github.com/gin-gonic/gin"
)

// CouponController handles HTTP requests for coupon operations.
type CouponController struct {
	couponService services.CouponService
}

// NewCouponController creates a new CouponController.
func NewCouponController(couponService services.CouponService) *CouponController {
	RegisterValidators()
	return &CouponController{couponService: couponService}
}

// CreateCoupon handles POST /coupons (admin only).
func (cc *CouponController) CreateCoupon(ctx *gin.Context) {
	var req models.CreateCouponRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	coupon, svcErr := cc.couponService.CreateCoupon(ctx.Request.Context(), &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"coupon": coupon})
}

// GetCoupon handles GET /coupons/:code.
func (cc *CouponController) GetCoupon(ctx *gin.Context) {
	preview, svcErr := cc.couponService.PreviewCoupon(ctx.Request.Context(), ctx.Param("code"))
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"coupon": preview})
}

// DeactivateCoupon handles DELETE /coupons/:code (admin only).
func (cc *CouponController) DeactivateCoupon(ctx *gin.Context) {
	code := ctx.Param("code")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Coupon code is required"})
		return
	}

	if svcErr := cc.couponService.DeactivateCoupon(ctx.Request.Context(), code); svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Coupon deactivated"})
}

// ListCoupons handles GET /coupons (admin only).
func (cc *CouponController) ListCoupons(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)

	coupons, total, svcErr := cc.couponService.ListCoupons(ctx.Request.Context(), page, limit)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	ctx.JSON(http.StatusOK, gin.H{
		"coupons": coupons,
		"meta": gin.H{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": totalPages,
			"has_more":    total > int64(page*limit),
		},
	})
}

// parsePaginationParams extracts and validates pagination parameters.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const maxLimit = 100

	page, limit := 1, 10
	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "10")); err == nil && l > 0 {
		limit = min(l, maxLimit)
	}
	return page, limit
}
