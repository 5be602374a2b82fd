package controllers

import (
	"context"
	"net/http"

	apperrors "github.com/GuilhermeXavier08/mythic/common/errors"
	"github.com/GuilhermeXavier08/mythic/services"
	"github.com/gin-gonic/gin"
)

type CouponSeeder interface {
	SeedDefaults(ctx context.Context) (bool, *services.ServiceError)
}

type BadgeSeeder interface {
	SeedBadges(ctx context.Context) (int64, error)
}

// AdminController exposes the idempotent seed operations.
type AdminController struct {
	coupons CouponSeeder
	badges  BadgeSeeder
}

func NewAdminController(coupons CouponSeeder, badges BadgeSeeder) *AdminController {
	return &AdminController{coupons: coupons, badges: badges}
}

// SeedCoupons handles POST /admin/coupons/seed.
func (ac *AdminController) SeedCoupons(c *gin.Context) {
	created, svcErr := ac.coupons.SeedDefaults(c.Request.Context())
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

// SeedBadges handles POST /admin/badges/seed.
func (ac *AdminController) SeedBadges(c *gin.Context) {
	n, err := ac.badges.SeedBadges(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, apperrors.Internal("Failed to seed badges", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": n})
}
