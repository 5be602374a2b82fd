package routes

import (
	"github.com/GuilhermeXavier08/mythic/common/auth"
	"github.com/GuilhermeXavier08/mythic/controllers"
	"github.com/GuilhermeXavier08/mythic/middleware"
	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Cart     *controllers.CartController
	Checkout *controllers.CheckoutController
	Coupon   *controllers.CouponController
	Library  *controllers.LibraryController
	Admin    *controllers.AdminController
}

// Register mounts every authenticated route on r.
func Register(r gin.IRouter, verifier *auth.Verifier, c Controllers) {
	authed := r.Group("")
	authed.Use(middleware.AuthMiddleware(verifier))

	cart := authed.Group("/cart")
	cart.GET("", c.Cart.GetCart)
	cart.POST("", c.Cart.AddItem)
	cart.DELETE("/:itemId", c.Cart.RemoveItem)
	cart.POST("/coupon", c.Cart.ApplyCoupon)

	authed.POST("/checkout", c.Checkout.Checkout)

	authed.GET("/library", c.Library.GetLibrary)
	authed.GET("/play/:gameId", c.Library.Play)

	authed.GET("/wishlist", c.Library.GetWishlist)
	authed.POST("/wishlist", c.Library.ToggleWishlist)

	authed.GET("/notifications", c.Library.GetNotifications)
	authed.PATCH("/notifications", c.Library.MarkNotificationsRead)

	coupons := authed.Group("/coupons")
	coupons.GET("/:code", c.Coupon.GetCoupon)

	// Admin-only routes
	adminCoupons := coupons.Group("")
	adminCoupons.Use(middleware.AdminOnly())
	adminCoupons.POST("", c.Coupon.CreateCoupon)
	adminCoupons.GET("", c.Coupon.ListCoupons)
	adminCoupons.DELETE("/:code", c.Coupon.DeactivateCoupon)

	admin := authed.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.POST("/coupons/seed", c.Admin.SeedCoupons)
	admin.POST("/badges/seed", c.Admin.SeedBadges)
}
