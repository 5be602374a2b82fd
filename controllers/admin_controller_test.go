package controllers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/GuilhermeXavier08/mythic/controllers"
	"github.com/GuilhermeXavier08/mythic/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubSeeder struct {
	created bool
	badges  int64
	err     error
}

func (s stubSeeder) SeedDefaults(context.Context) (bool, *services.ServiceError) {
	return s.created, nil
}

func (s stubSeeder) SeedBadges(context.Context) (int64, error) {
	return s.badges, s.err
}

func setupAdminRouter(s stubSeeder) *gin.Engine {
	r := withUser(gin.New(), uuid.New(), "admin")
	ac := controllers.NewAdminController(s, s)
	r.POST("/admin/coupons/seed", ac.SeedCoupons)
	r.POST("/admin/badges/seed", ac.SeedBadges)
	return r
}

func TestAdminController_Seed(t *testing.T) {
	r := setupAdminRouter(stubSeeder{created: true, badges: 3})

	w := doJSON(r, http.MethodPost, "/admin/coupons/seed", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(w)["created"])

	w = doJSON(r, http.MethodPost, "/admin/badges/seed", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(w)["created"])
}

func TestAdminController_SeedBadgesFailure(t *testing.T) {
	r := setupAdminRouter(stubSeeder{err: errors.New("db down")})

	w := doJSON(r, http.MethodPost, "/admin/badges/seed", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}
