package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/GuilhermeXavier08/mythic/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestCouponService(store *memStore) services.CouponService {
	return services.NewCouponServiceWithClock(store, zap.NewNop(), func() time.Time { return fixedNow })
}

func TestResolve_BlankCodeMeansNoCoupon(t *testing.T) {
	svc := newTestCouponService(newMemStore())

	for _, code := range []string{"", "   "} {
		c, err := svc.Resolve(context.Background(), code)
		assert.NoError(t, err)
		assert.Nil(t, c)
	}
}

func TestResolve_NormalizesCode(t *testing.T) {
	store := newMemStore()
	store.addCoupon(percentCoupon("SPRING", 10, 5))
	svc := newTestCouponService(store)

	c, err := svc.Resolve(context.Background(), "  spring ")
	require.NoError(t, err)
	assert.Equal(t, "SPRING", c.Code)
}

func TestResolve_Rejections(t *testing.T) {
	atNow := fixedNow
	justAfter := fixedNow.Add(time.Second)

	tests := []struct {
		name   string
		coupon *models.Coupon
		reason error
	}{
		{"not found", nil, services.ErrCouponNotFound},
		{"inactive", &models.Coupon{Code: "X", Kind: models.CouponKindPercentage, Discount: dec("10"), MaxUses: 5}, services.ErrCouponInactive},
		{"expires exactly now", &models.Coupon{Code: "X", Kind: models.CouponKindPercentage, Discount: dec("10"), MaxUses: 5, IsActive: true, ExpiresAt: &atNow}, services.ErrCouponExpired},
		{"exhausted", &models.Coupon{Code: "X", Kind: models.CouponKindPercentage, Discount: dec("10"), MaxUses: 5, UsedCount: 5, IsActive: true}, services.ErrCouponExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			if tt.coupon != nil {
				store.addCoupon(tt.coupon)
			}
			svc := newTestCouponService(store)

			c, err := svc.Resolve(context.Background(), "x")
			assert.Nil(t, c)
			assert.ErrorIs(t, err, services.ErrCouponInvalid)
			assert.ErrorIs(t, err, tt.reason)
		})
	}

	t.Run("valid until a second from now", func(t *testing.T) {
		store := newMemStore()
		store.addCoupon(&models.Coupon{Code: "X", Kind: models.CouponKindPercentage, Discount: dec("10"), MaxUses: 5, IsActive: true, ExpiresAt: &justAfter})
		c, err := newTestCouponService(store).Resolve(context.Background(), "X")
		require.NoError(t, err)
		assert.NotNil(t, c)
	})
}

func TestCreateCoupon_Success(t *testing.T) {
	store := newMemStore()
	svc := newTestCouponService(store)

	c, svcErr := svc.CreateCoupon(context.Background(), &models.CreateCouponRequest{
		Code:     "summer25",
		Kind:     models.CouponKindPercentage,
		Discount: dec("25"),
		MaxUses:  100,
	})
	require.Nil(t, svcErr)
	assert.Equal(t, "SUMMER25", c.Code)
	assert.True(t, c.IsActive)
	assert.Equal(t, 0, c.UsedCount)
}

func TestCreateCoupon_Validation(t *testing.T) {
	past := fixedNow.Add(-time.Minute)
	tests := []struct {
		name string
		req  models.CreateCouponRequest
	}{
		{"zero discount", models.CreateCouponRequest{Code: "AAA", Kind: models.CouponKindFixed, Discount: dec("0"), MaxUses: 1}},
		{"percentage over 100", models.CreateCouponRequest{Code: "AAA", Kind: models.CouponKindPercentage, Discount: dec("100.01"), MaxUses: 1}},
		{"no uses", models.CreateCouponRequest{Code: "AAA", Kind: models.CouponKindFixed, Discount: dec("5"), MaxUses: 0}},
		{"expiry in the past", models.CreateCouponRequest{Code: "AAA", Kind: models.CouponKindFixed, Discount: dec("5"), MaxUses: 1, ExpiresAt: &past}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestCouponService(newMemStore())
			c, svcErr := svc.CreateCoupon(context.Background(), &tt.req)
			assert.Nil(t, c)
			require.NotNil(t, svcErr)
			assert.Equal(t, 400, svcErr.StatusCode)
		})
	}
}

func TestCreateCoupon_DuplicateCode(t *testing.T) {
	store := newMemStore()
	store.addCoupon(percentCoupon("DUP", 10, 1))
	svc := newTestCouponService(store)

	_, svcErr := svc.CreateCoupon(context.Background(), &models.CreateCouponRequest{
		Code: "dup", Kind: models.CouponKindPercentage, Discount: dec("10"), MaxUses: 1,
	})
	require.NotNil(t, svcErr)
	assert.Equal(t, 409, svcErr.StatusCode)
}

func TestDeactivateCoupon(t *testing.T) {
	store := newMemStore()
	store.addCoupon(percentCoupon("BYE", 10, 1))
	svc := newTestCouponService(store)

	assert.Nil(t, svc.DeactivateCoupon(context.Background(), "bye"))
	assert.False(t, store.coupon("BYE").IsActive)

	svcErr := svc.DeactivateCoupon(context.Background(), "missing")
	require.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
}

func TestPreviewCoupon(t *testing.T) {
	store := newMemStore()
	store.addCoupon(percentCoupon("OK", 15, 3))
	store.addCoupon(&models.Coupon{Code: "USED", Kind: models.CouponKindFixed, Discount: dec("5"), IsActive: true, MaxUses: 1, UsedCount: 1})
	svc := newTestCouponService(store)

	preview, svcErr := svc.PreviewCoupon(context.Background(), "ok")
	require.Nil(t, svcErr)
	assert.Equal(t, "OK", preview.Code)
	assert.Equal(t, 0, store.coupon("OK").UsedCount)

	_, svcErr = svc.PreviewCoupon(context.Background(), "used")
	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)

	_, svcErr = svc.PreviewCoupon(context.Background(), "nope")
	require.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)

	_, svcErr = svc.PreviewCoupon(context.Background(), " ")
	require.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
}

func TestSeedDefaults_IsIdempotent(t *testing.T) {
	store := newMemStore()
	svc := newTestCouponService(store)

	created, svcErr := svc.SeedDefaults(context.Background())
	require.Nil(t, svcErr)
	assert.True(t, created)

	created, svcErr = svc.SeedDefaults(context.Background())
	require.Nil(t, svcErr)
	assert.False(t, created)
}

func TestListCoupons_ClampsPaging(t *testing.T) {
	store := newMemStore()
	store.addCoupon(percentCoupon("A1", 10, 1))
	svc := newTestCouponService(store)

	coupons, total, svcErr := svc.ListCoupons(context.Background(), 0, 1000)
	require.Nil(t, svcErr)
	assert.Len(t, coupons, 1)
	assert.Equal(t, int64(1), total)
}
