package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/GuilhermeXavier08/mythic/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CouponResolver is what checkout and the cart preview need from coupons.
type CouponResolver interface {
	// Resolve returns (nil, nil) for a blank code and an error wrapping
	// ErrCouponInvalid when the code cannot be redeemed right now.
	Resolve(ctx context.Context, code string) (*models.Coupon, error)
}

// CouponService defines the interface for coupon business logic.
type CouponService interface {
	CouponResolver
	CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, *ServiceError)
	GetCoupon(ctx context.Context, code string) (*models.Coupon, *ServiceError)
	DeactivateCoupon(ctx context.Context, code string) *ServiceError
	ListCoupons(ctx context.Context, page, limit int) ([]models.Coupon, int64, *ServiceError)
	PreviewCoupon(ctx context.Context, code string) (*models.CouponPreview, *ServiceError)
	SeedDefaults(ctx context.Context) (bool, *ServiceError)
}

type couponServiceImpl struct {
	repo   repository.CouponRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewCouponService(repo repository.CouponRepository, logger *zap.Logger) CouponService {
	return NewCouponServiceWithClock(repo, logger, time.Now)
}

func NewCouponServiceWithClock(repo repository.CouponRepository, logger *zap.Logger, now func() time.Time) CouponService {
	return &couponServiceImpl{repo: repo, logger: logger, now: now}
}

var hundred = decimal.NewFromInt(100)

func (s *couponServiceImpl) Resolve(ctx context.Context, code string) (*models.Coupon, error) {
	code = repository.NormalizeCode(code)
	if code == "" {
		return nil, nil
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrCouponInvalid, ErrCouponNotFound)
	}
	if err != nil {
		s.logger.Warn("Coupon lookup failed", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCouponInvalid, err)
	}

	if reason := s.rejection(coupon); reason != nil {
		return nil, fmt.Errorf("%w: %w", ErrCouponInvalid, reason)
	}
	return coupon, nil
}

func (s *couponServiceImpl) rejection(c *models.Coupon) error {
	switch {
	case !c.IsActive:
		return ErrCouponInactive
	case c.ExpiresAt != nil && !s.now().Before(*c.ExpiresAt):
		return ErrCouponExpired
	case c.UsedCount >= c.MaxUses:
		return ErrCouponExhausted
	}
	return nil
}

func (s *couponServiceImpl) CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, *ServiceError) {
	if !req.Discount.IsPositive() {
		return nil, &ServiceError{StatusCode: 400, Message: "Discount must be greater than zero"}
	}
	if req.Kind == models.CouponKindPercentage && req.Discount.GreaterThan(hundred) {
		return nil, &ServiceError{StatusCode: 400, Message: "Percentage discount cannot exceed 100"}
	}
	if req.MaxUses < 1 {
		return nil, &ServiceError{StatusCode: 400, Message: "max_uses must be at least 1"}
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, &ServiceError{StatusCode: 400, Message: "Expiry date must be in the future"}
	}

	coupon := &models.Coupon{
		Code:      repository.NormalizeCode(req.Code),
		Kind:      req.Kind,
		Discount:  req.Discount,
		MaxUses:   req.MaxUses,
		ExpiresAt: req.ExpiresAt,
		IsActive:  true,
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, &ServiceError{StatusCode: 409, Message: "Coupon code already exists"}
		}
		s.logger.Error("Failed to create coupon", zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to create coupon"}
	}

	s.logger.Info("Coupon created", zap.String("code", coupon.Code), zap.String("kind", string(coupon.Kind)))
	return coupon, nil
}

func (s *couponServiceImpl) GetCoupon(ctx context.Context, code string) (*models.Coupon, *ServiceError) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &ServiceError{StatusCode: 404, Message: "Coupon not found"}
	}
	if err != nil {
		s.logger.Error("Failed to get coupon", zap.String("code", code), zap.Error(err))
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to get coupon"}
	}
	return coupon, nil
}

func (s *couponServiceImpl) DeactivateCoupon(ctx context.Context, code string) *ServiceError {
	if err := s.repo.Deactivate(ctx, code); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ServiceError{StatusCode: 404, Message: "Coupon not found"}
		}
		s.logger.Error("Failed to deactivate coupon", zap.String("code", code), zap.Error(err))
		return &ServiceError{StatusCode: 500, Message: "Failed to deactivate coupon"}
	}

	s.logger.Info("Coupon deactivated", zap.String("code", repository.NormalizeCode(code)))
	return nil
}

func (s *couponServiceImpl) ListCoupons(ctx context.Context, page, limit int) ([]models.Coupon, int64, *ServiceError) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	coupons, total, err := s.repo.FindAll(ctx, page, limit)
	if err != nil {
		s.logger.Error("Failed to list coupons", zap.Error(err))
		return nil, 0, &ServiceError{StatusCode: 500, Message: "Failed to list coupons"}
	}
	return coupons, total, nil
}

// PreviewCoupon checks a code for the storefront without touching its usage.
func (s *couponServiceImpl) PreviewCoupon(ctx context.Context, code string) (*models.CouponPreview, *ServiceError) {
	if repository.NormalizeCode(code) == "" {
		return nil, &ServiceError{StatusCode: 400, Message: "Coupon code is required"}
	}
	coupon, err := s.Resolve(ctx, code)
	switch {
	case err == nil:
		return &models.CouponPreview{Code: coupon.Code, Discount: coupon.Discount, Kind: coupon.Kind}, nil
	case errors.Is(err, ErrCouponNotFound):
		return nil, &ServiceError{StatusCode: 404, Message: "Coupon not found"}
	case errors.Is(err, ErrCouponInactive):
		return nil, &ServiceError{StatusCode: 400, Message: "This coupon has been deactivated"}
	case errors.Is(err, ErrCouponExpired):
		return nil, &ServiceError{StatusCode: 400, Message: "Coupon has expired"}
	case errors.Is(err, ErrCouponExhausted):
		return nil, &ServiceError{StatusCode: 400, Message: "Coupon usage limit reached"}
	default:
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to validate coupon"}
	}
}

// SeedDefaults creates the launch coupon if it does not exist yet.
func (s *couponServiceImpl) SeedDefaults(ctx context.Context) (bool, *ServiceError) {
	created, err := s.repo.CreateIfAbsent(ctx, &models.Coupon{
		Code:     "MYTHIC10",
		Kind:     models.CouponKindPercentage,
		Discount: decimal.NewFromInt(10),
		MaxUses:  1000,
		IsActive: true,
	})
	if err != nil {
		s.logger.Error("Failed to seed coupons", zap.Error(err))
		return false, &ServiceError{StatusCode: 500, Message: "Failed to seed coupons"}
	}
	return created, nil
}
