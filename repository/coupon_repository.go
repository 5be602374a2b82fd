package repository

import (
	"context"
	"strings"

	"github.com/GuilhermeXavier08/mythic/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CouponRepository defines the interface for coupon data access.
// Codes are stored upper-case; every lookup normalizes its argument.
type CouponRepository interface {
	Create(ctx context.Context, coupon *models.Coupon) error
	CreateIfAbsent(ctx context.Context, coupon *models.Coupon) (bool, error)
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Deactivate(ctx context.Context, code string) error
	FindAll(ctx context.Context, page, limit int) ([]models.Coupon, int64, error)
}

// GormCouponRepository implements CouponRepository using GORM.
type GormCouponRepository struct {
	db *gorm.DB
}

func NewGormCouponRepository(db *gorm.DB) CouponRepository {
	return &GormCouponRepository{db: db}
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (r *GormCouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	coupon.Code = NormalizeCode(coupon.Code)
	return r.db.WithContext(ctx).Create(coupon).Error
}

// CreateIfAbsent inserts the coupon unless its code already exists and reports
// whether a row was written.
func (r *GormCouponRepository) CreateIfAbsent(ctx context.Context, coupon *models.Coupon) (bool, error) {
	coupon.Code = NormalizeCode(coupon.Code)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(coupon)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindByCode returns the coupon regardless of its state; callers decide
// whether it is redeemable.
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", NormalizeCode(code)).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// Deactivate flips is_active. Coupons are never deleted.
func (r *GormCouponRepository) Deactivate(ctx context.Context, code string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ?", NormalizeCode(code)).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormCouponRepository) FindAll(ctx context.Context, page, limit int) ([]models.Coupon, int64, error) {
	var coupons []models.Coupon
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Coupon{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&coupons).Error; err != nil {
		return nil, 0, err
	}

	return coupons, total, nil
}
