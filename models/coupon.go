package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CouponKind represents how a coupon's discount magnitude is applied.
type CouponKind string

const (
	CouponKindPercentage CouponKind = "PERCENTAGE"
	CouponKindFixed      CouponKind = "FIXED"
)

// Coupon represents a promotional coupon stored in Postgres.
// Coupons are never deleted once created; deactivation flips IsActive.
type Coupon struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code      string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Discount  decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"discount"`
	Kind      CouponKind      `gorm:"type:varchar(16);not null" json:"kind"`
	IsActive  bool            `gorm:"not null;default:true" json:"is_active"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	UsedCount int             `gorm:"not null;default:0;check:chk_coupons_usage,used_count <= max_uses" json:"used_count"`
	MaxUses   int             `gorm:"not null" json:"max_uses"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// CreateCouponRequest is the payload for creating a new coupon.
type CreateCouponRequest struct {
	Code      string          `json:"code" binding:"required,min=3,max=64"`
	Kind      CouponKind      `json:"kind" binding:"required,oneof=PERCENTAGE FIXED"`
	Discount  decimal.Decimal `json:"discount" binding:"gt=0"`
	MaxUses   int             `json:"max_uses" binding:"required,gte=1"`
	ExpiresAt *time.Time      `json:"expires_at"`
}

// PreviewCouponRequest is the storefront "apply coupon" payload.
type PreviewCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// CouponPreview is returned when a code is currently redeemable.
type CouponPreview struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
	Kind     CouponKind      `json:"kind"`
}
