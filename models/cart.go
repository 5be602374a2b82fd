package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Lines     []CartLine `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// CartLine is one candidate game in a cart. A game appears at most once per cart.
type CartLine struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CartID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_lines_cart_game,priority:1" json:"cart_id"`
	GameID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_lines_cart_game,priority:2" json:"game_id"`
	Game    *Game     `gorm:"foreignKey:GameID" json:"game,omitempty"`
	AddedAt time.Time `gorm:"autoCreateTime" json:"added_at"`
}

// PricedLine is a cart line joined with the game's current catalog price.
type PricedLine struct {
	LineID uuid.UUID       `json:"line_id"`
	GameID uuid.UUID       `json:"game_id"`
	Title  string          `json:"title"`
	Price  decimal.Decimal `json:"price"`
}

// CheckoutCart is the snapshot the checkout orchestrator prices and commits.
type CheckoutCart struct {
	CartID uuid.UUID
	UserID uuid.UUID
	Lines  []PricedLine
}

// AddCartItemRequest is the payload for adding a game to the cart.
type AddCartItemRequest struct {
	GameID uuid.UUID `json:"game_id" binding:"required"`
}

// CartView is the cart as rendered before checkout. Totals are a preview only.
type CartView struct {
	Items         []CartItemView  `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	DiscountTotal decimal.Decimal `json:"total_with_discount"`
}

type CartItemView struct {
	ID      uuid.UUID       `json:"id"`
	GameID  uuid.UUID       `json:"game_id"`
	Title   string          `json:"title"`
	Price   decimal.Decimal `json:"price"`
	AddedAt time.Time       `json:"added_at"`
}
