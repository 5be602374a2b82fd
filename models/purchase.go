package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase is the entitlement that a user owns a game. At most one row exists
// per (user_id, game_id); rows are never updated.
type Purchase struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_purchases_user_game,priority:1" json:"user_id"`
	GameID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_purchases_user_game,priority:2" json:"game_id"`
	Game        *Game           `gorm:"foreignKey:GameID" json:"game,omitempty"`
	PricePaid   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price_paid"`
	CouponID    *uuid.UUID      `gorm:"type:uuid" json:"coupon_id,omitempty"`
	PurchasedAt time.Time       `gorm:"not null" json:"purchased_at"`
}

// PlayableGame is what the play endpoint exposes for an owned game.
type PlayableGame struct {
	Title   string `json:"title"`
	GameURL string `json:"game_url"`
}
