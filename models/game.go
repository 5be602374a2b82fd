package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Game is the catalog row. The catalog service owns it; this service only
// reads title, price and url.
type Game struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title     string          `gorm:"not null" json:"title"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	GameURL   string          `json:"game_url,omitempty"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
