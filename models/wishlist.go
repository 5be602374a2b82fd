package models

import (
	"time"

	"github.com/google/uuid"
)

type WishlistEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_game,priority:1" json:"user_id"`
	GameID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_game,priority:2" json:"game_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName keeps the table name short.
func (WishlistEntry) TableName() string { return "wishlist" }

type ToggleWishlistRequest struct {
	GameID uuid.UUID `json:"game_id" binding:"required"`
}
