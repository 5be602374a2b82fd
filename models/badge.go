package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	BadgeFirstBuy   = "FIRST_BUY"
	BadgeGameDev    = "GAME_DEV"
	BadgeBetaTester = "BETA_TESTER"
)

type Badge struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code        string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	IconURL     string    `json:"icon_url"`
}

type UserBadge struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_badges_user_badge,priority:1" json:"user_id"`
	BadgeID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_badges_user_badge,priority:2" json:"badge_id"`
	AwardedAt time.Time `gorm:"autoCreateTime" json:"awarded_at"`
}

// DefaultBadges is the catalogue seeded by the admin route.
var DefaultBadges = []Badge{
	{Code: BadgeFirstBuy, Name: "First Purchase", Description: "Bought your first game on Mythic Store.", IconURL: "🛍️"},
	{Code: BadgeGameDev, Name: "World Builder", Description: "Published your first game on the store.", IconURL: "🛠️"},
	{Code: BadgeBetaTester, Name: "Pioneer", Description: "Joined Mythic Store during the beta.", IconURL: "🚀"},
}
