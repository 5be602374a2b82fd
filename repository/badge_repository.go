package repository

import (
	"context"

	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Badge, error)
	HasBadge(ctx context.Context, userID, badgeID uuid.UUID) (bool, error)
	// Grant reports false when the user already held the badge.
	Grant(ctx context.Context, userID, badgeID uuid.UUID) (bool, error)
	Seed(ctx context.Context, badges []models.Badge) (int64, error)
}

type GormBadgeRepository struct {
	db *gorm.DB
}

func NewGormBadgeRepository(db *gorm.DB) BadgeRepository {
	return &GormBadgeRepository{db: db}
}

func (r *GormBadgeRepository) FindByCode(ctx context.Context, code string) (*models.Badge, error) {
	var badge models.Badge
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&badge).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

func (r *GormBadgeRepository) HasBadge(ctx context.Context, userID, badgeID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_id = ?", userID, badgeID).
		Count(&n).Error
	return n > 0, err
}

func (r *GormBadgeRepository) Grant(ctx context.Context, userID, badgeID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
			DoNothing: true,
		}).
		Create(&models.UserBadge{ID: uuid.New(), UserID: userID, BadgeID: badgeID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Seed inserts the badges whose code is not present yet.
func (r *GormBadgeRepository) Seed(ctx context.Context, badges []models.Badge) (int64, error) {
	if len(badges) == 0 {
		return 0, nil
	}
	// IDs stay zero so the database fills them and RowsAffected counts only
	// the rows that were actually inserted.
	rows := make([]models.Badge, len(badges))
	for i, b := range badges {
		b.ID = uuid.Nil
		rows[i] = b
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&rows)
	return res.RowsAffected, res.Error
}
