package repository

import (
	"context"

	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WishlistRepository interface {
	ListGameIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	// Toggle removes the entry if present, otherwise adds it, and reports
	// whether the game is now wishlisted.
	Toggle(ctx context.Context, userID, gameID uuid.UUID) (bool, error)
}

type GormWishlistRepository struct {
	db *gorm.DB
}

func NewGormWishlistRepository(db *gorm.DB) WishlistRepository {
	return &GormWishlistRepository{db: db}
}

func (r *GormWishlistRepository) ListGameIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.WishlistEntry{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("game_id", &ids).Error
	return ids, err
}

func (r *GormWishlistRepository) Toggle(ctx context.Context, userID, gameID uuid.UUID) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND game_id = ?", userID, gameID).Delete(&models.WishlistEntry{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		added = true
		return tx.Create(&models.WishlistEntry{ID: uuid.New(), UserID: userID, GameID: gameID}).Error
	})
	return added, err
}
