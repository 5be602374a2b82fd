package repository

import (
	"context"

	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerRepository reads entitlements. Purchases are only written by the
// checkout unit of work and are never updated or deleted.
type LedgerRepository interface {
	Owns(ctx context.Context, userID, gameID uuid.UUID) (bool, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ListLibrary(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error)
	FindOwnedGame(ctx context.Context, userID, gameID uuid.UUID) (*models.PlayableGame, error)
}

type GormLedgerRepository struct {
	db *gorm.DB
}

func NewGormLedgerRepository(db *gorm.DB) LedgerRepository {
	return &GormLedgerRepository{db: db}
}

func (r *GormLedgerRepository) Owns(ctx context.Context, userID, gameID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("user_id = ? AND game_id = ?", userID, gameID).
		Count(&n).Error
	return n > 0, err
}

func (r *GormLedgerRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, err
}

// ListLibrary returns the user's purchases with their games, newest first.
func (r *GormLedgerRepository) ListLibrary(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.WithContext(ctx).
		Preload("Game").
		Where("user_id = ?", userID).
		Order("purchased_at DESC").
		Find(&purchases).Error
	return purchases, err
}

// FindOwnedGame returns gorm.ErrRecordNotFound when the user does not own the game.
func (r *GormLedgerRepository) FindOwnedGame(ctx context.Context, userID, gameID uuid.UUID) (*models.PlayableGame, error) {
	var game models.PlayableGame
	res := r.db.WithContext(ctx).
		Table("purchases AS p").
		Select("g.title, g.game_url").
		Joins("JOIN games g ON g.id = p.game_id").
		Where("p.user_id = ? AND p.game_id = ?", userID, gameID).
		Limit(1).
		Scan(&game)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &game, nil
}
