package repository

import (
	"context"

	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRepository reads the games table owned by the catalog service.
type CatalogRepository interface {
	FindGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
}

type GormCatalogRepository struct {
	db *gorm.DB
}

func NewGormCatalogRepository(db *gorm.DB) CatalogRepository {
	return &GormCatalogRepository{db: db}
}

func (r *GormCatalogRepository) FindGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	var game models.Game
	if err := r.db.WithContext(ctx).First(&game, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &game, nil
}
