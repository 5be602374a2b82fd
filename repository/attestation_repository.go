package repository

import (
	"context"

	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttestationRepository reads sealed payment records for audits. Rows are
// written only by the checkout unit of work.
type AttestationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentAttestation, error)
}

type GormAttestationRepository struct {
	db *gorm.DB
}

func NewGormAttestationRepository(db *gorm.DB) AttestationRepository {
	return &GormAttestationRepository{db: db}
}

func (r *GormAttestationRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentAttestation, error) {
	var a models.PaymentAttestation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}
