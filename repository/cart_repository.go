package repository

import (
	"context"

	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository defines the interface for cart data access.
type CartRepository interface {
	// LoadForCheckout returns the user's cart lines priced at the current
	// catalog price. A user without a cart gets an empty snapshot.
	LoadForCheckout(ctx context.Context, userID uuid.UUID) (*models.CheckoutCart, error)
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	ListLines(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	HasLine(ctx context.Context, cartID, gameID uuid.UUID) (bool, error)
	AddLine(ctx context.Context, cartID, gameID uuid.UUID) (*models.CartLine, error)
	DeleteLine(ctx context.Context, userID, lineID uuid.UUID) error
}

type GormCartRepository struct {
	db *gorm.DB
}

func NewGormCartRepository(db *gorm.DB) CartRepository {
	return &GormCartRepository{db: db}
}

type pricedRow struct {
	LineID uuid.UUID
	CartID uuid.UUID
	GameID uuid.UUID
	Title  string
	Price  decimal.Decimal
}

func (r *GormCartRepository) LoadForCheckout(ctx context.Context, userID uuid.UUID) (*models.CheckoutCart, error) {
	return loadCheckoutCart(r.db.WithContext(ctx), userID)
}

// loadCheckoutCart runs on db so the unit of work can price the cart inside
// its own transaction.
func loadCheckoutCart(db *gorm.DB, userID uuid.UUID) (*models.CheckoutCart, error) {
	var rows []pricedRow
	err := db.
		Table("cart_lines AS cl").
		Select("cl.id AS line_id, cl.cart_id, cl.game_id, g.title, g.price").
		Joins("JOIN carts c ON c.id = cl.cart_id").
		Joins("JOIN games g ON g.id = cl.game_id").
		Where("c.user_id = ?", userID).
		Order("cl.added_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := &models.CheckoutCart{UserID: userID}
	for _, row := range rows {
		out.CartID = row.CartID
		out.Lines = append(out.Lines, models.PricedLine{
			LineID: row.LineID,
			GameID: row.GameID,
			Title:  row.Title,
			Price:  row.Price,
		})
	}
	return out, nil
}

// GetOrCreate is safe against concurrent first adds for the same user.
func (r *GormCartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&models.Cart{ID: uuid.New(), UserID: userID}).Error
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormCartRepository) ListLines(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Joins("JOIN carts ON carts.id = cart_lines.cart_id").
		Where("carts.user_id = ?", userID).
		Preload("Game").
		Order("cart_lines.added_at ASC").
		Find(&lines).Error
	return lines, err
}

func (r *GormCartRepository) HasLine(ctx context.Context, cartID, gameID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("cart_id = ? AND game_id = ?", cartID, gameID).
		Count(&n).Error
	return n > 0, err
}

func (r *GormCartRepository) AddLine(ctx context.Context, cartID, gameID uuid.UUID) (*models.CartLine, error) {
	line := &models.CartLine{ID: uuid.New(), CartID: cartID, GameID: gameID}
	if err := r.db.WithContext(ctx).Create(line).Error; err != nil {
		return nil, err
	}
	return line, nil
}

// DeleteLine removes a line only if it belongs to the user's cart.
func (r *GormCartRepository) DeleteLine(ctx context.Context, userID, lineID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND cart_id IN (?)", lineID,
			r.db.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)).
		Delete(&models.CartLine{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
