package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCouponExhausted is returned by RedeemCoupon when the coupon was
// deactivated or reached max_uses after it was validated.
var ErrCouponExhausted = errors.New("coupon has no remaining uses")

// ErrCartChanged is returned by DeleteCartLines when fewer lines were removed
// than were priced. The transaction must be rolled back and re-run.
var ErrCartChanged = errors.New("cart changed during checkout")

// CheckoutTx is the set of writes a checkout may perform. All of them commit
// together or not at all.
type CheckoutTx interface {
	// LoadCart prices the user's cart at current catalog prices, reading
	// inside the transaction.
	LoadCart(userID uuid.UUID) (*models.CheckoutCart, error)
	OwnedGameIDs(userID uuid.UUID) ([]uuid.UUID, error)
	// InsertPurchases skips games the user already owns and returns how many
	// entitlements were created. Purchase IDs must be left zero.
	InsertPurchases(purchases []models.Purchase) (int, error)
	DeleteCartLines(cartID uuid.UUID, gameIDs []uuid.UUID) error
	PruneWishlist(userID uuid.UUID, gameIDs []uuid.UUID) error
	RedeemCoupon(couponID uuid.UUID) error
	SaveAttestation(a *models.PaymentAttestation) error
}

// UnitOfWork runs fn in a single serializable transaction bound to ctx.
// Any error returned by fn rolls everything back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx CheckoutTx) error) error
}

type GormUnitOfWork struct {
	db *gorm.DB
}

func NewGormUnitOfWork(db *gorm.DB) UnitOfWork {
	return &GormUnitOfWork{db: db}
}

func (u *GormUnitOfWork) Do(ctx context.Context, fn func(tx CheckoutTx) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormCheckoutTx{tx: tx})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

type gormCheckoutTx struct {
	tx *gorm.DB
}

func (t *gormCheckoutTx) LoadCart(userID uuid.UUID) (*models.CheckoutCart, error) {
	return loadCheckoutCart(t.tx, userID)
}

func (t *gormCheckoutTx) OwnedGameIDs(userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := t.tx.
		Model(&models.Purchase{}).
		Where("user_id = ?", userID).
		Pluck("game_id", &ids).Error
	return ids, err
}

func (t *gormCheckoutTx) InsertPurchases(purchases []models.Purchase) (int, error) {
	if len(purchases) == 0 {
		return 0, nil
	}
	res := t.tx.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "game_id"}},
			DoNothing: true,
		}).
		Create(&purchases)
	return int(res.RowsAffected), res.Error
}

func (t *gormCheckoutTx) DeleteCartLines(cartID uuid.UUID, gameIDs []uuid.UUID) error {
	if len(gameIDs) == 0 {
		return nil
	}
	res := t.tx.
		Where("cart_id = ? AND game_id IN ?", cartID, gameIDs).
		Delete(&models.CartLine{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(gameIDs)) {
		return ErrCartChanged
	}
	return nil
}

func (t *gormCheckoutTx) PruneWishlist(userID uuid.UUID, gameIDs []uuid.UUID) error {
	if len(gameIDs) == 0 {
		return nil
	}
	return t.tx.
		Where("user_id = ? AND game_id IN ?", userID, gameIDs).
		Delete(&models.WishlistEntry{}).Error
}

// RedeemCoupon increments used_count only while the coupon is active and
// under quota, so concurrent checkouts can never push it past max_uses.
func (t *gormCheckoutTx) RedeemCoupon(couponID uuid.UUID) error {
	res := t.tx.
		Model(&models.Coupon{}).
		Where("id = ? AND is_active = ? AND used_count < max_uses", couponID, true).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCouponExhausted
	}
	return nil
}

func (t *gormCheckoutTx) SaveAttestation(a *models.PaymentAttestation) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return t.tx.Create(a).Error
}

// IsSerializationFailure reports whether Postgres aborted the transaction
// because of a serialization conflict or deadlock; such transactions can be
// retried as a whole.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// IsUniqueViolation reports a unique constraint violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
