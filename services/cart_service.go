package services

import (
	"context"
	"errors"

	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/GuilhermeXavier08/mythic/pricing"
	"github.com/GuilhermeXavier08/mythic/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CartService manages cart contents before checkout. Reads here are not
// locked; checkout reprices from storage inside its own transaction.
type CartService struct {
	carts   repository.CartRepository
	catalog repository.CatalogRepository
	ledger  repository.LedgerRepository
	coupons CouponResolver
	logger  *zap.Logger
}

func NewCartService(
	carts repository.CartRepository,
	catalog repository.CatalogRepository,
	ledger repository.LedgerRepository,
	coupons CouponResolver,
	logger *zap.Logger,
) *CartService {
	return &CartService{carts: carts, catalog: catalog, ledger: ledger, coupons: coupons, logger: logger}
}

// GetCart renders the cart with a preview total. An unusable coupon code is
// ignored, as it would be at checkout.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID, couponCode string) (*models.CartView, error) {
	lines, err := s.carts.ListLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &models.CartView{Items: make([]models.CartItemView, 0, len(lines))}
	prices := make([]decimal.Decimal, 0, len(lines))
	for _, l := range lines {
		item := models.CartItemView{ID: l.ID, GameID: l.GameID, AddedAt: l.AddedAt}
		if l.Game != nil {
			item.Title = l.Game.Title
			item.Price = l.Game.Price
		}
		view.Items = append(view.Items, item)
		prices = append(prices, item.Price)
	}

	coupon, err := s.coupons.Resolve(ctx, couponCode)
	if err != nil {
		s.logger.Debug("Cart preview without coupon", zap.String("code", couponCode), zap.Error(err))
		coupon = nil
	}

	quote := pricing.Calculate(prices, pricing.FromCoupon(coupon))
	view.Subtotal = quote.Subtotal
	view.DiscountTotal = quote.Total
	if coupon != nil {
		view.CouponCode = coupon.Code
	}
	return view, nil
}

// AddItem puts a game in the user's cart. Games the user owns are refused so
// the cart never holds something checkout would skip.
func (s *CartService) AddItem(ctx context.Context, userID, gameID uuid.UUID) (*models.CartLine, error) {
	if _, err := s.catalog.FindGame(ctx, gameID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}

	owned, err := s.ledger.Owns(ctx, userID, gameID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, ErrAlreadyOwned
	}

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	exists, err := s.carts.HasLine(ctx, cart.ID, gameID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyInCart
	}

	line, err := s.carts.AddLine(ctx, cart.ID, gameID)
	if repository.IsUniqueViolation(err) {
		return nil, ErrAlreadyInCart
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Game added to cart", zap.String("user_id", userID.String()), zap.String("game_id", gameID.String()))
	return line, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, lineID uuid.UUID) error {
	err := s.carts.DeleteLine(ctx, userID, lineID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCartLineNotFound
	}
	return err
}
