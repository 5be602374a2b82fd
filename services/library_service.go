package services

import (
	"context"
	"errors"

	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/GuilhermeXavier08/mythic/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const latestNotifications = 10

// LibraryService serves the read side of entitlements together with the
// wishlist, notifications and badge catalogue.
type LibraryService struct {
	ledger        repository.LedgerRepository
	wishlist      repository.WishlistRepository
	notifications repository.NotificationRepository
	badges        repository.BadgeRepository
	logger        *zap.Logger
}

func NewLibraryService(
	ledger repository.LedgerRepository,
	wishlist repository.WishlistRepository,
	notifications repository.NotificationRepository,
	badges repository.BadgeRepository,
	logger *zap.Logger,
) *LibraryService {
	return &LibraryService{
		ledger:        ledger,
		wishlist:      wishlist,
		notifications: notifications,
		badges:        badges,
		logger:        logger,
	}
}

func (s *LibraryService) Library(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error) {
	return s.ledger.ListLibrary(ctx, userID)
}

func (s *LibraryService) Play(ctx context.Context, userID, gameID uuid.UUID) (*models.PlayableGame, error) {
	game, err := s.ledger.FindOwnedGame(ctx, userID, gameID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotOwned
	}
	return game, err
}

func (s *LibraryService) Wishlist(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.wishlist.ListGameIDs(ctx, userID)
}

func (s *LibraryService) ToggleWishlist(ctx context.Context, userID, gameID uuid.UUID) (bool, error) {
	return s.wishlist.Toggle(ctx, userID, gameID)
}

func (s *LibraryService) Notifications(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	return s.notifications.ListLatest(ctx, userID, latestNotifications)
}

func (s *LibraryService) MarkNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notifications.MarkAllRead(ctx, userID)
}

// SeedBadges creates the default badges that are missing.
func (s *LibraryService) SeedBadges(ctx context.Context) (int64, error) {
	n, err := s.badges.Seed(ctx, models.DefaultBadges)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Badges seeded", zap.Int64("created", n))
	return n, nil
}
