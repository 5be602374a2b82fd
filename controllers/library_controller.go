package controllers

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/GuilhermeXavier08/mythic/common/errors"
	"github.com/GuilhermeXavier08/mythic/middleware"
	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/GuilhermeXavier08/mythic/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type LibraryReader interface {
	Library(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error)
	Play(ctx context.Context, userID, gameID uuid.UUID) (*models.PlayableGame, error)
	Wishlist(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ToggleWishlist(ctx context.Context, userID, gameID uuid.UUID) (bool, error)
	Notifications(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	MarkNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// LibraryController serves the owned-games library, play links, the wishlist
// and in-app notifications.
type LibraryController struct {
	library LibraryReader
}

func NewLibraryController(library LibraryReader) *LibraryController {
	return &LibraryController{library: library}
}

func (lc *LibraryController) GetLibrary(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	purchases, err := lc.library.Library(c.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(c, apperrors.Internal("Failed to load library", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": purchases})
}

// Play handles GET /play/:gameId.
func (lc *LibraryController) Play(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	gameID, err := uuid.Parse(c.Param("gameId"))
	if err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid game id"))
		return
	}

	game, err := lc.library.Play(c.Request.Context(), userID, gameID)
	if errors.Is(err, services.ErrNotOwned) {
		apperrors.Respond(c, apperrors.Forbidden("You do not own this game"))
		return
	}
	if err != nil {
		apperrors.Respond(c, apperrors.Internal("Failed to load game", err))
		return
	}
	c.JSON(http.StatusOK, game)
}

func (lc *LibraryController) GetWishlist(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	ids, err := lc.library.Wishlist(c.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(c, apperrors.Internal("Failed to load wishlist", err))
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	c.JSON(http.StatusOK, gin.H{"game_ids": ids})
}

// ToggleWishlist handles POST /wishlist.
func (lc *LibraryController) ToggleWishlist(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.ToggleWishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	added, err := lc.library.ToggleWishlist(c.Request.Context(), userID, req.GameID)
	if err != nil {
		apperrors.Respond(c, apperrors.Internal("Failed to update wishlist", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

func (lc *LibraryController) GetNotifications(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	notes, err := lc.library.Notifications(c.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(c, apperrors.Internal("Failed to load notifications", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notes})
}

// MarkNotificationsRead handles PATCH /notifications.
func (lc *LibraryController) MarkNotificationsRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	n, err := lc.library.MarkNotificationsRead(c.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(c, apperrors.Internal("Failed to update notifications", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.ErrUnauthorized)
		return uuid.Nil, false
	}
	return userID, true
}
