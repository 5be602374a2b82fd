package controllers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/GuilhermeXavier08/mythic/controllers"
	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/GuilhermeXavier08/mythic/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// --- Mock LibraryReader ---

type mockLibrary struct {
	owned    map[uuid.UUID]bool
	wishlist map[uuid.UUID]bool
	read     int64
}

func (m *mockLibrary) Library(context.Context, uuid.UUID) ([]models.Purchase, error) {
	out := make([]models.Purchase, 0, len(m.owned))
	for id := range m.owned {
		out = append(out, models.Purchase{GameID: id})
	}
	return out, nil
}

func (m *mockLibrary) Play(_ context.Context, _ uuid.UUID, gameID uuid.UUID) (*models.PlayableGame, error) {
	if !m.owned[gameID] {
		return nil, services.ErrNotOwned
	}
	return &models.PlayableGame{Title: "alpha", GameURL: "https://play.example/alpha"}, nil
}

func (m *mockLibrary) Wishlist(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

func (m *mockLibrary) ToggleWishlist(_ context.Context, _ uuid.UUID, gameID uuid.UUID) (bool, error) {
	m.wishlist[gameID] = !m.wishlist[gameID]
	return m.wishlist[gameID], nil
}

func (m *mockLibrary) Notifications(context.Context, uuid.UUID) ([]models.Notification, error) {
	return []models.Notification{{Message: "hello"}}, nil
}

func (m *mockLibrary) MarkNotificationsRead(context.Context, uuid.UUID) (int64, error) {
	return m.read, nil
}

func setupLibraryRouter(lib controllers.LibraryReader) *gin.Engine {
	r := withUser(gin.New(), uuid.New(), "user")
	lc := controllers.NewLibraryController(lib)
	r.GET("/library", lc.GetLibrary)
	r.GET("/play/:gameId", lc.Play)
	r.GET("/wishlist", lc.GetWishlist)
	r.POST("/wishlist", lc.ToggleWishlist)
	r.GET("/notifications", lc.GetNotifications)
	r.PATCH("/notifications", lc.MarkNotificationsRead)
	return r
}

// --- Tests ---

func TestLibraryController_Play(t *testing.T) {
	owned := uuid.New()
	r := setupLibraryRouter(&mockLibrary{owned: map[uuid.UUID]bool{owned: true}})

	w := doJSON(r, http.MethodGet, "/play/"+owned.String(), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://play.example/alpha", decode(w)["game_url"])

	assert.Equal(t, http.StatusForbidden, doJSON(r, http.MethodGet, "/play/"+uuid.NewString(), nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/play/xyz", nil, nil).Code)
}

func TestLibraryController_GetLibrary(t *testing.T) {
	r := setupLibraryRouter(&mockLibrary{owned: map[uuid.UUID]bool{uuid.New(): true}})

	w := doJSON(r, http.MethodGet, "/library", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(w)["games"], 1)
}

func TestLibraryController_Wishlist(t *testing.T) {
	r := setupLibraryRouter(&mockLibrary{wishlist: map[uuid.UUID]bool{}})
	game := uuid.NewString()

	w := doJSON(r, http.MethodPost, "/wishlist", map[string]string{"game_id": game}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(w)["added"])

	w = doJSON(r, http.MethodPost, "/wishlist", map[string]string{"game_id": game}, nil)
	assert.Equal(t, false, decode(w)["added"])

	w = doJSON(r, http.MethodGet, "/wishlist", nil, nil)
	assert.Equal(t, []any{}, decode(w)["game_ids"])
}

func TestLibraryController_Notifications(t *testing.T) {
	r := setupLibraryRouter(&mockLibrary{read: 3})

	w := doJSON(r, http.MethodGet, "/notifications", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(w)["notifications"], 1)

	w = doJSON(r, http.MethodPatch, "/notifications", nil, nil)
	assert.Equal(t, float64(3), decode(w)["updated"])
}
