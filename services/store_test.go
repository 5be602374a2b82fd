package services_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/GuilhermeXavier08/mythic/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// --- In-memory store ---
//
// memStore implements every repository the services use. Do holds the store
// lock for the whole transaction, which gives serial execution, and restores
// a snapshot when fn fails.

type memStore struct {
	mu sync.Mutex

	games         map[uuid.UUID]models.Game
	coupons       map[string]*models.Coupon
	carts         map[uuid.UUID]uuid.UUID // user -> cart
	lines         []models.CartLine
	purchases     []models.Purchase
	wishlist      map[uuid.UUID]map[uuid.UUID]bool
	attestations  []models.PaymentAttestation
	badges        map[string]models.Badge
	userBadges    map[uuid.UUID]map[uuid.UUID]bool
	notifications []models.Notification

	// conflicts makes the next N transactions abort with SQLSTATE 40001.
	conflicts int
	// failStep makes the named transactional write fail.
	failStep string
	// staleLine is returned once by the transactional cart load although it
	// is no longer in the cart.
	staleLine *models.PricedLine
	txCount  int
}

var errInjected = errors.New("injected fault")

func newMemStore() *memStore {
	return &memStore{
		games:      make(map[uuid.UUID]models.Game),
		coupons:    make(map[string]*models.Coupon),
		carts:      make(map[uuid.UUID]uuid.UUID),
		wishlist:   make(map[uuid.UUID]map[uuid.UUID]bool),
		badges:     make(map[string]models.Badge),
		userBadges: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (s *memStore) addGame(title, price string) models.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := models.Game{ID: uuid.New(), Title: title, Price: dec(price), GameURL: "https://play.example/" + title}
	s.games[g.ID] = g
	return g
}

func (s *memStore) addCoupon(c *models.Coupon) *models.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Code = repository.NormalizeCode(c.Code)
	s.coupons[c.Code] = c
	return c
}

func (s *memStore) coupon(code string) models.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.coupons[code]
}

func (s *memStore) putInCart(userID uuid.UUID, games ...models.Game) {
	for _, g := range games {
		cart, _ := s.GetOrCreate(context.Background(), userID)
		_, _ = s.AddLine(context.Background(), cart.ID, g.ID)
	}
}

func (s *memStore) addPurchase(userID, gameID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchases = append(s.purchases, models.Purchase{ID: uuid.New(), UserID: userID, GameID: gameID, PurchasedAt: time.Now()})
}

func (s *memStore) purchasesOf(userID uuid.UUID) []models.Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Purchase
	for _, p := range s.purchases {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}

func (s *memStore) cartSize(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		if l.CartID == s.carts[userID] {
			n++
		}
	}
	return n
}

func (s *memStore) attestationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attestations)
}

func (s *memStore) notificationsOf(userID uuid.UUID) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// --- CouponRepository ---

func (s *memStore) Create(_ context.Context, c *models.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.coupons[c.Code]; ok {
		return gorm.ErrDuplicatedKey
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.coupons[c.Code] = c
	return nil
}

func (s *memStore) CreateIfAbsent(ctx context.Context, c *models.Coupon) (bool, error) {
	err := s.Create(ctx, c)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	return err == nil, err
}

func (s *memStore) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coupons[repository.NormalizeCode(code)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) Deactivate(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coupons[repository.NormalizeCode(code)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.IsActive = false
	return nil
}

func (s *memStore) FindAll(_ context.Context, _, _ int) ([]models.Coupon, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Coupon
	for _, c := range s.coupons {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

// --- CatalogRepository ---

func (s *memStore) FindGame(_ context.Context, id uuid.UUID) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &g, nil
}

// --- CartRepository ---

func (s *memStore) LoadForCheckout(_ context.Context, userID uuid.UUID) (*models.CheckoutCart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadCartLocked(userID), nil
}

func (s *memStore) loadCartLocked(userID uuid.UUID) *models.CheckoutCart {
	snap := &models.CheckoutCart{UserID: userID}
	cartID, ok := s.carts[userID]
	if !ok {
		return snap
	}
	snap.CartID = cartID
	for _, l := range s.lines {
		if l.CartID != cartID {
			continue
		}
		g := s.games[l.GameID]
		snap.Lines = append(snap.Lines, models.PricedLine{LineID: l.ID, GameID: g.ID, Title: g.Title, Price: g.Price})
	}
	return snap
}

func (s *memStore) setPrice(gameID uuid.UUID, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.games[gameID]
	g.Price = dec(price)
	s.games[gameID] = g
}

func (s *memStore) removeFromCart(userID, gameID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.lines[:0:0]
	for _, l := range s.lines {
		if l.CartID == s.carts[userID] && l.GameID == gameID {
			continue
		}
		kept = append(kept, l)
	}
	s.lines = kept
}

func (s *memStore) GetOrCreate(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.carts[userID]
	if !ok {
		id = uuid.New()
		s.carts[userID] = id
	}
	return &models.Cart{ID: id, UserID: userID}, nil
}

func (s *memStore) ListLines(_ context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CartLine
	for _, l := range s.lines {
		if l.CartID == s.carts[userID] {
			g := s.games[l.GameID]
			l.Game = &g
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memStore) HasLine(_ context.Context, cartID, gameID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if l.CartID == cartID && l.GameID == gameID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) AddLine(_ context.Context, cartID, gameID uuid.UUID) (*models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if l.CartID == cartID && l.GameID == gameID {
			return nil, gorm.ErrDuplicatedKey
		}
	}
	l := models.CartLine{ID: uuid.New(), CartID: cartID, GameID: gameID, AddedAt: time.Now()}
	s.lines = append(s.lines, l)
	return &l, nil
}

func (s *memStore) DeleteLine(_ context.Context, userID, lineID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.lines {
		if l.ID == lineID && l.CartID == s.carts[userID] {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// --- LedgerRepository ---

func (s *memStore) Owns(_ context.Context, userID, gameID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownsLocked(userID, gameID), nil
}

func (s *memStore) ownsLocked(userID, gameID uuid.UUID) bool {
	for _, p := range s.purchases {
		if p.UserID == userID && p.GameID == gameID {
			return true
		}
	}
	return false
}

func (s *memStore) CountByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, p := range s.purchases {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ListLibrary(_ context.Context, userID uuid.UUID) ([]models.Purchase, error) {
	out := s.purchasesOf(userID)
	sort.Slice(out, func(i, j int) bool { return out[i].PurchasedAt.After(out[j].PurchasedAt) })
	return out, nil
}

func (s *memStore) FindOwnedGame(_ context.Context, userID, gameID uuid.UUID) (*models.PlayableGame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ownsLocked(userID, gameID) {
		return nil, gorm.ErrRecordNotFound
	}
	g := s.games[gameID]
	return &models.PlayableGame{Title: g.Title, GameURL: g.GameURL}, nil
}

// --- WishlistRepository ---

func (s *memStore) ListGameIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uuid.UUID
	for id := range s.wishlist[userID] {
		out = append(out, id)
	}
	return out, nil
}

func (s *memStore) Toggle(_ context.Context, userID, gameID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wishlist[userID] == nil {
		s.wishlist[userID] = make(map[uuid.UUID]bool)
	}
	if s.wishlist[userID][gameID] {
		delete(s.wishlist[userID], gameID)
		return false, nil
	}
	s.wishlist[userID][gameID] = true
	return true, nil
}

// --- BadgeRepository (wrapped to avoid the FindByCode name clash) ---

type memBadges struct{ s *memStore }

func (b memBadges) FindByCode(_ context.Context, code string) (*models.Badge, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	badge, ok := b.s.badges[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &badge, nil
}

func (b memBadges) HasBadge(_ context.Context, userID, badgeID uuid.UUID) (bool, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	return b.s.userBadges[userID][badgeID], nil
}

func (b memBadges) Grant(_ context.Context, userID, badgeID uuid.UUID) (bool, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.s.userBadges[userID] == nil {
		b.s.userBadges[userID] = make(map[uuid.UUID]bool)
	}
	if b.s.userBadges[userID][badgeID] {
		return false, nil
	}
	b.s.userBadges[userID][badgeID] = true
	return true, nil
}

func (b memBadges) Seed(_ context.Context, badges []models.Badge) (int64, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	var n int64
	for _, badge := range badges {
		if _, ok := b.s.badges[badge.Code]; ok {
			continue
		}
		badge.ID = uuid.New()
		b.s.badges[badge.Code] = badge
		n++
	}
	return n, nil
}

// --- NotificationRepository (wrapped to avoid the Create name clash) ---

type memNotifications struct{ s *memStore }

func (m memNotifications) Create(_ context.Context, n *models.Notification) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now()
	m.s.notifications = append(m.s.notifications, *n)
	return nil
}

func (m memNotifications) ListLatest(_ context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	all := m.s.notificationsOf(userID)
	var out []models.Notification
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m memNotifications) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for i := range m.s.notifications {
		if m.s.notifications[i].UserID == userID && !m.s.notifications[i].Read {
			m.s.notifications[i].Read = true
			n++
		}
	}
	return n, nil
}

// --- UnitOfWork ---

func (s *memStore) Do(ctx context.Context, fn func(tx repository.CheckoutTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++

	if s.conflicts > 0 {
		s.conflicts--
		return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	}

	snap := s.snapshotLocked()
	if err := fn(&memTx{s: s}); err != nil {
		s.restoreLocked(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	coupons      map[string]models.Coupon
	lines        []models.CartLine
	purchases    []models.Purchase
	wishlist     map[uuid.UUID]map[uuid.UUID]bool
	attestations []models.PaymentAttestation
}

func (s *memStore) snapshotLocked() memSnapshot {
	snap := memSnapshot{
		coupons:      make(map[string]models.Coupon, len(s.coupons)),
		lines:        append([]models.CartLine(nil), s.lines...),
		purchases:    append([]models.Purchase(nil), s.purchases...),
		wishlist:     make(map[uuid.UUID]map[uuid.UUID]bool, len(s.wishlist)),
		attestations: append([]models.PaymentAttestation(nil), s.attestations...),
	}
	for k, c := range s.coupons {
		snap.coupons[k] = *c
	}
	for u, games := range s.wishlist {
		cp := make(map[uuid.UUID]bool, len(games))
		for g, v := range games {
			cp[g] = v
		}
		snap.wishlist[u] = cp
	}
	return snap
}

func (s *memStore) restoreLocked(snap memSnapshot) {
	for k, c := range snap.coupons {
		*s.coupons[k] = c
	}
	s.lines = snap.lines
	s.purchases = snap.purchases
	s.wishlist = snap.wishlist
	s.attestations = snap.attestations
}

type memTx struct{ s *memStore }

func (t *memTx) fail(step string) error {
	if t.s.failStep == step {
		return errInjected
	}
	return nil
}

func (t *memTx) LoadCart(userID uuid.UUID) (*models.CheckoutCart, error) {
	snap := t.s.loadCartLocked(userID)
	if t.s.staleLine != nil {
		snap.Lines = append(snap.Lines, *t.s.staleLine)
		t.s.staleLine = nil
	}
	return snap, nil
}

func (t *memTx) OwnedGameIDs(userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, p := range t.s.purchases {
		if p.UserID == userID {
			ids = append(ids, p.GameID)
		}
	}
	return ids, nil
}

func (t *memTx) InsertPurchases(purchases []models.Purchase) (int, error) {
	if err := t.fail("purchases"); err != nil {
		return 0, err
	}
	n := 0
	for _, p := range purchases {
		if p.ID != uuid.Nil {
			return 0, errors.New("purchase id must be zero")
		}
		if t.s.ownsLocked(p.UserID, p.GameID) {
			continue
		}
		p.ID = uuid.New()
		t.s.purchases = append(t.s.purchases, p)
		n++
	}
	return n, nil
}

func (t *memTx) DeleteCartLines(cartID uuid.UUID, gameIDs []uuid.UUID) error {
	if err := t.fail("cart"); err != nil {
		return err
	}
	drop := make(map[uuid.UUID]bool, len(gameIDs))
	for _, id := range gameIDs {
		drop[id] = true
	}
	kept := t.s.lines[:0:0]
	removed := 0
	for _, l := range t.s.lines {
		if l.CartID == cartID && drop[l.GameID] {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	t.s.lines = kept
	if removed != len(gameIDs) {
		return repository.ErrCartChanged
	}
	return nil
}

func (t *memTx) PruneWishlist(userID uuid.UUID, gameIDs []uuid.UUID) error {
	if err := t.fail("wishlist"); err != nil {
		return err
	}
	for _, id := range gameIDs {
		delete(t.s.wishlist[userID], id)
	}
	return nil
}

func (t *memTx) RedeemCoupon(couponID uuid.UUID) error {
	if err := t.fail("coupon"); err != nil {
		return err
	}
	for _, c := range t.s.coupons {
		if c.ID == couponID {
			if !c.IsActive || c.UsedCount >= c.MaxUses {
				return repository.ErrCouponExhausted
			}
			c.UsedCount++
			return nil
		}
	}
	return repository.ErrCouponExhausted
}

func (t *memTx) SaveAttestation(a *models.PaymentAttestation) error {
	if err := t.fail("attestation"); err != nil {
		return err
	}
	t.s.attestations = append(t.s.attestations, *a)
	return nil
}
