package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/GuilhermeXavier08/mythic/metrics"
	"github.com/GuilhermeXavier08/mythic/models"
	awspkg "github.com/GuilhermeXavier08/mythic/pkg/aws"
	"github.com/GuilhermeXavier08/mythic/pricing"
	"github.com/GuilhermeXavier08/mythic/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentSealer encrypts the payment form for the audit table.
type PaymentSealer interface {
	SealFields(userID uuid.UUID, p models.PaymentFields) (*models.PaymentAttestation, error)
}

// EventDispatcher receives committed checkouts. It must not block on side
// effects.
type EventDispatcher interface {
	Dispatch(ctx context.Context, evt models.CheckoutCompletedEvent)
}

type CheckoutConfig struct {
	// MaxTxRetries bounds how often a transaction aborted by a serialization
	// conflict is re-run.
	MaxTxRetries int
	RetryBackoff time.Duration
}

// CheckoutService turns a cart into entitlements in one transaction.
type CheckoutService struct {
	carts      repository.CartRepository
	coupons    CouponResolver
	uow        repository.UnitOfWork
	sealer     PaymentSealer
	dispatcher EventDispatcher
	prom       *metrics.Metrics
	cw         *awspkg.MetricsClient
	logger     *zap.Logger
	cfg        CheckoutConfig
	now        func() time.Time
}

func NewCheckoutService(
	carts repository.CartRepository,
	coupons CouponResolver,
	uow repository.UnitOfWork,
	sealer PaymentSealer,
	dispatcher EventDispatcher,
	prom *metrics.Metrics,
	cw *awspkg.MetricsClient,
	logger *zap.Logger,
	cfg CheckoutConfig,
) *CheckoutService {
	if cfg.MaxTxRetries < 0 {
		cfg.MaxTxRetries = 0
	}
	return &CheckoutService{
		carts:      carts,
		coupons:    coupons,
		uow:        uow,
		sealer:     sealer,
		dispatcher: dispatcher,
		prom:       prom,
		cw:         cw,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Checkout purchases every game in the user's cart.
//
// Only ErrEmptyCart, ErrInvalidPayment and ErrTransactionFailure are returned.
// A coupon that cannot be used is dropped and the cart is bought at full
// price. Calling Checkout again after a lost response is safe: games already
// owned are skipped, not charged, and listed in the result's Skipped field,
// and the emptied cart yields ErrEmptyCart.
func (s *CheckoutService) Checkout(ctx context.Context, userID uuid.UUID, couponCode string, payment models.PaymentFields) (*models.CheckoutResult, error) {
	start := time.Now()
	log := s.logger.With(zap.String("user_id", userID.String()))

	if !completePayment(payment) {
		s.recordOutcome(metrics.OutcomeInvalidPayment, 0, start)
		return nil, ErrInvalidPayment
	}

	// Cheap early exit; the authoritative load happens inside the commit.
	snap, err := s.carts.LoadForCheckout(ctx, userID)
	if err != nil {
		log.Error("Failed to load cart for checkout", zap.Error(err))
		s.recordOutcome(metrics.OutcomeFailed, 0, start)
		return nil, ErrTransactionFailure
	}
	if len(snap.Lines) == 0 {
		s.recordOutcome(metrics.OutcomeEmptyCart, 0, start)
		return nil, ErrEmptyCart
	}

	coupon, err := s.coupons.Resolve(ctx, couponCode)
	if err != nil {
		log.Info("Coupon not applied", zap.String("code", couponCode), zap.Error(err))
		s.prom.Coupon(metrics.CouponInvalid)
		coupon = nil
	}

	attestation, err := s.sealer.SealFields(userID, payment)
	if err != nil {
		log.Error("Failed to seal payment attestation", zap.Error(err))
		s.recordOutcome(metrics.OutcomeFailed, 0, start)
		return nil, ErrTransactionFailure
	}

	out, err := s.commit(ctx, userID, coupon, attestation)
	if errors.Is(err, repository.ErrCouponExhausted) {
		// Lost the race for the coupon's last use between validation and
		// commit; buy at full price instead of failing.
		log.Warn("Coupon exhausted during checkout, retrying without discount", zap.String("code", coupon.Code))
		s.prom.Coupon(metrics.CouponExhausted)
		s.recordCW(awspkg.MetricCouponsDegraded, 1)
		coupon = nil
		out, err = s.commit(ctx, userID, nil, attestation)
	}
	if errors.Is(err, ErrEmptyCart) {
		s.recordOutcome(metrics.OutcomeEmptyCart, 0, start)
		return nil, ErrEmptyCart
	}
	if err != nil {
		log.Error("Checkout transaction failed", zap.Error(err))
		s.recordOutcome(metrics.OutcomeFailed, 0, start)
		return nil, ErrTransactionFailure
	}
	result := out.result

	if result.CouponCode != "" {
		s.prom.Coupon(metrics.CouponRedeemed)
		s.recordCW(awspkg.MetricCouponsRedeemed, 1)
	}

	gameIDs := make([]uuid.UUID, len(result.Lines))
	for i, l := range result.Lines {
		gameIDs[i] = l.GameID
	}
	s.dispatcher.Dispatch(ctx, models.CheckoutCompletedEvent{
		EventType:     models.EventCheckoutCompleted,
		UserID:        userID,
		GameIDs:       gameIDs,
		Inserted:      result.Granted,
		FirstPurchase: out.firstPurchase,
		Total:         result.Total.StringFixed(2),
		CouponCode:    result.CouponCode,
		Timestamp:     s.now().UTC(),
	})

	log.Info("Checkout committed",
		zap.Int("lines", len(result.Lines)),
		zap.Int("granted", result.Granted),
		zap.Int("skipped", len(result.Skipped)),
		zap.String("total", result.Total.StringFixed(2)),
		zap.String("coupon", result.CouponCode),
	)
	s.recordOutcome(metrics.OutcomeCompleted, result.Granted, start)
	return result, nil
}

type commitOutcome struct {
	result        *models.CheckoutResult
	firstPurchase bool
}

// commit reloads and prices the cart inside a single transaction and writes
// the checkout, retrying serialization failures and concurrent cart edits.
// Games the user already owns are dropped from the cart without being priced.
func (s *CheckoutService) commit(ctx context.Context, userID uuid.UUID, coupon *models.Coupon, attestation *models.PaymentAttestation) (*commitOutcome, error) {
	var couponID *uuid.UUID
	if coupon != nil {
		id := coupon.ID
		couponID = &id
	}

	var out *commitOutcome
	err := s.withRetry(ctx, func(tx repository.CheckoutTx) error {
		snap, err := tx.LoadCart(userID)
		if err != nil {
			return err
		}
		if len(snap.Lines) == 0 {
			return ErrEmptyCart
		}
		owned, err := tx.OwnedGameIDs(userID)
		if err != nil {
			return err
		}
		ownedSet := make(map[uuid.UUID]bool, len(owned))
		for _, id := range owned {
			ownedSet[id] = true
		}

		var fresh []models.PricedLine
		var skipped []uuid.UUID
		cartGames := make([]uuid.UUID, len(snap.Lines))
		for i, l := range snap.Lines {
			cartGames[i] = l.GameID
			if ownedSet[l.GameID] {
				skipped = append(skipped, l.GameID)
				continue
			}
			fresh = append(fresh, l)
		}

		applied := coupon
		if len(fresh) == 0 {
			applied = nil
		}
		prices := make([]decimal.Decimal, len(fresh))
		for i, l := range fresh {
			prices[i] = l.Price
		}
		quote := pricing.Calculate(prices, pricing.FromCoupon(applied))

		purchasedAt := s.now().UTC()
		purchases := make([]models.Purchase, len(fresh))
		for i, l := range fresh {
			purchases[i] = models.Purchase{
				UserID:      userID,
				GameID:      l.GameID,
				PricePaid:   quote.Lines[i],
				PurchasedAt: purchasedAt,
			}
			if applied != nil {
				purchases[i].CouponID = couponID
			}
		}

		inserted, err := tx.InsertPurchases(purchases)
		if err != nil {
			return err
		}
		if err := tx.DeleteCartLines(snap.CartID, cartGames); err != nil {
			return err
		}
		if err := tx.PruneWishlist(userID, cartGames); err != nil {
			return err
		}
		if applied != nil {
			if err := tx.RedeemCoupon(applied.ID); err != nil {
				return err
			}
		}
		if err := tx.SaveAttestation(attestation); err != nil {
			return err
		}

		result := &models.CheckoutResult{
			Lines:      make([]models.CheckoutLine, len(fresh)),
			Subtotal:   quote.Subtotal,
			Total:      quote.Total,
			Multiplier: quote.Multiplier,
			Granted:    inserted,
			Skipped:    skipped,
		}
		for i, l := range fresh {
			result.Lines[i] = models.CheckoutLine{GameID: l.GameID, Title: l.Title, Original: l.Price, PricePaid: quote.Lines[i]}
		}
		if applied != nil {
			result.CouponCode = applied.Code
		}
		out = &commitOutcome{result: result, firstPurchase: len(owned) == 0 && inserted > 0}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CheckoutService) withRetry(ctx context.Context, fn func(tx repository.CheckoutTx) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = s.uow.Do(ctx, fn)
		if err == nil || !retryable(err) || attempt >= s.cfg.MaxTxRetries {
			return err
		}

		s.logger.Warn("Checkout transaction conflict, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
		s.prom.TxRetry()
		s.recordCW(awspkg.MetricCheckoutTxRetries, 1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.RetryBackoff * time.Duration(attempt+1)):
		}
	}
}

func retryable(err error) bool {
	return repository.IsSerializationFailure(err) || errors.Is(err, repository.ErrCartChanged)
}

func completePayment(p models.PaymentFields) bool {
	for _, v := range []string{p.Name, p.Number, p.Expiry, p.CVV} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

func (s *CheckoutService) recordOutcome(outcome string, granted int, start time.Time) {
	s.prom.Checkout(outcome, granted)
	if !s.cw.IsEnabled() {
		return
	}
	elapsed := time.Since(start)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dims := map[string]string{"Service": "checkout", "Outcome": outcome}
		if outcome == metrics.OutcomeCompleted {
			_ = s.cw.RecordCount(ctx, awspkg.MetricCheckoutsCompleted, dims)
			_ = s.cw.RecordValue(ctx, awspkg.MetricEntitlementsGranted, float64(granted), dims)
		} else {
			_ = s.cw.RecordCount(ctx, awspkg.MetricCheckoutsFailed, dims)
		}
		_ = s.cw.RecordLatency(ctx, awspkg.MetricCheckoutLatency, elapsed, dims)
	}()
}

func (s *CheckoutService) recordCW(metric string, value float64) {
	if !s.cw.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.cw.RecordValue(ctx, metric, value, map[string]string{"Service": "checkout"})
	}()
}
