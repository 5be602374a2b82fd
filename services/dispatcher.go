package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GuilhermeXavier08/mythic/metrics"
	"github.com/GuilhermeXavier08/mythic/models"
	awspkg "github.com/GuilhermeXavier08/mythic/pkg/aws"
	"github.com/GuilhermeXavier08/mythic/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	StepAchievement  = "achievement"
	StepConfirmation = "confirmation"
	StepKafka        = "kafka"
	StepSNS          = "sns"
)

// CheckoutPublisher fans committed checkouts out to other services.
type CheckoutPublisher interface {
	PublishCheckoutCompleted(ctx context.Context, evt models.CheckoutCompletedEvent) error
}

// Dispatcher runs the best-effort follow-ups of a committed checkout. Each
// step is isolated: a failure or panic in one is logged and the rest still
// run. Nothing here can undo a purchase.
type Dispatcher struct {
	queue         EventQueue
	badges        repository.BadgeRepository
	notifications repository.NotificationRepository
	publisher     CheckoutPublisher
	sns           awspkg.SNSPublisher
	snsTopic      string
	prom          *metrics.Metrics
	cw            *awspkg.MetricsClient
	logger        *zap.Logger
	inlineTimeout time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type DispatcherOption func(*Dispatcher)

func WithKafkaPublisher(p CheckoutPublisher) DispatcherOption {
	return func(d *Dispatcher) { d.publisher = p }
}

func WithSNS(p awspkg.SNSPublisher, topicArn string) DispatcherOption {
	return func(d *Dispatcher) {
		d.sns = p
		d.snsTopic = topicArn
	}
}

func WithCloudWatch(cw *awspkg.MetricsClient) DispatcherOption {
	return func(d *Dispatcher) { d.cw = cw }
}

func NewDispatcher(
	queue EventQueue,
	badges repository.BadgeRepository,
	notifications repository.NotificationRepository,
	prom *metrics.Metrics,
	logger *zap.Logger,
	opts ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		queue:         queue,
		badges:        badges,
		notifications: notifications,
		prom:          prom,
		logger:        logger,
		inlineTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start consumes the queue in the background until Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.queue.Run(ctx, d.Handle); err != nil {
			d.logger.Error("Side-effect queue stopped", zap.Error(err))
		}
	}()
}

// Stop cancels the consumers and waits for in-flight events to finish.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

// Dispatch hands evt to the queue. When the queue refuses it the event is
// handled inline, detached from the request context.
func (d *Dispatcher) Dispatch(ctx context.Context, evt models.CheckoutCompletedEvent) {
	if err := d.queue.Enqueue(ctx, evt); err != nil {
		d.logger.Warn("Could not enqueue checkout event, handling inline",
			zap.String("user_id", evt.UserID.String()), zap.Error(err))
		inlineCtx, cancel := context.WithTimeout(context.Background(), d.inlineTimeout)
		defer cancel()
		d.Handle(inlineCtx, evt)
	}
}

// Handle runs every follow-up step for one event.
func (d *Dispatcher) Handle(ctx context.Context, evt models.CheckoutCompletedEvent) {
	d.step(ctx, StepAchievement, evt, d.grantFirstPurchase)
	d.step(ctx, StepConfirmation, evt, d.confirm)
	if d.publisher != nil {
		d.step(ctx, StepKafka, evt, d.publisher.PublishCheckoutCompleted)
	}
	if d.sns != nil && d.snsTopic != "" {
		d.step(ctx, StepSNS, evt, d.publishSNS)
	}
	if d.cw.IsEnabled() {
		_ = d.cw.RecordCount(ctx, awspkg.MetricSideEffectsProcessed, map[string]string{"Service": "checkout"})
	}
}

func (d *Dispatcher) step(ctx context.Context, name string, evt models.CheckoutCompletedEvent, fn func(context.Context, models.CheckoutCompletedEvent) error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn(ctx, evt)
	}()

	d.prom.SideEffect(name, err == nil)
	if err == nil {
		return
	}
	d.logger.Error("Checkout side effect failed",
		zap.String("step", name),
		zap.String("user_id", evt.UserID.String()),
		zap.Error(err),
	)
	if d.cw.IsEnabled() {
		_ = d.cw.RecordCount(ctx, awspkg.MetricSideEffectFailed, map[string]string{"Service": "checkout", "Step": name})
	}
}

// grantFirstPurchase awards FIRST_BUY for the checkout that created the
// user's first entitlements. That is decided at commit time, so later
// purchases handled before this event cannot hide it.
func (d *Dispatcher) grantFirstPurchase(ctx context.Context, evt models.CheckoutCompletedEvent) error {
	if !evt.FirstPurchase || evt.Inserted <= 0 {
		return nil
	}

	badge, err := d.badges.FindByCode(ctx, models.BadgeFirstBuy)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		d.logger.Warn("Badge not seeded, skipping", zap.String("badge", models.BadgeFirstBuy))
		return nil
	}
	if err != nil {
		return err
	}

	has, err := d.badges.HasBadge(ctx, evt.UserID, badge.ID)
	if err != nil || has {
		return err
	}
	granted, err := d.badges.Grant(ctx, evt.UserID, badge.ID)
	if err != nil || !granted {
		return err
	}

	return d.notifications.Create(ctx, &models.Notification{
		UserID:  evt.UserID,
		Message: fmt.Sprintf("Congratulations! You unlocked the achievement: %s", badge.Name),
		Link:    fmt.Sprintf("/profile/%s", evt.UserID),
	})
}

func (d *Dispatcher) confirm(ctx context.Context, evt models.CheckoutCompletedEvent) error {
	return d.notifications.Create(ctx, &models.Notification{
		UserID:  evt.UserID,
		Message: fmt.Sprintf("Purchase complete! %d game(s) added to your library.", evt.Inserted),
		Link:    "/library",
	})
}

func (d *Dispatcher) publishSNS(ctx context.Context, evt models.CheckoutCompletedEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return d.sns.Publish(ctx, d.snsTopic, models.EventCheckoutCompleted, body)
}
