package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GuilhermeXavier08/mythic/models"
	awspkg "github.com/GuilhermeXavier08/mythic/pkg/aws"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrQueueFull = errors.New("event queue is full")

// EventHandler processes one committed checkout.
type EventHandler func(ctx context.Context, evt models.CheckoutCompletedEvent)

// EventQueue decouples committed checkouts from their side effects.
type EventQueue interface {
	Enqueue(ctx context.Context, evt models.CheckoutCompletedEvent) error
	// Run consumes events until ctx is cancelled.
	Run(ctx context.Context, handle EventHandler) error
}

// ChannelQueue is an in-process queue drained by a fixed pool of workers.
type ChannelQueue struct {
	events       chan models.CheckoutCompletedEvent
	workers      int
	drainTimeout time.Duration
}

func NewChannelQueue(size, workers int, drainTimeout time.Duration) *ChannelQueue {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &ChannelQueue{
		events:       make(chan models.CheckoutCompletedEvent, size),
		workers:      workers,
		drainTimeout: drainTimeout,
	}
}

// Enqueue never blocks.
func (q *ChannelQueue) Enqueue(_ context.Context, evt models.CheckoutCompletedEvent) error {
	select {
	case q.events <- evt:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *ChannelQueue) Run(ctx context.Context, handle EventHandler) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case evt := <-q.events:
					handle(gctx, evt)
				}
			}
		})
	}
	_ = g.Wait()

	// Events accepted before shutdown still get their side effects.
	drainCtx, cancel := context.WithTimeout(context.Background(), q.drainTimeout)
	defer cancel()
	for {
		select {
		case evt := <-q.events:
			handle(drainCtx, evt)
		default:
			return nil
		}
	}
}

// SQSEventQueue carries events through an SQS queue so side effects survive
// a restart of the process that committed the checkout.
type SQSEventQueue struct {
	queue  *awspkg.SQSQueue
	logger *zap.Logger
}

func NewSQSEventQueue(queue *awspkg.SQSQueue, logger *zap.Logger) *SQSEventQueue {
	return &SQSEventQueue{queue: queue, logger: logger}
}

func (q *SQSEventQueue) Enqueue(ctx context.Context, evt models.CheckoutCompletedEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return q.queue.Send(ctx, string(body))
}

func (q *SQSEventQueue) Run(ctx context.Context, handle EventHandler) error {
	err := q.queue.StartPolling(ctx, func(ctx context.Context, body string) error {
		var evt models.CheckoutCompletedEvent
		if err := json.Unmarshal([]byte(body), &evt); err != nil {
			// Redelivering a malformed body would never succeed.
			q.logger.Error("Dropping malformed checkout event", zap.Error(err))
			return nil
		}
		handle(ctx, evt)
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
