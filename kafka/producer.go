package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes checkout events keyed by user id, so one user's events
// stay ordered within a partition.
type Producer struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
	logger.Info("Kafka producer initialized", zap.String("topic", topic), zap.Strings("brokers", brokers))
	return &Producer{writer: w, topic: topic, logger: logger}
}

func newProducerWithWriter(w messageWriter, topic string, logger *zap.Logger) *Producer {
	return &Producer{writer: w, topic: topic, logger: logger}
}

func (p *Producer) PublishCheckoutCompleted(ctx context.Context, evt models.CheckoutCompletedEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(evt.UserID.String()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.EventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish checkout event",
			zap.String("topic", p.topic),
			zap.String("user_id", evt.UserID.String()),
			zap.Error(err),
		)
		return err
	}
	p.logger.Debug("Checkout event published", zap.String("topic", p.topic), zap.String("user_id", evt.UserID.String()))
	return nil
}

func (p *Producer) Close() error {
	p.logger.Info("Closing Kafka producer", zap.String("topic", p.topic))
	return p.writer.Close()
}
