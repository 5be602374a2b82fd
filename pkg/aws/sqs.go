package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSQueue sends to and long-polls a single queue.
type SQSQueue struct {
	client   sqsAPI
	queueURL string
	logger   *zap.Logger
}

func NewSQSQueue(cfg sdkaws.Config, queueURL string, logger *zap.Logger) *SQSQueue {
	return &SQSQueue{client: sqs.NewFromConfig(cfg), queueURL: queueURL, logger: logger}
}

// MessageHandler processes one message body. A returned error leaves the
// message on the queue; it becomes visible again after the visibility timeout.
type MessageHandler func(ctx context.Context, body string) error

func (q *SQSQueue) Send(ctx context.Context, body string) error {
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    sdkaws.String(q.queueURL),
		MessageBody: sdkaws.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// StartPolling blocks until ctx is cancelled.
func (q *SQSQueue) StartPolling(ctx context.Context, handler MessageHandler) error {
	q.logger.Info("Starting SQS polling", zap.String("queue", q.queueURL))
	for {
		select {
		case <-ctx.Done():
			q.logger.Info("SQS polling stopped", zap.String("queue", q.queueURL))
			return ctx.Err()
		default:
			if err := q.PollOnce(ctx, handler); err != nil && ctx.Err() == nil {
				q.logger.Warn("Error polling SQS", zap.Error(err))
			}
		}
	}
}

func (q *SQSQueue) PollOnce(ctx context.Context, handler MessageHandler) error {
	result, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            sdkaws.String(q.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   30,
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	for _, msg := range result.Messages {
		if msg.Body == nil {
			continue
		}
		if err := handler(ctx, *msg.Body); err != nil {
			q.logger.Warn("Failed to process SQS message", zap.Error(err))
			continue
		}
		if _, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      sdkaws.String(q.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			q.logger.Warn("Failed to delete SQS message", zap.Error(err))
		}
	}
	return nil
}
