package producer

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/pixelotes/Tempus/internal/messaging/kafka"
)

const defaultBatchSize = 50

// Publisher drains the outbox table and relays each pending event to its
// topic. It is the only component that talks to the broker.
type Publisher struct {
	repo   kafka.OutboxRepository
	writer *kafkago.Writer
	logger *zap.Logger
}

func NewPublisher(repo kafka.OutboxRepository, writer *kafkago.Writer, logger *zap.Logger) *Publisher {
	return &Publisher{
		repo:   repo,
		writer: writer,
		logger: logger.Named("kafka.producer"),
	}
}

// Run polls until the context is cancelled.
func (p *Publisher) Run(ctx context.Context, pollInterval time.Duration) {
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	p.logger.Info("outbox publisher started", zap.Duration("poll_interval", pollInterval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox publisher stopped")
			return
		case <-ticker.C:
			if err := p.drain(ctx); err != nil {
				p.logger.Error("outbox drain failed", zap.Error(err))
			}
		}
	}
}

func (p *Publisher) drain(ctx context.Context) error {
	events, err := p.repo.ListPending(ctx, defaultBatchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	p.logger.Debug("draining outbox", zap.Int("count", len(events)))

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.logger.Error("publish failed",
				zap.String("outbox_id", event.ID),
				zap.String("event_type", event.EventType),
				zap.String("topic", event.Topic),
				zap.Error(err),
			)
			_ = p.repo.MarkFailed(ctx, event.ID, err.Error())
			continue
		}

		if err := p.repo.MarkSent(ctx, event.ID); err != nil {
			p.logger.Error("mark sent failed",
				zap.String("outbox_id", event.ID),
				zap.Error(err),
			)
			continue
		}

		p.logger.Info("outbox event sent",
			zap.String("outbox_id", event.ID),
			zap.String("event_type", event.EventType),
			zap.String("topic", event.Topic),
		)
	}

	return nil
}

func (p *Publisher) publish(ctx context.Context, event kafka.OutboxEvent) error {
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: event.Topic,
		// Key by lineage so every version of one record lands on the same
		// partition and consumers see resolutions in order.
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "aggregate_type", Value: []byte(event.AggregateType)},
		},
	})
}
