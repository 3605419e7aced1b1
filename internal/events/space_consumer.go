package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/parkshare/service-reservation/internal/kafka"
)

// PendingRejector rejects the pending reservations of a space. It is
// satisfied by *application.ReservationService.
type PendingRejector interface {
	RejectPendingBySpace(ctx context.Context, spaceID uuid.UUID) (int, error)
}

// SpaceEventConsumer listens to catalog events and reacts to space
// deactivation by rejecting pending reservations on that space.
type SpaceEventConsumer struct {
	consumer *kafka.Consumer
	service  PendingRejector
	logger   *zap.Logger
}

// NewSpaceEventConsumer creates a new SpaceEventConsumer.
func NewSpaceEventConsumer(
	brokers []string,
	groupID string,
	service PendingRejector,
	logger *zap.Logger,
) *SpaceEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicSpaceEvents, logger)
	return &SpaceEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming space events. This blocks until the context is cancelled.
func (c *SpaceEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *SpaceEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *SpaceEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from space topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case SpaceDeactivated:
		return c.handleSpaceDeactivated(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled space event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *SpaceEventConsumer) handleSpaceDeactivated(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt SpaceDeactivatedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse SpaceDeactivatedEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing space deactivated event",
		zap.String("space_id", evt.SpaceID.String()),
	)

	rejected, err := c.service.RejectPendingBySpace(ctx, evt.SpaceID)
	if err != nil {
		c.logger.Error("failed to reject pending reservations after space deactivation",
			zap.String("space_id", evt.SpaceID.String()),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("pending reservations rejected after space deactivation",
		zap.String("space_id", evt.SpaceID.String()),
		zap.Int("count", rejected),
	)
	return nil
}
