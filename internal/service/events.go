package service

import (
	"context"
	"time"

	"marketflow/internal/models"

	"github.com/google/uuid"
)

// EventPublisher publishes domain events. broker.EventPublisher implements it
// over Kafka; a nil publisher disables events.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishReviewCreated(ctx context.Context, event *models.ReviewCreatedEvent) error
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
