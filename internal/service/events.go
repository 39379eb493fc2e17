package service

import (
	"context"

	"backoffice-service/internal/models"
)

// EventPublisher publishes domain events after a successful commit. Satisfied
// by broker.EventPublisher.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishMovementRecorded(ctx context.Context, event *models.MovementRecordedEvent) error
	PublishStockLow(ctx context.Context, event *models.StockLowEvent) error
}
