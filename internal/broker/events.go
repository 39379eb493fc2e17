package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"backoffice-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events. Order lifecycle events go
// to the order producer, stock ledger events to the stock producer.
type EventPublisher struct {
	orderProducer *Producer
	stockProducer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(orderProducer, stockProducer *Producer) *EventPublisher {
	return &EventPublisher{
		orderProducer: orderProducer,
		stockProducer: stockProducer,
	}
}

// PublishOrderCreated publishes an OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.orderProducer.PublishEvent(ctx, key, event)
}

// PublishOrderStatusChanged publishes an OrderStatusChanged event
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.orderProducer.PublishEvent(ctx, key, event)
}

// PublishMovementRecorded publishes a MovementRecorded event
func (ep *EventPublisher) PublishMovementRecorded(ctx context.Context, event *models.MovementRecordedEvent) error {
	key := fmt.Sprintf("product-%d", event.ProductID)
	return ep.stockProducer.PublishEvent(ctx, key, event)
}

// PublishStockLow publishes a StockLow event
func (ep *EventPublisher) PublishStockLow(ctx context.Context, event *models.StockLowEvent) error {
	key := fmt.Sprintf("product-%d", event.ProductID)
	return ep.stockProducer.PublishEvent(ctx, key, event)
}

// EventHandler routes consumed stock events to registered callbacks
type EventHandler struct {
	onMovementRecorded func(context.Context, *models.MovementRecordedEvent) error
	onStockLow         func(context.Context, *models.StockLowEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnMovementRecorded registers a handler for MovementRecorded events
func (eh *EventHandler) OnMovementRecorded(handler func(context.Context, *models.MovementRecordedEvent) error) {
	eh.onMovementRecorded = handler
}

// OnStockLow registers a handler for StockLow events
func (eh *EventHandler) OnStockLow(handler func(context.Context, *models.StockLowEvent) error) {
	eh.onStockLow = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeMovementRecorded:
		if eh.onMovementRecorded != nil {
			var event models.MovementRecordedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal MovementRecorded event: %w", err)
			}
			return eh.onMovementRecorded(ctx, &event)
		}

	case models.EventTypeStockLow:
		if eh.onStockLow != nil {
			var event models.StockLowEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockLow event: %w", err)
			}
			return eh.onStockLow(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
