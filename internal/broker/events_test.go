package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"backoffice-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventHandlerRoutesMovementRecorded(t *testing.T) {
	eh := NewEventHandler()

	var got *models.MovementRecordedEvent
	eh.OnMovementRecorded(func(_ context.Context, e *models.MovementRecordedEvent) error {
		got = e
		return nil
	})

	event := &models.MovementRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeMovementRecorded,
			Timestamp: time.Now(),
		},
		MovementID:   31,
		ProductID:    7,
		MovementType: models.MovementTypeAdjust,
		Quantity:     100,
		StockAfter:   100,
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	err = eh.HandleMessage(context.Background(), kafka.Message{Value: payload})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, int64(31), got.MovementID)
	assert.Equal(t, 100, got.StockAfter)
}

func TestEventHandlerRoutesStockLow(t *testing.T) {
	eh := NewEventHandler()

	var got *models.StockLowEvent
	eh.OnStockLow(func(_ context.Context, e *models.StockLowEvent) error {
		got = e
		return nil
	})

	event := &models.StockLowEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-2",
			EventType: models.EventTypeStockLow,
			Timestamp: time.Now(),
		},
		ProductID:      3,
		ProductName:    "Oat milk",
		Stock:          -6,
		AlertThreshold: 5,
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, eh.HandleMessage(context.Background(), kafka.Message{Value: payload}))
	require.NotNil(t, got)
	assert.Equal(t, -6, got.Stock)
}

func TestEventHandlerIgnoresUnregisteredTypes(t *testing.T) {
	eh := NewEventHandler()

	payload, err := json.Marshal(models.BaseEvent{
		EventID:   "evt-3",
		EventType: models.EventTypeOrderCreated,
		Timestamp: time.Now(),
	})
	require.NoError(t, err)

	assert.NoError(t, eh.HandleMessage(context.Background(), kafka.Message{Value: payload}))
}

func TestEventHandlerRejectsMalformedPayload(t *testing.T) {
	eh := NewEventHandler()
	err := eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
	assert.Error(t, err)
}
