package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderCreated       = "ORDER_CREATED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeMovementRecorded   = "STOCK_MOVEMENT_RECORDED"
	EventTypeStockLow           = "STOCK_LOW"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when an order is created
type OrderCreatedEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	Reference  string `json:"reference"`
	OrderType  string `json:"order_type"`
	ClientName string `json:"client_name,omitempty"`
}

// OrderStatusChangedEvent published when an order status is overwritten
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	Reference string `json:"reference"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// MovementRecordedEvent published when a stock movement is appended to the ledger
type MovementRecordedEvent struct {
	BaseEvent
	MovementID   int64  `json:"movement_id"`
	ProductID    int64  `json:"product_id"`
	MovementType string `json:"movement_type"`
	Quantity     int    `json:"quantity"`
	StockAfter   int    `json:"stock_after"`
}

// StockLowEvent published when a product's stock reaches its alert threshold
type StockLowEvent struct {
	BaseEvent
	ProductID      int64           `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Stock          int             `json:"stock"`
	AlertThreshold int             `json:"alert_threshold"`
	StockValue     decimal.Decimal `json:"stock_value"`
}
