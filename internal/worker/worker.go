package worker

import (
	"context"

	"backoffice-service/internal/broker"
	"backoffice-service/internal/models"
	"backoffice-service/internal/redisclient"
	"backoffice-service/internal/util"

	"go.uber.org/zap"
)

// StockAlertWorker consumes stock ledger events and maintains the low-stock
// alert set in redis. It is advisory only; it never writes to the database.
type StockAlertWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	redis        *redisclient.Client
	logger       *zap.Logger
}

// NewStockAlertWorker creates a new stock alert worker
func NewStockAlertWorker(consumer *broker.Consumer, redis *redisclient.Client) *StockAlertWorker {
	w := &StockAlertWorker{
		consumer: consumer,
		redis:    redis,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnMovementRecorded(w.handleMovementRecorded)
	eventHandler.OnStockLow(w.handleStockLow)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *StockAlertWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock alert worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockAlertWorker) Stop() error {
	w.logger.Info("Stopping stock alert worker")
	return w.consumer.Close()
}

// handleMovementRecorded invalidates caches touched by the movement and
// clears the product's alert flag. Both events for one movement share the
// product key, so a following StockLow event re-flags the product in order.
func (w *StockAlertWorker) handleMovementRecorded(ctx context.Context, event *models.MovementRecordedEvent) error {
	if err := w.redis.InvalidateDashboard(ctx); err != nil {
		w.logger.Warn("Failed to invalidate dashboard cache",
			zap.Int64("product_id", event.ProductID),
			zap.Error(err))
	}

	if err := w.redis.InvalidateProduct(ctx, event.ProductID); err != nil {
		w.logger.Warn("Failed to invalidate product cache",
			zap.Int64("product_id", event.ProductID),
			zap.Error(err))
	}

	if err := w.redis.ClearLowStock(ctx, event.ProductID); err != nil {
		w.logger.Warn("Failed to clear low-stock flag",
			zap.Int64("product_id", event.ProductID),
			zap.Error(err))
	}
	return nil
}

// handleStockLow flags the product and raises the alert metric.
func (w *StockAlertWorker) handleStockLow(ctx context.Context, event *models.StockLowEvent) error {
	util.LowStockAlertsTotal.Inc()
	w.logger.Warn("Low stock alert",
		zap.Int64("product_id", event.ProductID),
		zap.String("product_name", event.ProductName),
		zap.Int("stock", event.Stock),
		zap.Int("alert_threshold", event.AlertThreshold))

	return w.redis.MarkLowStock(ctx, event.ProductID)
}
