package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"backoffice-service/internal/apperrors"
	"backoffice-service/internal/models"
	"backoffice-service/internal/store"
	"backoffice-service/internal/util"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

// OrderService handles order business logic: order lifecycle, line
// mutations and the total/stock bookkeeping they trigger.
type OrderService struct {
	store          *store.Store
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store *store.Store, eventPublisher EventPublisher) *OrderService {
	return &OrderService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	ClientName string `json:"client_name"`
	OrderType  string `json:"order_type" binding:"required"`
	Notes      string `json:"notes"`
}

// newOrderReference produces a reference token in the historical format:
// "CMD" followed by 8 uppercase hex characters. Collision resistance comes
// from the random source; the real guarantee is the unique constraint on
// orders.reference.
func newOrderReference() string {
	u := uuid.New()
	return "CMD" + strings.ToUpper(hex.EncodeToString(u[:4]))
}

// CreateOrder creates a new order in PENDING status with a zero total and a
// generated reference.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if !models.IsValidOrderType(req.OrderType) {
		util.ValidationFailuresTotal.WithLabelValues("create_order").Inc()
		ve := apperrors.NewValidationError()
		ve.Add("order_type", fmt.Sprintf("invalid order type %q", req.OrderType))
		return nil, ve
	}

	order := &models.Order{
		Reference:  newOrderReference(),
		ClientName: req.ClientName,
		OrderType:  req.OrderType,
		Status:     models.OrderStatusPending,
		Total:      decimal.Zero,
		Notes:      req.Notes,
	}

	err := s.store.CreateOrder(ctx, order)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		// Reference collision; one retry with a fresh token.
		order.Reference = newOrderReference()
		err = s.store.CreateOrder(ctx, order)
	}
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("reference", order.Reference),
		zap.String("order_type", order.OrderType))

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:    order.ID,
		Reference:  order.Reference,
		OrderType:  order.OrderType,
		ClientName: order.ClientName,
	}
	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return order, nil
}

// AddLine adds a product to an order. The unit price is snapshotted from the
// product at call time, product stock is decremented by the quantity, and
// the order total is recomputed -- all within one transaction. There is no
// stock-sufficiency check; over-selling drives stock negative.
func (s *OrderService) AddLine(ctx context.Context, orderID, productID int64, quantity int) (*models.OrderLine, *models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.AddLine")
	defer span.End()

	start := time.Now()
	defer func() {
		util.StockMutationLatency.Observe(time.Since(start).Seconds())
	}()

	if quantity < 1 {
		util.ValidationFailuresTotal.WithLabelValues("add_line").Inc()
		ve := apperrors.NewValidationError()
		ve.Add("quantity", "quantity must be at least 1")
		return nil, nil, ve
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the order row before summing so concurrent line mutations on the
	// same order serialize and each recomputed total includes the prior
	// commit's lines.
	if _, err := s.store.GetOrderForUpdateTx(ctx, tx, orderID); err != nil {
		return nil, nil, err
	}

	product, err := s.store.GetProductForUpdateTx(ctx, tx, productID)
	if err != nil {
		return nil, nil, err
	}

	line := &models.OrderLine{
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: product.SalePrice,
		LineTotal: product.SalePrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
	if err := s.store.CreateOrderLineTx(ctx, tx, line); err != nil {
		util.OrdersFailedTotal.WithLabelValues("line_insert").Inc()
		return nil, nil, fmt.Errorf("failed to create order line: %w", err)
	}

	stockAfter, err := s.store.AdjustProductStockTx(ctx, tx, productID, -quantity)
	if err != nil {
		return nil, nil, err
	}

	total, err := s.store.SumOrderLinesTx(ctx, tx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.UpdateOrderTotalTx(ctx, tx, orderID, total); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit line addition: %w", err)
	}

	util.OrderLinesAddedTotal.Inc()
	s.logger.Info("Order line added",
		zap.Int64("order_id", orderID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
		zap.String("line_total", line.LineTotal.String()),
		zap.Int("stock_after", stockAfter))

	s.alertIfLowStock(ctx, product, stockAfter)

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return line, order, nil
}

// RemoveLine removes a line from its order, restoring the product stock and
// recomputing the order total within one transaction. Symmetric inverse of
// AddLine. The removed line is returned alongside the updated order.
func (s *OrderService) RemoveLine(ctx context.Context, lineID int64) (*models.OrderLine, *models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.RemoveLine")
	defer span.End()

	line, err := s.store.GetOrderLineByID(ctx, lineID)
	if err != nil {
		return nil, nil, err
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.store.GetOrderForUpdateTx(ctx, tx, line.OrderID); err != nil {
		return nil, nil, err
	}
	if _, err := s.store.GetProductForUpdateTx(ctx, tx, line.ProductID); err != nil {
		return nil, nil, err
	}
	if _, err := s.store.AdjustProductStockTx(ctx, tx, line.ProductID, line.Quantity); err != nil {
		return nil, nil, err
	}
	if err := s.store.DeleteOrderLineTx(ctx, tx, lineID); err != nil {
		return nil, nil, err
	}

	total, err := s.store.SumOrderLinesTx(ctx, tx, line.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.UpdateOrderTotalTx(ctx, tx, line.OrderID, total); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit line removal: %w", err)
	}

	util.OrderLinesRemovedTotal.Inc()
	s.logger.Info("Order line removed",
		zap.Int64("line_id", lineID),
		zap.Int64("order_id", line.OrderID),
		zap.Int64("product_id", line.ProductID),
		zap.Int("quantity_restored", line.Quantity))

	order, err := s.store.GetOrderByID(ctx, line.OrderID)
	if err != nil {
		return nil, nil, err
	}
	return line, order, nil
}

// UpdateStatus overwrites the order status. Membership in the five-state
// enum is the only check: any status is reachable from any status, matching
// the historical behavior.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, newStatus string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	if !models.IsValidOrderStatus(newStatus) {
		util.ValidationFailuresTotal.WithLabelValues("update_status").Inc()
		ve := apperrors.NewValidationError()
		ve.Add("status", fmt.Sprintf("invalid order status %q", newStatus))
		return nil, ve
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	oldStatus := order.Status

	if err := s.store.UpdateOrderStatus(ctx, orderID, newStatus); err != nil {
		return nil, err
	}

	util.OrderStatusChangesTotal.WithLabelValues(newStatus).Inc()
	s.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("old_status", oldStatus),
		zap.String("new_status", newStatus))

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:   orderID,
		Reference: order.Reference,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}
	if err := s.eventPublisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	return s.store.GetOrderByID(ctx, orderID)
}

// RecomputeTotal re-derives the order total from its lines and persists it.
func (s *OrderService) RecomputeTotal(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.store.GetOrderForUpdateTx(ctx, tx, orderID); err != nil {
		return decimal.Zero, err
	}

	total, err := s.store.SumOrderLinesTx(ctx, tx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := s.store.UpdateOrderTotalTx(ctx, tx, orderID, total); err != nil {
		return decimal.Zero, err
	}
	if err := tx.Commit(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to commit total recompute: %w", err)
	}

	return total, nil
}

// GetOrder retrieves an order with its lines
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderLine, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	lines, err := s.store.GetOrderLinesByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, lines, nil
}

// ListOrders retrieves orders, newest first, optionally filtered by status
func (s *OrderService) ListOrders(ctx context.Context, status string, limit, offset int) ([]models.Order, error) {
	if status != "" && !models.IsValidOrderStatus(status) {
		ve := apperrors.NewValidationError()
		ve.Add("status", fmt.Sprintf("invalid order status %q", status))
		return nil, ve
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.GetOrders(ctx, status, limit, offset)
}

// DeleteOrder removes an order and its lines. Stock consumed by the lines is
// not restored; cancelling should go through RemoveLine or a RETURN
// movement first.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) error {
	if err := s.store.DeleteOrder(ctx, orderID); err != nil {
		return err
	}
	s.logger.Info("Order deleted", zap.Int64("order_id", orderID))
	return nil
}

// alertIfLowStock publishes a StockLow event when a stock mutation leaves
// the product at or below its alert threshold.
func (s *OrderService) alertIfLowStock(ctx context.Context, product *models.Product, stockAfter int) {
	if stockAfter > product.AlertThreshold {
		return
	}

	event := &models.StockLowEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStockLow,
			Timestamp: time.Now(),
		},
		ProductID:      product.ID,
		ProductName:    product.Name,
		Stock:          stockAfter,
		AlertThreshold: product.AlertThreshold,
		StockValue:     product.SalePrice.Mul(decimal.NewFromInt(int64(stockAfter))),
	}
	if err := s.eventPublisher.PublishStockLow(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockLow event",
			zap.Int64("product_id", product.ID),
			zap.Error(err))
	}
}
