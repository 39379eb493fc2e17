package service

import (
	"context"
	"fmt"
	"time"

	"backoffice-service/internal/apperrors"
	"backoffice-service/internal/models"
	"backoffice-service/internal/store"
	"backoffice-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockService maintains the stock ledger: append-only movement records
// whose stock effect is applied in the same transaction.
type StockService struct {
	store          *store.Store
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewStockService creates a new stock service
func NewStockService(store *store.Store, eventPublisher EventPublisher) *StockService {
	return &StockService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// RecordMovementRequest represents a request to record a stock movement
type RecordMovementRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	Type      string `json:"movement_type" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
	Reason    string `json:"reason"`
	UserID    *int64 `json:"user_id"`
}

// StockEffect returns the signed stock delta a movement applies, and whether
// the movement is an absolute set instead of a delta. IN and RETURN add the
// quantity, OUT and LOSS subtract it, ADJUST sets the stock to exactly the
// quantity.
func StockEffect(movementType string, quantity int) (delta int, absolute bool) {
	switch movementType {
	case models.MovementTypeIn, models.MovementTypeReturn:
		return quantity, false
	case models.MovementTypeOut, models.MovementTypeLoss:
		return -quantity, false
	case models.MovementTypeAdjust:
		return quantity, true
	}
	return 0, false
}

// RecordMovement appends a movement to the ledger and applies its stock
// effect to the product, both within one transaction. Quantity is a positive
// magnitude; the sign is derived from the movement type.
func (s *StockService) RecordMovement(ctx context.Context, req *RecordMovementRequest) (*models.StockMovement, *models.Product, error) {
	ctx, span := util.StartSpan(ctx, "StockService.RecordMovement")
	defer span.End()

	start := time.Now()
	defer func() {
		util.StockMutationLatency.Observe(time.Since(start).Seconds())
	}()

	ve := apperrors.NewValidationError()
	if !models.IsValidMovementType(req.Type) {
		ve.Add("movement_type", fmt.Sprintf("invalid movement type %q", req.Type))
	}
	if req.Quantity < 1 {
		ve.Add("quantity", "quantity must be at least 1")
	}
	if ve.HasErrors() {
		util.ValidationFailuresTotal.WithLabelValues("record_movement").Inc()
		return nil, nil, ve
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	product, err := s.store.GetProductForUpdateTx(ctx, tx, req.ProductID)
	if err != nil {
		return nil, nil, err
	}

	delta, absolute := StockEffect(req.Type, req.Quantity)
	var stockAfter int
	if absolute {
		if err := s.store.SetProductStockTx(ctx, tx, req.ProductID, req.Quantity); err != nil {
			return nil, nil, err
		}
		stockAfter = req.Quantity
	} else {
		stockAfter, err = s.store.AdjustProductStockTx(ctx, tx, req.ProductID, delta)
		if err != nil {
			return nil, nil, err
		}
	}

	movement := &models.StockMovement{
		ProductID: req.ProductID,
		Type:      req.Type,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		UserID:    req.UserID,
	}
	if err := s.store.CreateMovementTx(ctx, tx, movement); err != nil {
		return nil, nil, fmt.Errorf("failed to create stock movement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit stock movement: %w", err)
	}

	util.MovementsRecordedTotal.WithLabelValues(req.Type).Inc()
	s.logger.Info("Stock movement recorded",
		zap.Int64("movement_id", movement.ID),
		zap.Int64("product_id", req.ProductID),
		zap.String("movement_type", req.Type),
		zap.Int("quantity", req.Quantity),
		zap.Int("stock_after", stockAfter))

	event := &models.MovementRecordedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeMovementRecorded,
			Timestamp: time.Now(),
		},
		MovementID:   movement.ID,
		ProductID:    req.ProductID,
		MovementType: req.Type,
		Quantity:     req.Quantity,
		StockAfter:   stockAfter,
	}
	if err := s.eventPublisher.PublishMovementRecorded(ctx, event); err != nil {
		s.logger.Error("Failed to publish MovementRecorded event", zap.Error(err))
	}

	if stockAfter <= product.AlertThreshold {
		lowEvent := &models.StockLowEvent{
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
		if err := s.eventPublisher.PublishStockLow(ctx, lowEvent); err != nil {
			s.logger.Error("Failed to publish StockLow event", zap.Error(err))
		}
	}

	product.Stock = stockAfter
	return movement, product, nil
}

// ListMovements lists ledger entries, newest first, filterable by movement
// type and product. Each call runs a fresh query over current state.
func (s *StockService) ListMovements(ctx context.Context, movementType string, productID *int64, limit, offset int) ([]models.StockMovement, int, error) {
	if movementType != "" && !models.IsValidMovementType(movementType) {
		ve := apperrors.NewValidationError()
		ve.Add("movement_type", fmt.Sprintf("invalid movement type %q", movementType))
		return nil, 0, ve
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.store.GetMovements(ctx, store.MovementFilter{
		Type:      movementType,
		ProductID: productID,
		Limit:     limit,
		Offset:    offset,
	})
}
