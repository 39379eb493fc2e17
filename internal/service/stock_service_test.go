package service

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"backoffice-service/internal/apperrors"
	"backoffice-service/internal/models"
	"backoffice-service/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

// fakePublisher records published events instead of writing to kafka.
type fakePublisher struct {
	mu            sync.Mutex
	orderCreated  []*models.OrderCreatedEvent
	statusChanged []*models.OrderStatusChangedEvent
	movements     []*models.MovementRecordedEvent
	stockLow      []*models.StockLowEvent
}

func (f *fakePublisher) PublishOrderCreated(_ context.Context, e *models.OrderCreatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderCreated = append(f.orderCreated, e)
	return nil
}

func (f *fakePublisher) PublishOrderStatusChanged(_ context.Context, e *models.OrderStatusChangedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusChanged = append(f.statusChanged, e)
	return nil
}

func (f *fakePublisher) PublishMovementRecorded(_ context.Context, e *models.MovementRecordedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movements = append(f.movements, e)
	return nil
}

func (f *fakePublisher) PublishStockLow(_ context.Context, e *models.StockLowEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stockLow = append(f.stockLow, e)
	return nil
}

func newTestStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return store.NewStoreWithDB(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func productRows(id int64, name string, price string, stock, threshold int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "description", "category_id", "sale_price",
		"stock", "alert_threshold", "unit", "active", "created_at", "updated_at",
	}).AddRow(id, name, "", 1, price, stock, threshold, models.UnitUnit, true,
		testTime, testTime)
}

func TestStockEffect(t *testing.T) {
	tests := []struct {
		movementType string
		quantity     int
		wantDelta    int
		wantAbsolute bool
	}{
		{models.MovementTypeIn, 10, 10, false},
		{models.MovementTypeReturn, 3, 3, false},
		{models.MovementTypeOut, 10, -10, false},
		{models.MovementTypeLoss, 2, -2, false},
		{models.MovementTypeAdjust, 100, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.movementType, func(t *testing.T) {
			delta, absolute := StockEffect(tt.movementType, tt.quantity)
			assert.Equal(t, tt.wantDelta, delta)
			assert.Equal(t, tt.wantAbsolute, absolute)
		})
	}
}

func TestRecordMovementValidation(t *testing.T) {
	st, mock := newTestStore(t)
	svc := NewStockService(st, &fakePublisher{})

	_, _, err := svc.RecordMovement(context.Background(), &RecordMovementRequest{
		ProductID: 1,
		Type:      "TRANSFER",
		Quantity:  0,
	})
	require.Error(t, err)

	// Both violations are reported together and nothing touches the database.
	fields := apperrors.ValidationFields(err)
	assert.Contains(t, fields, "movement_type")
	assert.Contains(t, fields, "quantity")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordMovementAdjustSetsAbsoluteStock(t *testing.T) {
	st, mock := newTestStore(t)
	pub := &fakePublisher{}
	svc := NewStockService(st, pub)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM products WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(productRows(7, "Espresso beans", "12.50", 45, 10))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(100, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO stock_movements")).
		WithArgs(int64(7), models.MovementTypeAdjust, 100, "yearly inventory", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).
			AddRow(31, testTime))
	mock.ExpectCommit()

	movement, product, err := svc.RecordMovement(context.Background(), &RecordMovementRequest{
		ProductID: 7,
		Type:      models.MovementTypeAdjust,
		Quantity:  100,
		Reason:    "yearly inventory",
	})
	require.NoError(t, err)

	// ADJUST sets stock to exactly the quantity regardless of the prior count.
	assert.Equal(t, 100, product.Stock)
	assert.Equal(t, int64(31), movement.ID)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, pub.movements, 1)
	assert.Equal(t, 100, pub.movements[0].StockAfter)
	assert.Empty(t, pub.stockLow)
}

func TestRecordMovementOutCanGoNegative(t *testing.T) {
	st, mock := newTestStore(t)
	pub := &fakePublisher{}
	svc := NewStockService(st, pub)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM products WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(3)).
		WillReturnRows(productRows(3, "Oat milk", "2.10", 2, 5))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2 RETURNING stock")).
		WithArgs(-8, int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(-6))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO stock_movements")).
		WithArgs(int64(3), models.MovementTypeOut, 8, "", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).
			AddRow(32, testTime))
	mock.ExpectCommit()

	_, product, err := svc.RecordMovement(context.Background(), &RecordMovementRequest{
		ProductID: 3,
		Type:      models.MovementTypeOut,
		Quantity:  8,
	})
	require.NoError(t, err)
	assert.Equal(t, -6, product.Stock)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, pub.stockLow, 1)
	assert.Equal(t, -6, pub.stockLow[0].Stock)
}

func TestListMovementsRejectsUnknownType(t *testing.T) {
	st, mock := newTestStore(t)
	svc := NewStockService(st, &fakePublisher{})

	_, _, err := svc.ListMovements(context.Background(), "SHRINKAGE", nil, 20, 0)
	require.Error(t, err)
	assert.Contains(t, apperrors.ValidationFields(err), "movement_type")
	assert.NoError(t, mock.ExpectationsWereMet())
}
