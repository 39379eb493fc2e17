package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"backoffice-service/internal/apperrors"
	"backoffice-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewStoreWithDB(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func TestCreateCategory(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO categories")).
		WithArgs("Drinks", "Cold and hot drinks").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(1, testTime, testTime))

	category := &models.Category{Name: "Drinks", Description: "Cold and hot drinks"}
	require.NoError(t, s.CreateCategory(context.Background(), category))
	assert.Equal(t, int64(1), category.ID)
	assert.Equal(t, testTime, category.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCategoryByIDNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM categories WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "created_at", "updated_at"}))

	_, err := s.GetCategoryByID(context.Background(), 99)
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCategoryNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM categories WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteCategory(context.Background(), 99)
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCategoryMapsForeignKeyViolationToConflict(t *testing.T) {
	s, mock := newMockStore(t)

	// A product inserted between the service's count check and the DELETE
	// trips the FK constraint; callers see the same conflict either way.
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM categories WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnError(&pq.Error{Code: "23503"})

	err := s.DeleteCategory(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustProductStockLocksRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM products WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "description", "category_id", "sale_price",
			"stock", "alert_threshold", "unit", "active", "created_at", "updated_at",
		}).AddRow(7, "Club sandwich", "", 1, "10.00", 2, 5, models.UnitUnit, true, testTime, testTime))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2 RETURNING stock")).
		WithArgs(-5, int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(-3))
	mock.ExpectCommit()

	// The returned count reflects the database row, negative included.
	stock, err := s.AdjustProductStock(context.Background(), 7, -5)
	require.NoError(t, err)
	assert.Equal(t, -3, stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByReferenceMisses(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM orders WHERE reference = $1")).
		WithArgs("CMDDEADBEEF").
		WillReturnRows(sqlmock.NewRows([]string{"id", "reference"}))

	order, err := s.GetOrderByReference(context.Background(), "CMDDEADBEEF")
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountOrdersByStatus(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS count FROM orders GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow(models.OrderStatusPending, 4).
			AddRow(models.OrderStatusServed, 11))

	counts, err := s.CountOrdersByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		models.OrderStatusPending: 4,
		models.OrderStatusServed:  11,
	}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
