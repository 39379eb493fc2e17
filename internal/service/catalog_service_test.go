package service

import (
	"context"
	"regexp"
	"testing"

	"backoffice-service/internal/apperrors"
	"backoffice-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func categoryRows(id int64, name string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "description", "created_at", "updated_at"}).
		AddRow(id, name, "", testTime, testTime)
}

func TestValidateProductCollectsAllViolations(t *testing.T) {
	ve := validateProduct(&CreateProductRequest{
		Name:           "   ",
		CategoryID:     1,
		SalePrice:      decimal.NewFromInt(-2),
		Stock:          -1,
		AlertThreshold: -5,
		Unit:           "PALLET",
	})

	require.True(t, ve.HasErrors())
	assert.Len(t, ve.Fields, 5)
	assert.Contains(t, ve.Fields, "name")
	assert.Contains(t, ve.Fields, "sale_price")
	assert.Contains(t, ve.Fields, "stock")
	assert.Contains(t, ve.Fields, "alert_threshold")
	assert.Contains(t, ve.Fields, "unit")
}

func TestValidateProductAcceptsEmptyUnit(t *testing.T) {
	ve := validateProduct(&CreateProductRequest{
		Name:       "House lemonade",
		CategoryID: 1,
		SalePrice:  decimal.RequireFromString("3.50"),
	})
	assert.False(t, ve.HasErrors())
}

func TestCreateProductInvalidRequestPersistsNothing(t *testing.T) {
	st, mock := newTestStore(t)
	svc := NewCatalogService(st)

	_, err := svc.CreateProduct(context.Background(), &CreateProductRequest{
		Name:       "",
		CategoryID: 1,
		SalePrice:  decimal.Zero,
	})
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.HTTPStatus(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProductDefaultsUnitAndActive(t *testing.T) {
	st, mock := newTestStore(t)
	svc := NewCatalogService(st)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM categories WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(categoryRows(1, "Drinks"))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs("House lemonade", "", int64(1),
			decimal.RequireFromString("3.50"), 40, 10, models.UnitUnit, true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(7, testTime, testTime))

	product, err := svc.CreateProduct(context.Background(), &CreateProductRequest{
		Name:           "House lemonade",
		CategoryID:     1,
		SalePrice:      decimal.RequireFromString("3.50"),
		Stock:          40,
		AlertThreshold: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), product.ID)
	assert.Equal(t, models.UnitUnit, product.Unit)
	assert.True(t, product.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCategoryWithProductsConflicts(t *testing.T) {
	st, mock := newTestStore(t)
	svc := NewCatalogService(st)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM categories WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(categoryRows(1, "Drinks"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products WHERE category_id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	err := svc.DeleteCategory(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
	// The DELETE is never issued.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCategoryEmpty(t *testing.T) {
	st, mock := newTestStore(t)
	svc := NewCatalogService(st)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM categories WHERE id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(categoryRows(2, "Seasonal"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products WHERE category_id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM categories WHERE id = $1")).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.DeleteCategory(context.Background(), 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}
