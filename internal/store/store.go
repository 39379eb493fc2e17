package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"backoffice-service/internal/apperrors"
	"backoffice-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const foreignKeyViolation = "23503"

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing connection, used by tests.
func NewStoreWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// BeginTx starts a transaction. Multi-entity mutations (line add/remove,
// movement recording) run entirely inside one.
func (s *Store) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return s.db.BeginTxx(ctx, nil)
}

// CreateCategory inserts a new category
func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, category, query, category.Name, category.Description)
}

// GetCategoryByID retrieves a category by ID
func (s *Store) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	err := s.db.GetContext(ctx, &category, "SELECT * FROM categories WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("category", id)
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetCategories retrieves all categories ordered by name
func (s *Store) GetCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.SelectContext(ctx, &categories, "SELECT * FROM categories ORDER BY name")
	return categories, err
}

// CountProductsInCategory counts the products a category owns
func (s *Store) CountProductsInCategory(ctx context.Context, categoryID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM products WHERE category_id = $1", categoryID)
	return count, err
}

// DeleteCategory removes a category row. A concurrent product insert can
// slip past the service-level count check; the FK violation it causes is
// surfaced as the same conflict.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == foreignKeyViolation {
		return apperrors.NewConflictError("category %d still owns products", id)
	}
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("category", id)
	}
	return nil
}

// CreateProduct inserts a new product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, description, category_id, sale_price, stock, alert_threshold, unit, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, product, query,
		product.Name, product.Description, product.CategoryID, product.SalePrice,
		product.Stock, product.AlertThreshold, product.Unit, product.Active)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("product", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// UpdateProduct updates the mutable catalog fields of a product. Stock is
// deliberately excluded; it only changes through stock adjustment.
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1, description = $2, category_id = $3, sale_price = $4,
		    alert_threshold = $5, unit = $6, active = $7, updated_at = NOW()
		WHERE id = $8`,
		product.Name, product.Description, product.CategoryID, product.SalePrice,
		product.AlertThreshold, product.Unit, product.Active, product.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("product", product.ID)
	}
	return nil
}

// DeleteProduct removes a product; dependent order lines and movements are
// removed by the schema's cascade rules.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("product", id)
	}
	return nil
}

// GetProductForUpdateTx loads a product inside a transaction with a row lock,
// serializing concurrent stock writers.
func (s *Store) GetProductForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Product, error) {
	var product models.Product
	err := tx.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("product", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product %d: %w", id, err)
	}
	return &product, nil
}

// AdjustProductStockTx applies stock += delta within a transaction and
// returns the resulting stock count. No sufficiency floor is enforced; stock
// may go negative.
func (s *Store) AdjustProductStockTx(ctx context.Context, tx *sqlx.Tx, id int64, delta int) (int, error) {
	var stock int
	err := tx.GetContext(ctx, &stock,
		"UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2 RETURNING stock",
		delta, id)
	if err == sql.ErrNoRows {
		return 0, apperrors.NewNotFoundError("product", id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust stock for product %d: %w", id, err)
	}
	return stock, nil
}

// SetProductStockTx overwrites the stock count within a transaction. Used by
// ADJUST movements, which set stock to an absolute value instead of applying
// a delta.
func (s *Store) SetProductStockTx(ctx context.Context, tx *sqlx.Tx, id int64, stock int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = $1, updated_at = NOW() WHERE id = $2", stock, id)
	if err != nil {
		return fmt.Errorf("failed to set stock for product %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("product", id)
	}
	return nil
}

// AdjustProductStock applies stock += delta as its own transaction, locking
// the product row first.
func (s *Store) AdjustProductStock(ctx context.Context, id int64, delta int) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := s.GetProductForUpdateTx(ctx, tx, id); err != nil {
		return 0, err
	}

	stock, err := s.AdjustProductStockTx(ctx, tx, id, delta)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return stock, nil
}

// GetLowStockProducts retrieves products at or below their alert threshold,
// lowest stock first.
func (s *Store) GetLowStockProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE stock <= alert_threshold ORDER BY stock, name")
	return products, err
}
