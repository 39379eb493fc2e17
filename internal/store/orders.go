package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"backoffice-service/internal/apperrors"
	"backoffice-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// CreateOrder inserts a new order
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (reference, client_name, order_type, status, total, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, order, query,
		order.Reference, order.ClientName, order.OrderType, order.Status,
		order.Total, order.Notes)
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("order", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderForUpdateTx loads an order inside a transaction with a row lock.
// Line mutations on the same order serialize on this lock, so each total
// recompute sees the previously committed lines.
func (s *Store) GetOrderForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Order, error) {
	var order models.Order
	err := tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order %d: %w", id, err)
	}
	return &order, nil
}

// GetOrderByReference retrieves an order by its unique reference token
func (s *Store) GetOrderByReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE reference = $1", reference)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrders retrieves orders, newest first, optionally filtered by status
func (s *Store) GetOrders(ctx context.Context, status string, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	if status != "" {
		err := s.db.SelectContext(ctx, &orders,
			"SELECT * FROM orders WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
			status, limit, offset)
		return orders, err
	}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	return orders, err
}

// UpdateOrderStatus overwrites the order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("order", orderID)
	}
	return nil
}

// DeleteOrder removes an order; its lines go with it via cascade
func (s *Store) DeleteOrder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("order", id)
	}
	return nil
}

// CreateOrderLineTx inserts an order line within a transaction
func (s *Store) CreateOrderLineTx(ctx context.Context, tx *sqlx.Tx, line *models.OrderLine) error {
	query := `
		INSERT INTO order_lines (order_id, product_id, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return tx.GetContext(ctx, &line.ID, query,
		line.OrderID, line.ProductID, line.Quantity, line.UnitPrice, line.LineTotal)
}

// GetOrderLineByID retrieves an order line by ID
func (s *Store) GetOrderLineByID(ctx context.Context, id int64) (*models.OrderLine, error) {
	var line models.OrderLine
	err := s.db.GetContext(ctx, &line, "SELECT * FROM order_lines WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("order line", id)
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// GetOrderLinesByOrderID retrieves all lines for an order in insertion order
func (s *Store) GetOrderLinesByOrderID(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines WHERE order_id = $1 ORDER BY id", orderID)
	return lines, err
}

// DeleteOrderLineTx removes an order line within a transaction
func (s *Store) DeleteOrderLineTx(ctx context.Context, tx *sqlx.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM order_lines WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("order line", id)
	}
	return nil
}

// SumOrderLinesTx computes the sum of line totals for an order within a
// transaction. An order with no lines sums to zero.
func (s *Store) SumOrderLinesTx(ctx context.Context, tx *sqlx.Tx, orderID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := tx.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(line_total), 0) FROM order_lines WHERE order_id = $1", orderID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum order lines for order %d: %w", orderID, err)
	}
	return total, nil
}

// UpdateOrderTotalTx persists a recomputed order total within a transaction
func (s *Store) UpdateOrderTotalTx(ctx context.Context, tx *sqlx.Tx, orderID int64, total decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET total = $1, updated_at = NOW() WHERE id = $2", total, orderID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("order", orderID)
	}
	return nil
}

// GetSalesSummary aggregates revenue and order count over a date range and
// status set.
func (s *Store) GetSalesSummary(ctx context.Context, from, to time.Time, statuses []string) (*models.SalesSummary, error) {
	query, args, err := sqlx.In(`
		SELECT COALESCE(SUM(total), 0) AS revenue, COUNT(*) AS order_count
		FROM orders
		WHERE status IN (?) AND created_at >= ? AND created_at < ?`,
		statuses, from, to)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var summary models.SalesSummary
	if err := s.db.GetContext(ctx, &summary, query, args...); err != nil {
		return nil, err
	}
	return &summary, nil
}

// GetDailySales aggregates revenue per calendar day over a date range and
// status set.
func (s *Store) GetDailySales(ctx context.Context, from, to time.Time, statuses []string) ([]models.DailySales, error) {
	query, args, err := sqlx.In(`
		SELECT date_trunc('day', created_at) AS day,
		       COALESCE(SUM(total), 0) AS revenue,
		       COUNT(*) AS order_count
		FROM orders
		WHERE status IN (?) AND created_at >= ? AND created_at < ?
		GROUP BY day
		ORDER BY day`,
		statuses, from, to)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var days []models.DailySales
	if err := s.db.SelectContext(ctx, &days, query, args...); err != nil {
		return nil, err
	}
	return days, nil
}

// GetTopProducts ranks products by quantity sold over a date range and
// status set.
func (s *Store) GetTopProducts(ctx context.Context, from, to time.Time, statuses []string, limit int) ([]models.TopProduct, error) {
	query, args, err := sqlx.In(`
		SELECT ol.product_id,
		       p.name AS product_name,
		       SUM(ol.quantity) AS quantity_sold,
		       COALESCE(SUM(ol.line_total), 0) AS revenue
		FROM order_lines ol
		JOIN orders o ON o.id = ol.order_id
		JOIN products p ON p.id = ol.product_id
		WHERE o.status IN (?) AND o.created_at >= ? AND o.created_at < ?
		GROUP BY ol.product_id, p.name
		ORDER BY quantity_sold DESC, revenue DESC
		LIMIT ?`,
		statuses, from, to, limit)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var top []models.TopProduct
	if err := s.db.SelectContext(ctx, &top, query, args...); err != nil {
		return nil, err
	}
	return top, nil
}

// CountOrdersByStatus counts orders per status
func (s *Store) CountOrdersByStatus(ctx context.Context) (map[string]int, error) {
	rows := []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}{}
	err := s.db.SelectContext(ctx, &rows,
		"SELECT status, COUNT(*) AS count FROM orders GROUP BY status")
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// GetStockDashboard aggregates catalog-wide stock figures
func (s *Store) GetStockDashboard(ctx context.Context) (*models.StockDashboard, error) {
	var dashboard models.StockDashboard
	err := s.db.GetContext(ctx, &dashboard, `
		SELECT COUNT(*) AS total_products,
		       COUNT(*) FILTER (WHERE stock > 0) AS in_stock_products,
		       COUNT(*) FILTER (WHERE stock = 0) AS out_of_stock,
		       COUNT(*) FILTER (WHERE stock <= alert_threshold) AS low_stock,
		       COALESCE(SUM(stock * sale_price), 0) AS stock_value
		FROM products`)
	if err != nil {
		return nil, err
	}
	return &dashboard, nil
}
