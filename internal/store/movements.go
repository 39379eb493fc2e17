package store

import (
	"context"
	"fmt"
	"strings"

	"backoffice-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// MovementFilter narrows a movement listing. Nil fields match everything.
type MovementFilter struct {
	Type      string
	ProductID *int64
	Limit     int
	Offset    int
}

// CreateMovementTx appends a movement to the ledger within a transaction.
// The caller applies the stock effect in the same transaction; a movement
// row must never exist without it.
func (s *Store) CreateMovementTx(ctx context.Context, tx *sqlx.Tx, movement *models.StockMovement) error {
	query := `
		INSERT INTO stock_movements (product_id, movement_type, quantity, reason, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return tx.GetContext(ctx, movement, query,
		movement.ProductID, movement.Type, movement.Quantity, movement.Reason,
		movement.UserID)
}

// GetMovements lists ledger entries, newest first, with optional type and
// product filters. Each call re-queries current state.
func (s *Store) GetMovements(ctx context.Context, filter MovementFilter) ([]models.StockMovement, int, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, product_id, movement_type, quantity, reason, user_id, created_at,
	COUNT(*) OVER() AS total_count
	FROM stock_movements`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("movement_type = $%d", argCount))
		args = append(args, filter.Type)
		argCount++
	}
	if filter.ProductID != nil {
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", argCount))
		args = append(args, *filter.ProductID)
		argCount++
	}

	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}

	sb.WriteString(" ORDER BY created_at DESC, id DESC")
	sb.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryxContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stock movements: %w", err)
	}
	defer rows.Close()

	movements := []models.StockMovement{}
	total := 0
	for rows.Next() {
		var row struct {
			models.StockMovement
			TotalCount int `db:"total_count"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, 0, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		total = row.TotalCount
		movements = append(movements, row.StockMovement)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate stock movements: %w", err)
	}

	return movements, total, nil
}
