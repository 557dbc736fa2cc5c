package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/storefront-service/internal/db"
)

var ErrItemNotFound = errors.New("item not found")

type Repository interface {
	FindByName(ctx context.Context, q db.Querier, name string) (*Item, error)
	// LockForUpdate reads the item row under an exclusive lock. Concurrent
	// lockers of the same row block until the enclosing transaction ends.
	LockForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (*Item, error)
	UpdateStock(ctx context.Context, q db.Querier, id uuid.UUID, stockQuantity int) error
}

type postgresRepository struct{}

func NewRepository() Repository {
	return &postgresRepository{}
}

const itemColumns = `id, name, price, stock_quantity, created_at, updated_at`

func (r *postgresRepository) FindByName(ctx context.Context, q db.Querier, name string) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE name = $1`

	item, err := scanItem(q.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to select item by name %s: %w", name, err)
	}

	return item, nil
}

func (r *postgresRepository) LockForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 FOR UPDATE`

	item, err := scanItem(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to lock item %s: %w", id, err)
	}

	return item, nil
}

func (r *postgresRepository) UpdateStock(ctx context.Context, q db.Querier, id uuid.UUID, stockQuantity int) error {
	query := `UPDATE items SET stock_quantity = $1, updated_at = now() WHERE id = $2`

	cmdTag, err := q.Exec(ctx, query, stockQuantity, id)
	if err != nil {
		return fmt.Errorf("repository: failed to update stock for item %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}

	return nil
}

func scanItem(row pgx.Row) (*Item, error) {
	var item Item
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Price,
		&item.StockQuantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
