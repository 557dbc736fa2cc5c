package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vasiliy-maslov/storefront-service/internal/db"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrLineExists   = errors.New("cart already contains this item")
	ErrLineNotFound = errors.New("cart line not found")
)

type Repository interface {
	// FindByCustomer loads the customer's cart with its lines. Item names are
	// joined in so the checkout flow can report lines without extra lookups.
	FindByCustomer(ctx context.Context, q db.Querier, customerID uuid.UUID) (*Cart, error)
	// EnsureForCustomer returns the customer's cart, creating an empty one if
	// none exists yet.
	EnsureForCustomer(ctx context.Context, q db.Querier, customerID uuid.UUID) (*Cart, error)
	AddLine(ctx context.Context, q db.Querier, cartID, itemID uuid.UUID, quantity int) error
	DeleteLine(ctx context.Context, q db.Querier, cartID, itemID uuid.UUID) error
}

type postgresRepository struct{}

func NewRepository() Repository {
	return &postgresRepository{}
}

func (r *postgresRepository) FindByCustomer(ctx context.Context, q db.Querier, customerID uuid.UUID) (*Cart, error) {
	query := `SELECT id, customer_id, created_at FROM carts WHERE customer_id = $1`

	var c Cart
	err := q.QueryRow(ctx, query, customerID).Scan(&c.ID, &c.CustomerID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart for customer %s: %w", customerID, err)
	}

	linesQuery := `
		SELECT cl.id, cl.cart_id, cl.item_id, i.name, cl.quantity, cl.created_at
		FROM cart_lines cl
		JOIN items i ON i.id = cl.item_id
		WHERE cl.cart_id = $1
		ORDER BY cl.created_at
	`

	rows, err := q.Query(ctx, linesQuery, c.ID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart lines for cart %s: %w", c.ID, err)
	}
	defer rows.Close()

	c.Lines = make([]CartLine, 0)
	for rows.Next() {
		var line CartLine
		err := rows.Scan(&line.ID, &line.CartID, &line.ItemID, &line.ItemName, &line.Quantity, &line.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart line for cart %s: %w", c.ID, err)
		}
		c.Lines = append(c.Lines, line)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart lines for cart %s: %w", c.ID, err)
	}

	return &c, nil
}

func (r *postgresRepository) EnsureForCustomer(ctx context.Context, q db.Querier, customerID uuid.UUID) (*Cart, error) {
	c, err := r.FindByCustomer(ctx, q, customerID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return nil, err
	}

	cartID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate cart ID: %w", err)
	}

	query := `
		INSERT INTO carts (id, customer_id)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO NOTHING
	`
	if _, err := q.Exec(ctx, query, cartID, customerID); err != nil {
		return nil, fmt.Errorf("repository: failed to insert cart for customer %s: %w", customerID, err)
	}

	return r.FindByCustomer(ctx, q, customerID)
}

func (r *postgresRepository) AddLine(ctx context.Context, q db.Querier, cartID, itemID uuid.UUID, quantity int) error {
	lineID, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate cart line ID: %w", err)
	}

	query := `
		INSERT INTO cart_lines (id, cart_id, item_id, quantity)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := q.Exec(ctx, query, lineID, cartID, itemID, quantity); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrLineExists
		}
		return fmt.Errorf("repository: failed to insert cart line for cart %s: %w", cartID, err)
	}

	return nil
}

func (r *postgresRepository) DeleteLine(ctx context.Context, q db.Querier, cartID, itemID uuid.UUID) error {
	query := `DELETE FROM cart_lines WHERE cart_id = $1 AND item_id = $2`

	cmdTag, err := q.Exec(ctx, query, cartID, itemID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart line for cart %s: %w", cartID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrLineNotFound
	}

	return nil
}
