package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront-service/internal/db"
)

var ErrCustomerNotFound = errors.New("customer not found")

type Repository interface {
	FindByEmail(ctx context.Context, q db.Querier, email string) (*Customer, error)
	FindByID(ctx context.Context, q db.Querier, id uuid.UUID) (*Customer, error)
	AddMonthlyPurchase(ctx context.Context, q db.Querier, customerID uuid.UUID, amount decimal.Decimal) error
}

type postgresRepository struct{}

func NewRepository() Repository {
	return &postgresRepository{}
}

const customerQuery = `
	SELECT c.id, c.email, c.name, c.monthly_purchase_amount, c.created_at, c.updated_at,
	       m.id, m.level, m.discount_rate
	FROM customers c
	JOIN memberships m ON m.id = c.membership_id
`

func (r *postgresRepository) FindByEmail(ctx context.Context, q db.Querier, email string) (*Customer, error) {
	cust, err := scanCustomer(q.QueryRow(ctx, customerQuery+`WHERE c.email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("repository: failed to select customer by email %s: %w", email, err)
	}

	return cust, nil
}

func (r *postgresRepository) FindByID(ctx context.Context, q db.Querier, id uuid.UUID) (*Customer, error) {
	cust, err := scanCustomer(q.QueryRow(ctx, customerQuery+`WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("repository: failed to select customer by id %s: %w", id, err)
	}

	return cust, nil
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var cust Customer
	err := row.Scan(
		&cust.ID,
		&cust.Email,
		&cust.Name,
		&cust.MonthlyPurchaseAmount,
		&cust.CreatedAt,
		&cust.UpdatedAt,
		&cust.Membership.ID,
		&cust.Membership.Level,
		&cust.Membership.DiscountRate,
	)
	if err != nil {
		return nil, err
	}
	return &cust, nil
}

func (r *postgresRepository) AddMonthlyPurchase(ctx context.Context, q db.Querier, customerID uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE customers
		SET monthly_purchase_amount = monthly_purchase_amount + $1, updated_at = now()
		WHERE id = $2
	`

	cmdTag, err := q.Exec(ctx, query, amount, customerID)
	if err != nil {
		return fmt.Errorf("repository: failed to accumulate purchase amount for customer %s: %w", customerID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}

	return nil
}
