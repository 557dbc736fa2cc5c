package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/storefront-service/internal/db"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateMerchantUID means more than one order row carries the same
	// merchant uid. That is a data-integrity fault, never part of normal
	// operation, and must not be retried.
	ErrDuplicateMerchantUID = errors.New("duplicate merchant uid")
	// ErrAlreadyVerified guards the set-exactly-once rule for imp_uid.
	ErrAlreadyVerified = errors.New("order already verified")
)

type Repository interface {
	// Create persists the order with its lines atomically against q.
	Create(ctx context.Context, q db.Querier, o *Order) error
	GetByMerchantUID(ctx context.Context, q db.Querier, merchantUID string) (*Order, error)
	CountByMerchantUID(ctx context.Context, q db.Querier, merchantUID string) (int, error)
	ListByCustomer(ctx context.Context, q db.Querier, customerID uuid.UUID) ([]Order, error)
	// SetPaymentID records the gateway payment id and moves the order to
	// COMPLETE. It refuses to overwrite an already recorded id.
	SetPaymentID(ctx context.Context, q db.Querier, orderID uuid.UUID, impUID string) error
	UpdateStatus(ctx context.Context, q db.Querier, orderID uuid.UUID, status Status) error
	// UpdateDelivery overwrites only the recipient fields of the embedded
	// delivery snapshot.
	UpdateDelivery(ctx context.Context, q db.Querier, orderID uuid.UUID, d Delivery) error
}

type postgresRepository struct{}

func NewRepository() Repository {
	return &postgresRepository{}
}

func (r *postgresRepository) Create(ctx context.Context, q db.Querier, o *Order) error {
	if o.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", err)
		}
		o.ID = id
	}

	orderQuery := `
		INSERT INTO orders (id, merchant_uid, customer_id, status, recipient_name, recipient_tel, address, delivery_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := q.QueryRow(ctx, orderQuery,
		o.ID,
		o.MerchantUID,
		o.CustomerID,
		string(o.Status),
		o.Delivery.RecipientName,
		o.Delivery.RecipientTel,
		o.Delivery.Address,
		string(o.Delivery.Status),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order %s: %w", o.MerchantUID, err)
	}

	lineQuery := `
		INSERT INTO order_lines (id, order_id, item_id, item_name, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	for i := range o.Lines {
		line := &o.Lines[i]

		lineID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order line ID: %w", err)
		}
		line.ID = lineID
		line.OrderID = o.ID

		err = q.QueryRow(ctx, lineQuery,
			line.ID,
			line.OrderID,
			line.ItemID,
			line.ItemName,
			line.Quantity,
			line.UnitPrice,
			line.LineTotal,
		).Scan(&line.CreatedAt)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order line for order %s: %w", o.ID, err)
		}
	}

	return nil
}

const orderColumns = `id, merchant_uid, customer_id, status, imp_uid, recipient_name, recipient_tel, address, delivery_status, created_at, updated_at`

func (r *postgresRepository) GetByMerchantUID(ctx context.Context, q db.Querier, merchantUID string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE merchant_uid = $1`

	var o Order
	err := q.QueryRow(ctx, query, merchantUID).Scan(
		&o.ID,
		&o.MerchantUID,
		&o.CustomerID,
		&o.Status,
		&o.ImpUID,
		&o.Delivery.RecipientName,
		&o.Delivery.RecipientTel,
		&o.Delivery.Address,
		&o.Delivery.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by merchant uid %s: %w", merchantUID, err)
	}

	lines, err := r.linesForOrders(ctx, q, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]
	if o.Lines == nil {
		o.Lines = []Line{}
	}

	return &o, nil
}

func (r *postgresRepository) CountByMerchantUID(ctx context.Context, q db.Querier, merchantUID string) (int, error) {
	var count int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE merchant_uid = $1`, merchantUID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to count orders by merchant uid %s: %w", merchantUID, err)
	}
	return count, nil
}

func (r *postgresRepository) ListByCustomer(ctx context.Context, q db.Querier, customerID uuid.UUID) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`

	rows, err := q.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for customer %s: %w", customerID, err)
	}
	defer rows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for rows.Next() {
		var o Order
		err := rows.Scan(
			&o.ID,
			&o.MerchantUID,
			&o.CustomerID,
			&o.Status,
			&o.ImpUID,
			&o.Delivery.RecipientName,
			&o.Delivery.RecipientTel,
			&o.Delivery.Address,
			&o.Delivery.Status,
			&o.CreatedAt,
			&o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order for customer %s: %w", customerID, err)
		}
		o.Lines = []Line{}
		ordersMap[o.ID] = &o
		orderIDs = append(orderIDs, o.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders for customer %s: %w", customerID, err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	lines, err := r.linesForOrders(ctx, q, orderIDs)
	if err != nil {
		return nil, err
	}
	for orderID, orderLines := range lines {
		if o, ok := ordersMap[orderID]; ok {
			o.Lines = orderLines
		}
	}

	result := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		result = append(result, *ordersMap[id])
	}
	return result, nil
}

func (r *postgresRepository) SetPaymentID(ctx context.Context, q db.Querier, orderID uuid.UUID, impUID string) error {
	query := `
		UPDATE orders
		SET imp_uid = $1, status = $2, updated_at = now()
		WHERE id = $3 AND imp_uid IS NULL
	`

	cmdTag, err := q.Exec(ctx, query, impUID, string(StatusComplete), orderID)
	if err != nil {
		return fmt.Errorf("repository: failed to set payment id for order %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrAlreadyVerified
	}

	return nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, q db.Querier, orderID uuid.UUID, status Status) error {
	query := `UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`

	cmdTag, err := q.Exec(ctx, query, string(status), orderID)
	if err != nil {
		return fmt.Errorf("repository: failed to update status for order %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *postgresRepository) UpdateDelivery(ctx context.Context, q db.Querier, orderID uuid.UUID, d Delivery) error {
	query := `
		UPDATE orders
		SET recipient_name = $1, recipient_tel = $2, address = $3, updated_at = now()
		WHERE id = $4
	`

	cmdTag, err := q.Exec(ctx, query, d.RecipientName, d.RecipientTel, d.Address, orderID)
	if err != nil {
		return fmt.Errorf("repository: failed to update delivery for order %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *postgresRepository) linesForOrders(ctx context.Context, q db.Querier, orderIDs []uuid.UUID) (map[uuid.UUID][]Line, error) {
	query := `
		SELECT id, order_id, item_id, item_name, quantity, unit_price, line_total, created_at
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY created_at
	`

	rows, err := q.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order lines: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]Line)
	for rows.Next() {
		var line Line
		err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ItemID,
			&line.ItemName,
			&line.Quantity,
			&line.UnitPrice,
			&line.LineTotal,
			&line.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order line: %w", err)
		}
		result[line.OrderID] = append(result[line.OrderID], line)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order lines: %w", err)
	}

	return result, nil
}
