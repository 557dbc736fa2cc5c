package cart_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront-service/internal/cart"
	"github.com/vasiliy-maslov/storefront-service/internal/catalog"
	"github.com/vasiliy-maslov/storefront-service/internal/customer"
	"github.com/vasiliy-maslov/storefront-service/internal/db"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(q db.Querier) error) error {
	return fn(nil)
}

type mockCustomerRepo struct {
	findByEmailFunc func(ctx context.Context, q db.Querier, email string) (*customer.Customer, error)
}

func (m *mockCustomerRepo) FindByEmail(ctx context.Context, q db.Querier, email string) (*customer.Customer, error) {
	return m.findByEmailFunc(ctx, q, email)
}

func (m *mockCustomerRepo) FindByID(ctx context.Context, q db.Querier, id uuid.UUID) (*customer.Customer, error) {
	return nil, customer.ErrCustomerNotFound
}

func (m *mockCustomerRepo) AddMonthlyPurchase(ctx context.Context, q db.Querier, customerID uuid.UUID, amount decimal.Decimal) error {
	return nil
}

type mockItemRepo struct {
	findByNameFunc func(ctx context.Context, q db.Querier, name string) (*catalog.Item, error)
}

func (m *mockItemRepo) FindByName(ctx context.Context, q db.Querier, name string) (*catalog.Item, error) {
	return m.findByNameFunc(ctx, q, name)
}

func (m *mockItemRepo) LockForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (*catalog.Item, error) {
	return nil, catalog.ErrItemNotFound
}

func (m *mockItemRepo) UpdateStock(ctx context.Context, q db.Querier, id uuid.UUID, stockQuantity int) error {
	return nil
}

type mockCartRepo struct {
	ensureFunc  func(ctx context.Context, q db.Querier, customerID uuid.UUID) (*cart.Cart, error)
	findFunc    func(ctx context.Context, q db.Querier, customerID uuid.UUID) (*cart.Cart, error)
	addLineFunc func(ctx context.Context, q db.Querier, cartID, itemID uuid.UUID, quantity int) error
}

func (m *mockCartRepo) FindByCustomer(ctx context.Context, q db.Querier, customerID uuid.UUID) (*cart.Cart, error) {
	return m.findFunc(ctx, q, customerID)
}

func (m *mockCartRepo) EnsureForCustomer(ctx context.Context, q db.Querier, customerID uuid.UUID) (*cart.Cart, error) {
	return m.ensureFunc(ctx, q, customerID)
}

func (m *mockCartRepo) AddLine(ctx context.Context, q db.Querier, cartID, itemID uuid.UUID, quantity int) error {
	return m.addLineFunc(ctx, q, cartID, itemID, quantity)
}

func (m *mockCartRepo) DeleteLine(ctx context.Context, q db.Querier, cartID, itemID uuid.UUID) error {
	return nil
}

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return id
}

func TestService_AddLine(t *testing.T) {
	ctx := context.Background()

	cust := &customer.Customer{ID: uuid.Must(uuid.NewV4()), Email: "buyer@example.com", Name: "Vasiliy"}
	item := &catalog.Item{ID: uuid.Must(uuid.NewV4()), Name: "keyboard", Price: decimal.RequireFromString("10000"), StockQuantity: 5}

	t.Run("adds_line_to_existing_cart", func(t *testing.T) {
		c := &cart.Cart{ID: mustUUID(t), CustomerID: cust.ID}
		withLine := &cart.Cart{
			ID:         c.ID,
			CustomerID: cust.ID,
			Lines: []cart.CartLine{
				{ID: mustUUID(t), CartID: c.ID, ItemID: item.ID, ItemName: item.Name, Quantity: 2},
			},
		}

		var addedQuantity int
		carts := &mockCartRepo{
			ensureFunc: func(ctx context.Context, q db.Querier, customerID uuid.UUID) (*cart.Cart, error) {
				return c, nil
			},
			findFunc: func(ctx context.Context, q db.Querier, customerID uuid.UUID) (*cart.Cart, error) {
				return withLine, nil
			},
			addLineFunc: func(ctx context.Context, q db.Querier, cartID, itemID uuid.UUID, quantity int) error {
				assert.Equal(t, c.ID, cartID)
				assert.Equal(t, item.ID, itemID)
				addedQuantity = quantity
				return nil
			},
		}

		svc := cart.NewService(
			fakeTxRunner{},
			&mockCustomerRepo{findByEmailFunc: func(ctx context.Context, q db.Querier, email string) (*customer.Customer, error) {
				return cust, nil
			}},
			&mockItemRepo{findByNameFunc: func(ctx context.Context, q db.Querier, name string) (*catalog.Item, error) {
				return item, nil
			}},
			carts,
		)

		got, err := svc.AddLine(ctx, "buyer@example.com", "keyboard", 2)
		require.NoError(t, err)
		assert.Equal(t, 2, addedQuantity)
		require.Len(t, got.Lines, 1)
		assert.Equal(t, "keyboard", got.Lines[0].ItemName)
	})

	t.Run("duplicate_line", func(t *testing.T) {
		carts := &mockCartRepo{
			ensureFunc: func(ctx context.Context, q db.Querier, customerID uuid.UUID) (*cart.Cart, error) {
				return &cart.Cart{ID: mustUUID(t), CustomerID: cust.ID}, nil
			},
			addLineFunc: func(ctx context.Context, q db.Querier, cartID, itemID uuid.UUID, quantity int) error {
				return cart.ErrLineExists
			},
		}

		svc := cart.NewService(
			fakeTxRunner{},
			&mockCustomerRepo{findByEmailFunc: func(ctx context.Context, q db.Querier, email string) (*customer.Customer, error) {
				return cust, nil
			}},
			&mockItemRepo{findByNameFunc: func(ctx context.Context, q db.Querier, name string) (*catalog.Item, error) {
				return item, nil
			}},
			carts,
		)

		_, err := svc.AddLine(ctx, "buyer@example.com", "keyboard", 2)
		assert.ErrorIs(t, err, cart.ErrLineExists)
	})

	t.Run("unknown_item", func(t *testing.T) {
		svc := cart.NewService(
			fakeTxRunner{},
			&mockCustomerRepo{findByEmailFunc: func(ctx context.Context, q db.Querier, email string) (*customer.Customer, error) {
				return cust, nil
			}},
			&mockItemRepo{findByNameFunc: func(ctx context.Context, q db.Querier, name string) (*catalog.Item, error) {
				return nil, catalog.ErrItemNotFound
			}},
			&mockCartRepo{},
		)

		_, err := svc.AddLine(ctx, "buyer@example.com", "ghost", 1)
		assert.ErrorIs(t, err, catalog.ErrItemNotFound)
	})

	t.Run("non_positive_quantity", func(t *testing.T) {
		svc := cart.NewService(fakeTxRunner{}, &mockCustomerRepo{}, &mockItemRepo{}, &mockCartRepo{})

		_, err := svc.AddLine(ctx, "buyer@example.com", "keyboard", 0)
		assert.Error(t, err)
	})
}

func TestService_GetCart(t *testing.T) {
	ctx := context.Background()

	t.Run("creates_empty_cart_on_first_access", func(t *testing.T) {
		cust := &customer.Customer{ID: uuid.Must(uuid.NewV4()), Email: "buyer@example.com"}
		empty := &cart.Cart{ID: mustUUID(t), CustomerID: cust.ID, Lines: []cart.CartLine{}}

		svc := cart.NewService(
			fakeTxRunner{},
			&mockCustomerRepo{findByEmailFunc: func(ctx context.Context, q db.Querier, email string) (*customer.Customer, error) {
				return cust, nil
			}},
			&mockItemRepo{},
			&mockCartRepo{ensureFunc: func(ctx context.Context, q db.Querier, customerID uuid.UUID) (*cart.Cart, error) {
				return empty, nil
			}},
		)

		got, err := svc.GetCart(ctx, "buyer@example.com")
		require.NoError(t, err)
		assert.Empty(t, got.Lines)
	})

	t.Run("unknown_customer", func(t *testing.T) {
		svc := cart.NewService(
			fakeTxRunner{},
			&mockCustomerRepo{findByEmailFunc: func(ctx context.Context, q db.Querier, email string) (*customer.Customer, error) {
				return nil, customer.ErrCustomerNotFound
			}},
			&mockItemRepo{},
			&mockCartRepo{},
		)

		_, err := svc.GetCart(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, customer.ErrCustomerNotFound)
	})
}
