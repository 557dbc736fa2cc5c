// Package stock holds the check-and-decrement logic that keeps inventory from
// being oversold under concurrent checkouts.
package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront-service/internal/catalog"
	"github.com/vasiliy-maslov/storefront-service/internal/db"
)

var ErrNotEnoughStock = errors.New("not enough stock")

// ItemLocker is the slice of the catalog repository the guard needs: an
// exclusive row read and a stock write, both against the caller's transaction.
type ItemLocker interface {
	LockForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (*catalog.Item, error)
	UpdateStock(ctx context.Context, q db.Querier, id uuid.UUID, stockQuantity int) error
}

type Guard struct {
	items ItemLocker
}

func NewGuard(items ItemLocker) *Guard {
	return &Guard{items: items}
}

// Reserve locks the item row for the remainder of the transaction behind q,
// re-reads the quantity under that lock and decrements it. It returns the
// pre-decrement snapshot so the caller prices against the catalog row
// actually reserved. Fails with ErrNotEnoughStock when quantity exceeds the
// locked stock; the row stays untouched in that case.
func (g *Guard) Reserve(ctx context.Context, q db.Querier, itemID uuid.UUID, quantity int) (*catalog.Item, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("stock: reserve quantity must be greater than zero, got %d", quantity)
	}

	item, err := g.items.LockForUpdate(ctx, q, itemID)
	if err != nil {
		return nil, err
	}

	if quantity > item.StockQuantity {
		log.Warn().
			Stringer("item_id", itemID).
			Int("requested", quantity).
			Int("available", item.StockQuantity).
			Msg("stock: reservation rejected")
		return nil, fmt.Errorf("%w: requested %d, available %d", ErrNotEnoughStock, quantity, item.StockQuantity)
	}

	if err := g.items.UpdateStock(ctx, q, itemID, item.StockQuantity-quantity); err != nil {
		return nil, err
	}

	return item, nil
}

// Release adds quantity back to the item's stock. Callers are responsible for
// at-most-once invocation per cancelled line; the guard does not deduplicate.
func (g *Guard) Release(ctx context.Context, q db.Querier, itemID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("stock: release quantity must be greater than zero, got %d", quantity)
	}

	item, err := g.items.LockForUpdate(ctx, q, itemID)
	if err != nil {
		return err
	}

	return g.items.UpdateStock(ctx, q, itemID, item.StockQuantity+quantity)
}
