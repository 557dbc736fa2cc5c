package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront-service/internal/catalog"
	"github.com/vasiliy-maslov/storefront-service/internal/customer"
	"github.com/vasiliy-maslov/storefront-service/internal/db"
)

type Service interface {
	AddLine(ctx context.Context, email, itemName string, quantity int) (*Cart, error)
	GetCart(ctx context.Context, email string) (*Cart, error)
}

type service struct {
	txr       db.TxRunner
	customers customer.Repository
	items     catalog.Repository
	carts     Repository
}

func NewService(txr db.TxRunner, customers customer.Repository, items catalog.Repository, carts Repository) Service {
	return &service{
		txr:       txr,
		customers: customers,
		items:     items,
		carts:     carts,
	}
}

func (s *service) AddLine(ctx context.Context, email, itemName string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("service: quantity must be greater than zero, got %d", quantity)
	}

	var result *Cart
	err := s.txr.WithTx(ctx, func(q db.Querier) error {
		cust, err := s.customers.FindByEmail(ctx, q, email)
		if err != nil {
			return err
		}

		item, err := s.items.FindByName(ctx, q, itemName)
		if err != nil {
			return err
		}

		c, err := s.carts.EnsureForCustomer(ctx, q, cust.ID)
		if err != nil {
			return err
		}

		if err := s.carts.AddLine(ctx, q, c.ID, item.ID, quantity); err != nil {
			return err
		}

		result, err = s.carts.FindByCustomer(ctx, q, cust.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, customer.ErrCustomerNotFound) ||
			errors.Is(err, catalog.ErrItemNotFound) ||
			errors.Is(err, ErrLineExists) {
			return nil, err
		}
		log.Error().Err(err).Str("email", email).Str("item", itemName).Msg("service: failed to add cart line")
		return nil, fmt.Errorf("service: failed to add cart line: %w", err)
	}

	return result, nil
}

func (s *service) GetCart(ctx context.Context, email string) (*Cart, error) {
	var result *Cart
	err := s.txr.WithTx(ctx, func(q db.Querier) error {
		cust, err := s.customers.FindByEmail(ctx, q, email)
		if err != nil {
			return err
		}
		result, err = s.carts.EnsureForCustomer(ctx, q, cust.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, customer.ErrCustomerNotFound) {
			return nil, err
		}
		log.Error().Err(err).Str("email", email).Msg("service: failed to fetch cart")
		return nil, fmt.Errorf("service: failed to fetch cart: %w", err)
	}

	return result, nil
}
