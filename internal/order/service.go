package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront-service/internal/cart"
	"github.com/vasiliy-maslov/storefront-service/internal/catalog"
	"github.com/vasiliy-maslov/storefront-service/internal/customer"
	"github.com/vasiliy-maslov/storefront-service/internal/db"
	"github.com/vasiliy-maslov/storefront-service/internal/pricing"
	"github.com/vasiliy-maslov/storefront-service/internal/stock"
)

var (
	// ErrAlreadyDispatched rejects delivery mutations once the parcel left.
	ErrAlreadyDispatched = errors.New("order already dispatched")
	// ErrOrderItemNotFound means a cancellation referenced an item the order
	// has no line for.
	ErrOrderItemNotFound = errors.New("order item not found")
	// ErrOrderAlreadyCancelled keeps a second cancellation from refunding
	// and restocking twice.
	ErrOrderAlreadyCancelled = errors.New("order already cancelled")
	ErrEmptyCart             = errors.New("cart is empty")
)

// StockGuard is the reserve/release slice of the stock guard.
type StockGuard interface {
	Reserve(ctx context.Context, q db.Querier, itemID uuid.UUID, quantity int) (*catalog.Item, error)
	Release(ctx context.Context, q db.Querier, itemID uuid.UUID, quantity int) error
}

// PurchaseRecorder receives fire-and-forget purchase-completed events after
// an order commits. Implementations must never block the placement path.
type PurchaseRecorder interface {
	Enqueue(customerID uuid.UUID, amount decimal.Decimal)
}

type DeliveryInput struct {
	RecipientName string
	RecipientTel  string
	Address       string
}

type PlaceOrderInput struct {
	Email string
	// MerchantUID correlates this checkout attempt with the payment gateway.
	// Left empty, a fresh one is generated.
	MerchantUID string
	ItemName    string
	Quantity    int
	Delivery    DeliveryInput
}

type CheckoutCartInput struct {
	Email    string
	Delivery DeliveryInput
}

// LineFailure reports one cart line the coordinator could not convert.
type LineFailure struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// CheckoutResult carries the partial-success outcome of a cart checkout:
// every order that committed, plus the lines that failed.
type CheckoutResult struct {
	Placed []Summary     `json:"placed"`
	Failed []LineFailure `json:"failed"`
}

type Service interface {
	PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Summary, error)
	CheckoutCart(ctx context.Context, in CheckoutCartInput) (*CheckoutResult, error)
	UpdateDelivery(ctx context.Context, merchantUID string, d DeliveryInput) (*Summary, error)
	GetOrder(ctx context.Context, merchantUID string) (*Summary, error)
	ListOrders(ctx context.Context, email string) ([]Summary, error)
}

type service struct {
	txr       db.TxRunner
	customers customer.Repository
	items     catalog.Repository
	guard     StockGuard
	carts     cart.Repository
	orders    Repository
	purchases PurchaseRecorder
}

func NewService(
	txr db.TxRunner,
	customers customer.Repository,
	items catalog.Repository,
	guard StockGuard,
	carts cart.Repository,
	orders Repository,
	purchases PurchaseRecorder,
) Service {
	return &service{
		txr:       txr,
		customers: customers,
		items:     items,
		guard:     guard,
		carts:     carts,
		orders:    orders,
		purchases: purchases,
	}
}

// NewMerchantUID generates a fresh checkout-attempt correlation key.
func NewMerchantUID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("failed to generate merchant uid: %w", err)
	}
	return "order_" + id.String(), nil
}

// PlaceOrder converts a single-item checkout request into a durable order.
// Reservation, pricing and persistence run in one transaction: a failure
// after the stock decrement rolls the decrement back too.
func (s *service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Summary, error) {
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("service: order quantity must be greater than zero, got %d", in.Quantity)
	}

	merchantUID := in.MerchantUID
	if merchantUID == "" {
		var err error
		merchantUID, err = NewMerchantUID()
		if err != nil {
			return nil, fmt.Errorf("service: %w", err)
		}
	}

	var (
		summary *Summary
		cust    *customer.Customer
		total   decimal.Decimal
	)
	err := s.txr.WithTx(ctx, func(q db.Querier) error {
		var err error
		cust, err = s.customers.FindByEmail(ctx, q, in.Email)
		if err != nil {
			return err
		}

		item, err := s.items.FindByName(ctx, q, in.ItemName)
		if err != nil {
			return err
		}

		o, err := s.assembleOrder(ctx, q, cust, item.ID, merchantUID, in.Quantity, in.Delivery)
		if err != nil {
			return err
		}

		total = o.Total()
		summary = newSummary(o, cust.Name)
		return nil
	})
	if err != nil {
		return nil, wrapPlacementError(err, in.ItemName)
	}

	log.Info().
		Str("merchant_uid", merchantUID).
		Str("email", in.Email).
		Str("item", in.ItemName).
		Int("quantity", in.Quantity).
		Msg("service: order placed")

	s.purchases.Enqueue(cust.ID, total)

	return summary, nil
}

// CheckoutCart drives the assembler once per distinct cart line, producing
// one order per line. Each line commits in its own transaction and its cart
// line is removed within that same commit; a failed line never aborts lines
// already committed earlier in the call.
func (s *service) CheckoutCart(ctx context.Context, in CheckoutCartInput) (*CheckoutResult, error) {
	var (
		cust *customer.Customer
		c    *cart.Cart
	)
	err := s.txr.WithTx(ctx, func(q db.Querier) error {
		var err error
		cust, err = s.customers.FindByEmail(ctx, q, in.Email)
		if err != nil {
			return err
		}
		c, err = s.carts.FindByCustomer(ctx, q, cust.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, customer.ErrCustomerNotFound) || errors.Is(err, cart.ErrCartNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to load cart for checkout: %w", err)
	}
	if len(c.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	result := &CheckoutResult{
		Placed: make([]Summary, 0, len(c.Lines)),
		Failed: make([]LineFailure, 0),
	}

	for _, line := range c.Lines {
		merchantUID, err := NewMerchantUID()
		if err != nil {
			return nil, fmt.Errorf("service: %w", err)
		}

		var (
			summary *Summary
			total   decimal.Decimal
		)
		err = s.txr.WithTx(ctx, func(q db.Querier) error {
			o, err := s.assembleOrder(ctx, q, cust, line.ItemID, merchantUID, line.Quantity, in.Delivery)
			if err != nil {
				return err
			}

			// The cart line disappears in the same commit that makes the
			// order durable, never before.
			if err := s.carts.DeleteLine(ctx, q, c.ID, line.ItemID); err != nil {
				return err
			}

			total = o.Total()
			summary = newSummary(o, cust.Name)
			return nil
		})
		if err != nil {
			log.Warn().
				Err(err).
				Str("email", in.Email).
				Str("item", line.ItemName).
				Int("quantity", line.Quantity).
				Msg("service: cart line checkout failed")
			result.Failed = append(result.Failed, LineFailure{
				ItemName: line.ItemName,
				Quantity: line.Quantity,
				Reason:   failureReason(err),
			})
			continue
		}

		result.Placed = append(result.Placed, *summary)
		s.purchases.Enqueue(cust.ID, total)
	}

	log.Info().
		Str("email", in.Email).
		Int("placed", len(result.Placed)).
		Int("failed", len(result.Failed)).
		Msg("service: cart checkout finished")

	return result, nil
}

// assembleOrder runs reserve → price → persist for one order line inside the
// caller's transaction.
func (s *service) assembleOrder(
	ctx context.Context,
	q db.Querier,
	cust *customer.Customer,
	itemID uuid.UUID,
	merchantUID string,
	quantity int,
	d DeliveryInput,
) (*Order, error) {
	snapshot, err := s.guard.Reserve(ctx, q, itemID, quantity)
	if err != nil {
		return nil, err
	}

	unitPrice := pricing.UnitPrice(snapshot.Price, cust.Membership.DiscountRate)
	lineTotal := pricing.LineTotal(snapshot.Price, cust.Membership.DiscountRate, quantity)

	o := &Order{
		MerchantUID: merchantUID,
		CustomerID:  cust.ID,
		Status:      StatusOrder,
		Delivery: Delivery{
			RecipientName: d.RecipientName,
			RecipientTel:  d.RecipientTel,
			Address:       d.Address,
			Status:        DeliveryStatusReady,
		},
		Lines: []Line{
			{
				ItemID:    snapshot.ID,
				ItemName:  snapshot.Name,
				Quantity:  quantity,
				UnitPrice: unitPrice,
				LineTotal: lineTotal,
			},
		},
	}

	if err := s.orders.Create(ctx, q, o); err != nil {
		return nil, err
	}

	return o, nil
}

// UpdateDelivery overwrites the shipping target of a not-yet-dispatched
// order. Lines and order status are untouched.
func (s *service) UpdateDelivery(ctx context.Context, merchantUID string, d DeliveryInput) (*Summary, error) {
	var summary *Summary
	err := s.txr.WithTx(ctx, func(q db.Querier) error {
		o, err := s.orders.GetByMerchantUID(ctx, q, merchantUID)
		if err != nil {
			return err
		}

		if o.Delivery.Status != DeliveryStatusReady {
			return ErrAlreadyDispatched
		}

		upd := Delivery{
			RecipientName: d.RecipientName,
			RecipientTel:  d.RecipientTel,
			Address:       d.Address,
		}
		if err := s.orders.UpdateDelivery(ctx, q, o.ID, upd); err != nil {
			return err
		}

		o.Delivery.RecipientName = upd.RecipientName
		o.Delivery.RecipientTel = upd.RecipientTel
		o.Delivery.Address = upd.Address

		cust, err := s.customers.FindByID(ctx, q, o.CustomerID)
		if err != nil {
			return err
		}

		summary = newSummary(o, cust.Name)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrAlreadyDispatched) {
			return nil, err
		}
		log.Error().Err(err).Str("merchant_uid", merchantUID).Msg("service: failed to update delivery")
		return nil, fmt.Errorf("service: failed to update delivery: %w", err)
	}

	return summary, nil
}

func (s *service) GetOrder(ctx context.Context, merchantUID string) (*Summary, error) {
	var summary *Summary
	err := s.txr.WithTx(ctx, func(q db.Querier) error {
		o, err := s.orders.GetByMerchantUID(ctx, q, merchantUID)
		if err != nil {
			return err
		}

		cust, err := s.customers.FindByID(ctx, q, o.CustomerID)
		if err != nil {
			return err
		}

		summary = newSummary(o, cust.Name)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}

	return summary, nil
}

func (s *service) ListOrders(ctx context.Context, email string) ([]Summary, error) {
	var summaries []Summary
	err := s.txr.WithTx(ctx, func(q db.Querier) error {
		cust, err := s.customers.FindByEmail(ctx, q, email)
		if err != nil {
			return err
		}

		orders, err := s.orders.ListByCustomer(ctx, q, cust.ID)
		if err != nil {
			return err
		}

		summaries = make([]Summary, 0, len(orders))
		for i := range orders {
			summaries = append(summaries, *newSummary(&orders[i], cust.Name))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, customer.ErrCustomerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}

	return summaries, nil
}

func wrapPlacementError(err error, itemName string) error {
	switch {
	case errors.Is(err, customer.ErrCustomerNotFound),
		errors.Is(err, catalog.ErrItemNotFound),
		errors.Is(err, stock.ErrNotEnoughStock):
		return err
	default:
		log.Error().Err(err).Str("item", itemName).Msg("service: failed to place order")
		return fmt.Errorf("service: failed to place order: %w", err)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, stock.ErrNotEnoughStock):
		return "not enough stock"
	case errors.Is(err, catalog.ErrItemNotFound):
		return "item not found"
	default:
		return "internal error"
	}
}
