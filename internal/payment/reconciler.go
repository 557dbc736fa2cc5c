// Package payment reconciles the local order ledger against the external
// payment gateway's authoritative record.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront-service/internal/db"
	"github.com/vasiliy-maslov/storefront-service/internal/order"
)

// Reconciler performs pre-payment validation, post-payment amount
// verification with compensating cancellation on mismatch, and
// customer-initiated cancellation with restock.
type Reconciler struct {
	pool    db.Querier
	txr     db.TxRunner
	orders  order.Repository
	guard   order.StockGuard
	gateway Gateway
}

func NewReconciler(pool db.Querier, txr db.TxRunner, orders order.Repository, guard order.StockGuard, gateway Gateway) *Reconciler {
	return &Reconciler{
		pool:    pool,
		txr:     txr,
		orders:  orders,
		guard:   guard,
		gateway: gateway,
	}
}

// PreparePayment registers the expected amount with the gateway so the
// client-submitted payment can be validated against it. A gateway rejection
// comes back as ErrPrepareFailed; I/O failures propagate as they are.
func (r *Reconciler) PreparePayment(ctx context.Context, merchantUID string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("reconciler: prepare amount must be positive, got %s", amount)
	}

	if err := r.gateway.Prepare(ctx, merchantUID, amount); err != nil {
		log.Warn().Err(err).Str("merchant_uid", merchantUID).Msg("reconciler: payment prepare failed")
		return err
	}

	log.Info().Str("merchant_uid", merchantUID).Str("amount", amount.String()).Msg("reconciler: payment prepared")
	return nil
}

// PostVerifyPayment confirms the gateway's recorded paid amount matches the
// order's expected total. On mismatch it first issues a full compensating
// cancellation against the gateway and only then fails with
// ErrWrongPaymentAmount, leaving the order without a payment id. The gateway
// read happens outside any database transaction so gateway latency never
// holds a lock.
func (r *Reconciler) PostVerifyPayment(ctx context.Context, merchantUID, impUID string) error {
	count, err := r.orders.CountByMerchantUID(ctx, r.pool, merchantUID)
	if err != nil {
		return fmt.Errorf("reconciler: failed to count orders for %s: %w", merchantUID, err)
	}
	if count >= 2 {
		log.Error().Str("merchant_uid", merchantUID).Int("count", count).Msg("reconciler: merchant uid collision detected")
		return order.ErrDuplicateMerchantUID
	}

	o, err := r.orders.GetByMerchantUID(ctx, r.pool, merchantUID)
	if err != nil {
		return err
	}

	expected := o.Total()

	paid, err := r.gateway.PaymentByImpUID(ctx, impUID)
	if err != nil {
		return fmt.Errorf("reconciler: failed to fetch gateway payment %s: %w", impUID, err)
	}

	if !paid.Amount.Equal(expected) {
		log.Warn().
			Str("merchant_uid", merchantUID).
			Str("imp_uid", impUID).
			Str("expected", expected.String()).
			Str("paid", paid.Amount.String()).
			Msg("reconciler: paid amount mismatch, cancelling payment")

		if cancelErr := r.gateway.CancelByImpUID(ctx, impUID, true, decimal.Zero); cancelErr != nil {
			// The payment stands on the gateway side; nothing local changed.
			return fmt.Errorf("reconciler: failed to cancel mismatched payment %s: %w", impUID, cancelErr)
		}
		return fmt.Errorf("%w: expected %s, paid %s", ErrWrongPaymentAmount, expected, paid.Amount)
	}

	if err := r.orders.SetPaymentID(ctx, r.pool, o.ID, impUID); err != nil {
		return err
	}

	log.Info().Str("merchant_uid", merchantUID).Str("imp_uid", impUID).Msg("reconciler: payment verified")
	return nil
}

// CancelOrder cancels the order lines referenced by item name: it refunds
// through the gateway (a full-refund sentinel when the request covers every
// line, a computed partial amount per line otherwise), marks the order
// CANCEL and restocks exactly the quantities originally reserved. An order
// that was never verified has nothing to refund, so the gateway call is
// skipped. A second cancellation of the same order is rejected before any
// mutation.
func (r *Reconciler) CancelOrder(ctx context.Context, merchantUID string, itemNames []string) error {
	if len(itemNames) == 0 {
		return fmt.Errorf("reconciler: cancellation requires at least one item")
	}

	err := r.txr.WithTx(ctx, func(q db.Querier) error {
		o, err := r.orders.GetByMerchantUID(ctx, q, merchantUID)
		if err != nil {
			return err
		}

		if o.Status == order.StatusCancel {
			return order.ErrOrderAlreadyCancelled
		}

		lines := make([]*order.Line, 0, len(itemNames))
		for _, name := range itemNames {
			line, ok := o.LineByItemName(name)
			if !ok {
				return fmt.Errorf("%w: %s", order.ErrOrderItemNotFound, name)
			}
			lines = append(lines, line)
		}

		// Gateway refunds go out before any row lock is taken, so gateway
		// latency never holds inventory. A failure here rolls the whole
		// cancellation back and propagates untouched: the gateway call is
		// the unit of truth and no compensation for it is possible.
		if o.ImpUID != nil {
			if len(lines) == len(o.Lines) {
				if err := r.gateway.CancelByImpUID(ctx, *o.ImpUID, true, decimal.Zero); err != nil {
					return err
				}
			} else {
				for _, line := range lines {
					if err := r.gateway.CancelByImpUID(ctx, *o.ImpUID, false, line.LineTotal); err != nil {
						return err
					}
				}
			}
		}

		if err := r.orders.UpdateStatus(ctx, q, o.ID, order.StatusCancel); err != nil {
			return err
		}

		for _, line := range lines {
			if err := r.guard.Release(ctx, q, line.ItemID, line.Quantity); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) ||
			errors.Is(err, order.ErrOrderItemNotFound) ||
			errors.Is(err, order.ErrOrderAlreadyCancelled) {
			return err
		}
		log.Error().Err(err).Str("merchant_uid", merchantUID).Msg("reconciler: order cancellation failed")
		return err
	}

	log.Info().Str("merchant_uid", merchantUID).Strs("items", itemNames).Msg("reconciler: order cancelled")
	return nil
}
