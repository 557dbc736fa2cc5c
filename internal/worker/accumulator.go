// Package worker runs best-effort background tasks dispatched off the order
// placement path.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront-service/internal/db"
)

// PurchaseEvent is one append-only "purchase completed" fact.
type PurchaseEvent struct {
	CustomerID uuid.UUID
	Amount     decimal.Decimal
}

// CustomerAccumulator is the single write the worker performs.
type CustomerAccumulator interface {
	AddMonthlyPurchase(ctx context.Context, q db.Querier, customerID uuid.UUID, amount decimal.Decimal) error
}

// Accumulator maintains customers' running monthly purchase totals from a
// bounded queue. Enqueue never blocks: when the queue is full the event is
// dropped and counted, and the triggering order is unaffected. Worker
// failures are logged, never retried.
type Accumulator struct {
	tasks     chan PurchaseEvent
	pool      db.Querier
	customers CustomerAccumulator
	dropped   prometheus.Counter
	wg        sync.WaitGroup
}

func NewAccumulator(pool db.Querier, customers CustomerAccumulator, queueSize int, dropped prometheus.Counter) *Accumulator {
	return &Accumulator{
		tasks:     make(chan PurchaseEvent, queueSize),
		pool:      pool,
		customers: customers,
		dropped:   dropped,
	}
}

// Start launches the worker pool. Workers exit when the queue is closed by
// Stop and fully drained.
func (a *Accumulator) Start(workers int) {
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.run()
	}
}

// Stop closes the queue and waits for the remaining events to be processed.
// Enqueue must not be called after Stop.
func (a *Accumulator) Stop() {
	close(a.tasks)
	a.wg.Wait()
}

func (a *Accumulator) Enqueue(customerID uuid.UUID, amount decimal.Decimal) {
	select {
	case a.tasks <- PurchaseEvent{CustomerID: customerID, Amount: amount}:
	default:
		a.dropped.Inc()
		log.Warn().
			Stringer("customer_id", customerID).
			Str("amount", amount.String()).
			Msg("worker: purchase event dropped, queue is full")
	}
}

func (a *Accumulator) run() {
	defer a.wg.Done()

	for ev := range a.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := a.customers.AddMonthlyPurchase(ctx, a.pool, ev.CustomerID, ev.Amount)
		cancel()
		if err != nil {
			log.Error().
				Err(err).
				Stringer("customer_id", ev.CustomerID).
				Str("amount", ev.Amount.String()).
				Msg("worker: failed to accumulate purchase amount")
		}
	}
}
