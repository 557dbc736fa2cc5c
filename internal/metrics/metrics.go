package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OrdersPlaced       prometheus.Counter
	OrdersCancelled    prometheus.Counter
	StockConflicts     prometheus.Counter
	PaymentsVerified   prometheus.Counter
	PaymentMismatches  prometheus.Counter
	AccumulatorDropped prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "orders_placed_total",
			Help:      "Total number of successfully placed orders.",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "orders_cancelled_total",
			Help:      "Total number of cancelled orders.",
		}),
		StockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "stock_conflicts_total",
			Help:      "Total number of placements rejected for insufficient stock.",
		}),
		PaymentsVerified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "payments_verified_total",
			Help:      "Total number of successfully verified payments.",
		}),
		PaymentMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "payment_mismatches_total",
			Help:      "Total number of payments cancelled for an amount mismatch.",
		}),
		AccumulatorDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "purchase_events_dropped_total",
			Help:      "Total number of purchase events dropped on a full queue.",
		}),
	}

	reg.MustRegister(
		m.OrdersPlaced,
		m.OrdersCancelled,
		m.StockConflicts,
		m.PaymentsVerified,
		m.PaymentMismatches,
		m.AccumulatorDropped,
	)
	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}
