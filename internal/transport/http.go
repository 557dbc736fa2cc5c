package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vasiliy-maslov/storefront-service/internal/cart"
	"github.com/vasiliy-maslov/storefront-service/internal/catalog"
	"github.com/vasiliy-maslov/storefront-service/internal/customer"
	"github.com/vasiliy-maslov/storefront-service/internal/db"
	"github.com/vasiliy-maslov/storefront-service/internal/handler"
	"github.com/vasiliy-maslov/storefront-service/internal/metrics"
	"github.com/vasiliy-maslov/storefront-service/internal/order"
	"github.com/vasiliy-maslov/storefront-service/internal/payment"
	"github.com/vasiliy-maslov/storefront-service/internal/stock"
)

// NewRouter wires repositories, services and handlers onto a chi mux. The
// gateway and purchase recorder are injected because their lifecycles belong
// to main.
func NewRouter(pg *db.Postgres, gateway payment.Gateway, purchases order.PurchaseRecorder, m *metrics.Metrics) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	customers := customer.NewRepository()
	items := catalog.NewRepository()
	carts := cart.NewRepository()
	orders := order.NewRepository()
	guard := stock.NewGuard(items)

	orderSvc := order.NewService(pg, customers, items, guard, carts, orders, purchases)
	cartSvc := cart.NewService(pg, customers, items, carts)
	reconciler := payment.NewReconciler(pg.Pool, pg, orders, guard, gateway)

	handler.NewOrderHandler(orderSvc, m).RegisterRoutes(r)
	handler.NewCartHandler(cartSvc).RegisterRoutes(r)
	handler.NewPaymentHandler(reconciler, m).RegisterRoutes(r)

	return r
}
