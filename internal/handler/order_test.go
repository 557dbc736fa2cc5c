package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront-service/internal/metrics"
	"github.com/vasiliy-maslov/storefront-service/internal/order"
	"github.com/vasiliy-maslov/storefront-service/internal/stock"
)

type mockOrderService struct {
	PlaceOrderFunc     func(ctx context.Context, in order.PlaceOrderInput) (*order.Summary, error)
	CheckoutCartFunc   func(ctx context.Context, in order.CheckoutCartInput) (*order.CheckoutResult, error)
	UpdateDeliveryFunc func(ctx context.Context, merchantUID string, d order.DeliveryInput) (*order.Summary, error)
	GetOrderFunc       func(ctx context.Context, merchantUID string) (*order.Summary, error)
	ListOrdersFunc     func(ctx context.Context, email string) ([]order.Summary, error)
}

func (m *mockOrderService) PlaceOrder(ctx context.Context, in order.PlaceOrderInput) (*order.Summary, error) {
	return m.PlaceOrderFunc(ctx, in)
}

func (m *mockOrderService) CheckoutCart(ctx context.Context, in order.CheckoutCartInput) (*order.CheckoutResult, error) {
	return m.CheckoutCartFunc(ctx, in)
}

func (m *mockOrderService) UpdateDelivery(ctx context.Context, merchantUID string, d order.DeliveryInput) (*order.Summary, error) {
	return m.UpdateDeliveryFunc(ctx, merchantUID, d)
}

func (m *mockOrderService) GetOrder(ctx context.Context, merchantUID string) (*order.Summary, error) {
	return m.GetOrderFunc(ctx, merchantUID)
}

func (m *mockOrderService) ListOrders(ctx context.Context, email string) ([]order.Summary, error) {
	return m.ListOrdersFunc(ctx, email)
}

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

func testSummary() *order.Summary {
	return &order.Summary{
		MerchantUID:    "order_550e8400",
		CustomerName:   "Vasiliy",
		RecipientName:  "Ivan Petrov",
		Address:        "Moscow, Tverskaya 1",
		Status:         order.StatusOrder,
		DeliveryStatus: order.DeliveryStatusReady,
		Lines: []order.LineSummary{
			{
				ItemName:  "keyboard",
				Quantity:  3,
				UnitPrice: decimal.RequireFromString("9000"),
				LineTotal: decimal.RequireFromString("27000"),
			},
		},
		Total: decimal.RequireFromString("27000"),
	}
}

const placeOrderBody = `{
	"email": "buyer@example.com",
	"item_name": "keyboard",
	"quantity": 3,
	"delivery": {
		"recipient_name": "Ivan Petrov",
		"recipient_tel": "+79001234567",
		"address": "Moscow, Tverskaya 1"
	}
}`

func TestOrderHandler_PlaceOrder(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		placeOrder     func(ctx context.Context, in order.PlaceOrderInput) (*order.Summary, error)
		expectedStatus int
	}{
		{
			name: "success",
			body: placeOrderBody,
			placeOrder: func(ctx context.Context, in order.PlaceOrderInput) (*order.Summary, error) {
				return testSummary(), nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "not_enough_stock",
			body: placeOrderBody,
			placeOrder: func(ctx context.Context, in order.PlaceOrderInput) (*order.Summary, error) {
				return nil, stock.ErrNotEnoughStock
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "invalid_json",
			body:           `{invalid json}`,
			placeOrder:     nil,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing_delivery",
			body: `{
				"email": "buyer@example.com",
				"item_name": "keyboard",
				"quantity": 3
			}`,
			placeOrder:     nil,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "zero_quantity",
			body: `{
				"email": "buyer@example.com",
				"item_name": "keyboard",
				"quantity": 0,
				"delivery": {
					"recipient_name": "Ivan Petrov",
					"recipient_tel": "+79001234567",
					"address": "Moscow, Tverskaya 1"
				}
			}`,
			placeOrder:     nil,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := &mockOrderService{PlaceOrderFunc: tt.placeOrder}

			handler := NewOrderHandler(mockSvc, testMetrics())
			r := chi.NewRouter()
			handler.RegisterRoutes(r)

			req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusCreated {
				var got order.Summary
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, "order_550e8400", got.MerchantUID)
				assert.True(t, decimal.RequireFromString("27000").Equal(got.Total))
			}
		})
	}
}

func TestOrderHandler_CheckoutCart(t *testing.T) {
	body := `{
		"email": "buyer@example.com",
		"delivery": {
			"recipient_name": "Ivan Petrov",
			"recipient_tel": "+79001234567",
			"address": "Moscow, Tverskaya 1"
		}
	}`

	tests := []struct {
		name           string
		checkoutCart   func(ctx context.Context, in order.CheckoutCartInput) (*order.CheckoutResult, error)
		expectedStatus int
	}{
		{
			name: "all_lines_placed",
			checkoutCart: func(ctx context.Context, in order.CheckoutCartInput) (*order.CheckoutResult, error) {
				return &order.CheckoutResult{
					Placed: []order.Summary{*testSummary()},
					Failed: []order.LineFailure{},
				}, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "partial_success",
			checkoutCart: func(ctx context.Context, in order.CheckoutCartInput) (*order.CheckoutResult, error) {
				return &order.CheckoutResult{
					Placed: []order.Summary{*testSummary()},
					Failed: []order.LineFailure{
						{ItemName: "mouse", Quantity: 2, Reason: "not enough stock"},
					},
				}, nil
			},
			expectedStatus: http.StatusMultiStatus,
		},
		{
			name: "empty_cart",
			checkoutCart: func(ctx context.Context, in order.CheckoutCartInput) (*order.CheckoutResult, error) {
				return nil, order.ErrEmptyCart
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := &mockOrderService{CheckoutCartFunc: tt.checkoutCart}

			handler := NewOrderHandler(mockSvc, testMetrics())
			r := chi.NewRouter()
			handler.RegisterRoutes(r)

			req := httptest.NewRequest(http.MethodPost, "/orders/checkout", bytes.NewBufferString(body))
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestOrderHandler_GetOrder(t *testing.T) {
	tests := []struct {
		name           string
		merchantUID    string
		getOrder       func(ctx context.Context, merchantUID string) (*order.Summary, error)
		expectedStatus int
	}{
		{
			name:        "success",
			merchantUID: "order_550e8400",
			getOrder: func(ctx context.Context, merchantUID string) (*order.Summary, error) {
				return testSummary(), nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:        "not_found",
			merchantUID: "order_missing1",
			getOrder: func(ctx context.Context, merchantUID string) (*order.Summary, error) {
				return nil, order.ErrOrderNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := &mockOrderService{GetOrderFunc: tt.getOrder}

			handler := NewOrderHandler(mockSvc, testMetrics())
			r := chi.NewRouter()
			handler.RegisterRoutes(r)

			req := httptest.NewRequest(http.MethodGet, "/orders/"+tt.merchantUID, nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestOrderHandler_UpdateDelivery(t *testing.T) {
	body := `{
		"delivery": {
			"recipient_name": "Ivan Petrov",
			"recipient_tel": "+79001234567",
			"address": "Moscow, Tverskaya 1"
		}
	}`

	tests := []struct {
		name           string
		updateDelivery func(ctx context.Context, merchantUID string, d order.DeliveryInput) (*order.Summary, error)
		expectedStatus int
	}{
		{
			name: "success",
			updateDelivery: func(ctx context.Context, merchantUID string, d order.DeliveryInput) (*order.Summary, error) {
				return testSummary(), nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "already_dispatched",
			updateDelivery: func(ctx context.Context, merchantUID string, d order.DeliveryInput) (*order.Summary, error) {
				return nil, order.ErrAlreadyDispatched
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := &mockOrderService{UpdateDeliveryFunc: tt.updateDelivery}

			handler := NewOrderHandler(mockSvc, testMetrics())
			r := chi.NewRouter()
			handler.RegisterRoutes(r)

			req := httptest.NewRequest(http.MethodPatch, "/orders/order_550e8400/delivery", bytes.NewBufferString(body))
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}
