package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront-service/internal/metrics"
	"github.com/vasiliy-maslov/storefront-service/internal/order"
	"github.com/vasiliy-maslov/storefront-service/internal/stock"
)

type DeliveryPayload struct {
	RecipientName string `json:"recipient_name" validate:"required,min=2"`
	RecipientTel  string `json:"recipient_tel" validate:"required,min=7"`
	Address       string `json:"address" validate:"required,min=5"`
}

type PlaceOrderRequest struct {
	Email       string          `json:"email" validate:"required,email"`
	MerchantUID string          `json:"merchant_uid" validate:"omitempty,min=8"`
	ItemName    string          `json:"item_name" validate:"required"`
	Quantity    int             `json:"quantity" validate:"required,gt=0"`
	Delivery    DeliveryPayload `json:"delivery" validate:"required"`
}

type CheckoutCartRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Delivery DeliveryPayload `json:"delivery" validate:"required"`
}

type UpdateDeliveryRequest struct {
	Delivery DeliveryPayload `json:"delivery" validate:"required"`
}

// OrderHandler handles HTTP requests for order placement and lookup.
type OrderHandler struct {
	svc      order.Service
	metrics  *metrics.Metrics
	validate *validator.Validate
}

func NewOrderHandler(svc order.Service, m *metrics.Metrics) *OrderHandler {
	return &OrderHandler{
		svc:      svc,
		metrics:  m,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders", h.handlePlaceOrder)
	router.Post("/orders/checkout", h.handleCheckoutCart)
	router.Get("/orders/{merchantUID}", h.handleGetOrder)
	router.Patch("/orders/{merchantUID}/delivery", h.handleUpdateDelivery)
	router.Get("/customers/{email}/orders", h.handleListOrders)
}

func (h *OrderHandler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	summary, err := h.svc.PlaceOrder(r.Context(), order.PlaceOrderInput{
		Email:       req.Email,
		MerchantUID: req.MerchantUID,
		ItemName:    req.ItemName,
		Quantity:    req.Quantity,
		Delivery:    deliveryInput(req.Delivery),
	})
	if err != nil {
		if errors.Is(err, stock.ErrNotEnoughStock) {
			h.metrics.StockConflicts.Inc()
		}
		log.Warn().Err(err).Str("item", req.ItemName).Msg("Failed to place order")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	h.metrics.OrdersPlaced.Inc()
	respondWithJSON(w, http.StatusCreated, summary)
}

func (h *OrderHandler) handleCheckoutCart(w http.ResponseWriter, r *http.Request) {
	var req CheckoutCartRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	result, err := h.svc.CheckoutCart(r.Context(), order.CheckoutCartInput{
		Email:    req.Email,
		Delivery: deliveryInput(req.Delivery),
	})
	if err != nil {
		log.Warn().Err(err).Str("email", req.Email).Msg("Failed to checkout cart")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	h.metrics.OrdersPlaced.Add(float64(len(result.Placed)))
	for _, f := range result.Failed {
		if f.Reason == "not enough stock" {
			h.metrics.StockConflicts.Inc()
		}
	}

	status := http.StatusCreated
	if len(result.Failed) > 0 {
		// Partial success: some lines were placed, some were not.
		status = http.StatusMultiStatus
	}
	respondWithJSON(w, status, result)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	merchantUID := chi.URLParam(r, "merchantUID")
	if merchantUID == "" {
		respondWithError(w, http.StatusBadRequest, "merchant uid is required")
		return
	}

	summary, err := h.svc.GetOrder(r.Context(), merchantUID)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

func (h *OrderHandler) handleUpdateDelivery(w http.ResponseWriter, r *http.Request) {
	merchantUID := chi.URLParam(r, "merchantUID")
	if merchantUID == "" {
		respondWithError(w, http.StatusBadRequest, "merchant uid is required")
		return
	}

	var req UpdateDeliveryRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	summary, err := h.svc.UpdateDelivery(r.Context(), merchantUID, deliveryInput(req.Delivery))
	if err != nil {
		log.Warn().Err(err).Str("merchant_uid", merchantUID).Msg("Failed to update delivery")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if email == "" {
		respondWithError(w, http.StatusBadRequest, "email is required")
		return
	}

	summaries, err := h.svc.ListOrders(r.Context(), email)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, summaries)
}

func deliveryInput(p DeliveryPayload) order.DeliveryInput {
	return order.DeliveryInput{
		RecipientName: p.RecipientName,
		RecipientTel:  p.RecipientTel,
		Address:       p.Address,
	}
}
