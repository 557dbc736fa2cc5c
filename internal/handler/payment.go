package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront-service/internal/metrics"
	"github.com/vasiliy-maslov/storefront-service/internal/payment"
)

type PreparePaymentRequest struct {
	MerchantUID string          `json:"merchant_uid" validate:"required,min=8"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
}

type VerifyPaymentRequest struct {
	MerchantUID string `json:"merchant_uid" validate:"required,min=8"`
	ImpUID      string `json:"imp_uid" validate:"required"`
}

type CancelOrderRequest struct {
	ItemNames []string `json:"item_names" validate:"required,min=1,dive,required"`
}

// PaymentHandler handles HTTP requests for payment reconciliation.
type PaymentHandler struct {
	reconciler *payment.Reconciler
	metrics    *metrics.Metrics
	validate   *validator.Validate
}

func NewPaymentHandler(reconciler *payment.Reconciler, m *metrics.Metrics) *PaymentHandler {
	return &PaymentHandler{
		reconciler: reconciler,
		metrics:    m,
		validate:   validator.New(),
	}
}

func (h *PaymentHandler) RegisterRoutes(router chi.Router) {
	router.Post("/payments/prepare", h.handlePrepare)
	router.Post("/payments/verify", h.handleVerify)
	router.Post("/orders/{merchantUID}/cancel", h.handleCancel)
}

func (h *PaymentHandler) handlePrepare(w http.ResponseWriter, r *http.Request) {
	var req PreparePaymentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if err := h.reconciler.PreparePayment(r.Context(), req.MerchantUID, req.Amount); err != nil {
		log.Warn().Err(err).Str("merchant_uid", req.MerchantUID).Msg("Failed to prepare payment")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"merchant_uid": req.MerchantUID})
}

func (h *PaymentHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if err := h.reconciler.PostVerifyPayment(r.Context(), req.MerchantUID, req.ImpUID); err != nil {
		if errors.Is(err, payment.ErrWrongPaymentAmount) {
			h.metrics.PaymentMismatches.Inc()
		}
		log.Warn().Err(err).Str("merchant_uid", req.MerchantUID).Str("imp_uid", req.ImpUID).Msg("Payment verification failed")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	h.metrics.PaymentsVerified.Inc()
	respondWithJSON(w, http.StatusOK, map[string]string{
		"merchant_uid": req.MerchantUID,
		"imp_uid":      req.ImpUID,
	})
}

func (h *PaymentHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	merchantUID := chi.URLParam(r, "merchantUID")
	if merchantUID == "" {
		respondWithError(w, http.StatusBadRequest, "merchant uid is required")
		return
	}

	var req CancelOrderRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if err := h.reconciler.CancelOrder(r.Context(), merchantUID, req.ItemNames); err != nil {
		log.Warn().Err(err).Str("merchant_uid", merchantUID).Msg("Failed to cancel order")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	h.metrics.OrdersCancelled.Inc()
	respondWithJSON(w, http.StatusOK, map[string]string{"merchant_uid": merchantUID, "status": "CANCEL"})
}
