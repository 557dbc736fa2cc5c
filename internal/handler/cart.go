package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront-service/internal/cart"
)

type AddCartLineRequest struct {
	Email    string `json:"email" validate:"required,email"`
	ItemName string `json:"item_name" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

type CartHandler struct {
	svc      cart.Service
	validate *validator.Validate
}

func NewCartHandler(svc cart.Service) *CartHandler {
	return &CartHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Post("/cart/lines", h.handleAddLine)
	router.Get("/customers/{email}/cart", h.handleGetCart)
}

func (h *CartHandler) handleAddLine(w http.ResponseWriter, r *http.Request) {
	var req AddCartLineRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	c, err := h.svc.AddLine(r.Context(), req.Email, req.ItemName, req.Quantity)
	if err != nil {
		log.Warn().Err(err).Str("email", req.Email).Str("item", req.ItemName).Msg("Failed to add cart line")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, c)
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if email == "" {
		respondWithError(w, http.StatusBadRequest, "email is required")
		return
	}

	c, err := h.svc.GetCart(r.Context(), email)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}
