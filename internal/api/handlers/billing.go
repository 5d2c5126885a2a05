package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"subsync/internal/core"
	"subsync/internal/external"
)

// CreateCheckoutRequest is the request body for POST /v1/billing/checkout-session.
//
// Success and cancel URLs are deliberately not accepted from the client;
// they are constructed server-side from the configured dashboard URL to
// prevent open redirects.
type CreateCheckoutRequest struct {
	AccountID string `json:"account_id" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
}

// CheckoutResponse is the response for POST /v1/billing/checkout-session.
type CheckoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// BillingHandler handles synchronous billing actions initiated by the user.
type BillingHandler struct {
	checkout  external.CheckoutService
	validator *core.Validator
	logger    *slog.Logger
}

// NewBillingHandler creates a BillingHandler with the provided dependencies.
func NewBillingHandler(checkout external.CheckoutService, v *core.Validator, logger *slog.Logger) *BillingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingHandler{
		checkout:  checkout,
		validator: v,
		logger:    logger,
	}
}

// RegisterRoutes mounts the billing endpoints.
func (h *BillingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/billing/checkout-session", h.CreateCheckoutSession)
}

// CreateCheckoutSession starts a hosted checkout flow for the given account.
// The account reference is planted in the subscription metadata so that every
// later webhook event can be attributed back to the account.
func (h *BillingHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req CreateCheckoutRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	session, err := h.checkout.StartCheckout(r.Context(), req.AccountID, req.Email)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create checkout session",
			"account_id", req.AccountID,
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "checkout session created",
		"account_id", req.AccountID,
		"session_id", session.SessionID,
	)

	core.JSON(w, r, http.StatusCreated, core.APIResponse{
		Data: CheckoutResponse{
			SessionID:   session.SessionID,
			CheckoutURL: session.CheckoutURL,
		},
	})
}
