package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"subsync/internal/core"
	"subsync/internal/types"
)

// SubscriptionReader provides the read access the entitlement handler needs.
// Satisfied by *db.SubscriptionRepo.
type SubscriptionReader interface {
	HasActiveSubscription(ctx context.Context, accountID string) (bool, error)
	GetByAccountID(ctx context.Context, accountID string) (*types.SubscriptionRecord, error)
}

// EntitlementHandler answers the access question for an account: does the
// locally projected subscription state currently grant access.
type EntitlementHandler struct {
	subs   SubscriptionReader
	logger *slog.Logger
}

// NewEntitlementHandler creates an EntitlementHandler.
func NewEntitlementHandler(subs SubscriptionReader, logger *slog.Logger) *EntitlementHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EntitlementHandler{subs: subs, logger: logger}
}

// RegisterRoutes mounts the entitlement endpoints.
func (h *EntitlementHandler) RegisterRoutes(r chi.Router) {
	r.Get("/accounts/{accountID}/entitlement", h.GetEntitlement)
	r.Get("/accounts/{accountID}/subscription", h.GetSubscription)
}

// GetEntitlement reports whether the account has an active subscription.
// The answer comes from local state only; Stripe is never consulted on
// this path.
func (h *EntitlementHandler) GetEntitlement(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if accountID == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"missing account ID in path",
			nil,
		))
		return
	}

	active, err := h.subs.HasActiveSubscription(r.Context(), accountID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "entitlement lookup failed",
			"account_id", accountID,
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: types.Entitlement{AccountID: accountID, Active: active},
	})
}

// GetSubscription returns the projected subscription record for an account.
// Responds 404 when no subscription has ever been projected for the account.
func (h *EntitlementHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if accountID == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"missing account ID in path",
			nil,
		))
		return
	}

	sub, err := h.subs.GetByAccountID(r.Context(), accountID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: sub})
}
