// Package handlers contains the HTTP handler implementations for the
// subsync API.
//
// The webhook handler is NOT behind auth middleware; it is called directly
// by Stripe. Security comes from verifying the Stripe-Signature header.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"subsync/internal/billing"
	"subsync/internal/core"
	"subsync/internal/external"
	"subsync/internal/types"
)

// maxWebhookBodySize caps Stripe webhook payloads at 64 KB. Real payloads
// are far smaller; the limit protects against abuse.
const maxWebhookBodySize = 64 * 1024

// EventDispatcher routes a verified webhook event into the projection
// pipeline. Satisfied by *billing.Dispatcher.
type EventDispatcher interface {
	Dispatch(ctx context.Context, evt *billing.Event) (billing.DispatchOutcome, error)
}

// webhookReceipt is the acknowledgement body returned to Stripe.
type webhookReceipt struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}

// StripeWebhookHandler receives asynchronous billing events from Stripe,
// verifies their signatures, and hands them to the dispatcher.
//
// Response codes drive Stripe's redelivery behavior:
//   - 200: event consumed (applied, stale, ignored, or unprocessable in a
//     way a retry cannot fix).
//   - 400: signature or payload failure; redelivery of the same bytes
//     would fail identically but the failure is the sender's problem.
//   - 500: storage failure; Stripe retries and the event is not lost.
type StripeWebhookHandler struct {
	verifier   external.WebhookVerifier
	dispatcher EventDispatcher
	secret     string
	logger     *slog.Logger
}

// NewStripeWebhookHandler creates the webhook handler. The secret is the
// endpoint signing secret from the Stripe dashboard.
func NewStripeWebhookHandler(
	verifier external.WebhookVerifier,
	dispatcher EventDispatcher,
	secret string,
	logger *slog.Logger,
) *StripeWebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeWebhookHandler{
		verifier:   verifier,
		dispatcher: dispatcher,
		secret:     secret,
		logger:     logger,
	}
}

// RegisterRoutes mounts the webhook endpoint. Kept separate from the
// authenticated billing routes because this endpoint is public.
func (h *StripeWebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/stripe", h.Handle)
}

// Handle processes an incoming Stripe webhook delivery.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WarnContext(r.Context(), "failed to read webhook body", "error", err)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationBodyTooLarge,
			"failed to read request body",
			err,
		))
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		h.logger.WarnContext(r.Context(), "missing Stripe-Signature header")
		core.Error(w, r, types.NewAppError(
			types.ErrCodeWebhookSignatureMismatch,
			"missing Stripe-Signature header",
			nil,
		))
		return
	}

	if err := h.verifier.Verify(payload, sigHeader, h.secret); err != nil {
		code := types.ErrCodeWebhookSignatureMismatch
		message := "webhook signature verification failed"

		var verr *external.VerificationError
		if errors.As(err, &verr) && verr.Reason == external.ReasonStaleTimestamp {
			code = types.ErrCodeWebhookStaleTimestamp
			message = "webhook signature timestamp outside tolerance"
		}

		h.logger.WarnContext(r.Context(), "webhook verification failed",
			"error", err,
			"code", code,
		)
		core.Error(w, r, types.NewAppError(code, message, err))
		return
	}

	var event billing.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.WarnContext(r.Context(), "failed to parse webhook event", "error", err)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeWebhookMalformedEvent,
			"invalid webhook event JSON",
			err,
		))
		return
	}

	h.logger.InfoContext(r.Context(), "processing stripe webhook event",
		"event_id", event.ID,
		"event_type", event.Type,
	)

	outcome, err := h.dispatcher.Dispatch(r.Context(), &event)
	if err != nil {
		h.respondDispatchError(w, r, &event, err)
		return
	}

	core.JSON(w, r, http.StatusOK, webhookReceipt{Received: true, Outcome: string(outcome)})
}

// respondDispatchError maps pipeline errors onto the redelivery contract.
func (h *StripeWebhookHandler) respondDispatchError(w http.ResponseWriter, r *http.Request, event *billing.Event, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		switch {
		case strings.HasPrefix(string(appErr.Code), "event_"):
			// The event itself is unprocessable (missing account reference,
			// unknown status). Redelivery of the same bytes cannot succeed,
			// so acknowledge and log for investigation.
			h.logger.ErrorContext(r.Context(), "webhook event unprocessable",
				"event_id", event.ID,
				"event_type", event.Type,
				"code", appErr.Code,
				"error", err,
			)
			core.JSON(w, r, http.StatusOK, webhookReceipt{Received: true, Outcome: "unprocessable"})
			return

		case appErr.Code == types.ErrCodeWebhookMalformedEvent:
			h.logger.WarnContext(r.Context(), "malformed webhook payload",
				"event_id", event.ID,
				"event_type", event.Type,
				"error", err,
			)
			core.Error(w, r, err)
			return
		}
	}

	// Storage or other internal failure: return 500 so Stripe redelivers.
	h.logger.ErrorContext(r.Context(), "webhook event processing failed",
		"event_id", event.ID,
		"event_type", event.Type,
		"error", err,
	)
	core.Error(w, r, types.NewAppError(
		types.ErrCodeInternalDB,
		"failed to persist subscription state",
		err,
	))
}
