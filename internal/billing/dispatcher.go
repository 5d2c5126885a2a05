package billing

import (
	"context"
	"encoding/json"
	"log/slog"

	"subsync/internal/types"
)

// DispatchOutcome describes how an event moved through the pipeline. Every
// outcome is an acknowledgement; only errors request redelivery.
type DispatchOutcome string

const (
	DispatchOutcomeApplied DispatchOutcome = "applied"
	DispatchOutcomeStale   DispatchOutcome = "skipped_stale"
	DispatchOutcomeIgnored DispatchOutcome = "ignored"
)

// subscriptionProjector is the slice of Projector the dispatcher needs.
type subscriptionProjector interface {
	Apply(ctx context.Context, sub *SubscriptionPayload) (ApplyOutcome, error)
}

// Dispatcher routes verified webhook events to their handlers. Subscription
// lifecycle events are projected; every other type is acknowledged untouched
// so new provider event types never break the endpoint.
type Dispatcher struct {
	projector subscriptionProjector
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher that routes subscription events to the
// given projector.
func NewDispatcher(projector subscriptionProjector, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{projector: projector, logger: logger}
}

// Dispatch routes one verified event. The event's raw payload is only parsed
// once the type is known to be handled.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *Event) (DispatchOutcome, error) {
	switch evt.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
	default:
		d.logger.DebugContext(ctx, "unhandled event type acknowledged",
			slog.String("event_id", evt.ID),
			slog.String("event_type", evt.Type),
		)
		return DispatchOutcomeIgnored, nil
	}

	var sub SubscriptionPayload
	if err := json.Unmarshal(evt.Data.Object, &sub); err != nil {
		return "", types.NewAppErrorWithDetails(types.ErrCodeWebhookMalformedEvent,
			"event data is not a subscription object", err,
			map[string]any{"event_id": evt.ID, "event_type": evt.Type})
	}

	if evt.Type == EventSubscriptionDeleted {
		normalizeDeleted(&sub, evt)
	}

	outcome, err := d.projector.Apply(ctx, &sub)
	if err != nil {
		return "", err
	}

	switch outcome {
	case ApplyOutcomeStale:
		return DispatchOutcomeStale, nil
	default:
		return DispatchOutcomeApplied, nil
	}
}

// normalizeDeleted forces a deletion event into a terminal shape. Providers
// occasionally emit deleted events whose embedded object still carries a live
// status, and ended_at can be absent when cancellation is immediate.
func normalizeDeleted(sub *SubscriptionPayload, evt *Event) {
	if !types.SubscriptionStatus(sub.Status).IsTerminal() {
		sub.Status = string(types.SubStatusCanceled)
	}
	if sub.EndedAt == 0 {
		sub.EndedAt = evt.Created
	}
	if sub.CanceledAt == 0 {
		sub.CanceledAt = evt.Created
	}
}
