package billing

import (
	"context"
	"log/slog"
	"time"

	"subsync/internal/types"
)

// ApplyOutcome describes what the store did with a projected snapshot.
type ApplyOutcome string

const (
	// ApplyOutcomeApplied means the snapshot was written.
	ApplyOutcomeApplied ApplyOutcome = "applied"
	// ApplyOutcomeStale means the stored state already reflected a later
	// snapshot and the write was discarded.
	ApplyOutcomeStale ApplyOutcome = "skipped_stale"
)

// SubscriptionStore persists projected subscription snapshots. Upsert
// returns false when the write was rejected as stale.
type SubscriptionStore interface {
	Upsert(ctx context.Context, rec *types.SubscriptionRecord) (bool, error)
}

// Projector reduces provider subscription payloads to SubscriptionRecord
// snapshots and writes them through the store. It is deliberately stateless:
// every event carries the full subscription object, so projection never needs
// to read before writing.
type Projector struct {
	store  SubscriptionStore
	logger *slog.Logger
}

// NewProjector creates a Projector backed by the given store.
func NewProjector(store SubscriptionStore, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{store: store, logger: logger}
}

// Apply projects a subscription payload into the local table. Replays and
// out-of-order deliveries surface as ApplyOutcomeStale, never as errors.
func (p *Projector) Apply(ctx context.Context, sub *SubscriptionPayload) (ApplyOutcome, error) {
	rec, err := buildRecord(sub)
	if err != nil {
		return "", err
	}

	applied, err := p.store.Upsert(ctx, rec)
	if err != nil {
		return "", err
	}
	if !applied {
		return ApplyOutcomeStale, nil
	}

	p.logger.InfoContext(ctx, "subscription state applied",
		slog.String("subscription_id", rec.SubscriptionID),
		slog.String("account_id", rec.AccountID),
		slog.String("status", string(rec.Status)),
	)
	return ApplyOutcomeApplied, nil
}

// buildRecord validates the payload and converts it to the persisted shape.
func buildRecord(sub *SubscriptionPayload) (*types.SubscriptionRecord, error) {
	if sub.ID == "" {
		return nil, types.NewAppError(types.ErrCodeWebhookMalformedEvent,
			"subscription payload has no id", nil)
	}

	accountID := sub.Metadata[metadataAccountKey]
	if accountID == "" {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeEventMissingAccountRef,
			"subscription metadata has no account reference", nil,
			map[string]any{"subscription_id": sub.ID})
	}

	status := types.SubscriptionStatus(sub.Status)
	if !status.IsKnown() {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeEventUnknownStatus,
			"unrecognized subscription status", nil,
			map[string]any{"subscription_id": sub.ID, "status": sub.Status})
	}

	if sub.CurrentPeriodEnd == 0 {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeWebhookMalformedEvent,
			"subscription payload has no billing period", nil,
			map[string]any{"subscription_id": sub.ID})
	}

	var priceID string
	quantity := int64(1)
	if len(sub.Items.Data) > 0 {
		priceID = sub.Items.Data[0].Price.ID
		if sub.Items.Data[0].Quantity > 0 {
			quantity = sub.Items.Data[0].Quantity
		}
	}

	return &types.SubscriptionRecord{
		SubscriptionID:     sub.ID,
		AccountID:          accountID,
		Status:             status,
		PriceID:            priceID,
		Quantity:           quantity,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CancelAt:           unixOrNil(sub.CancelAt),
		CanceledAt:         unixOrNil(sub.CanceledAt),
		EndedAt:            unixOrNil(sub.EndedAt),
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		TrialStart:         unixOrNil(sub.TrialStart),
		TrialEnd:           unixOrNil(sub.TrialEnd),
		Created:            time.Unix(sub.Created, 0).UTC(),
	}, nil
}
