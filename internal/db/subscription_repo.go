package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"subsync/internal/types"
)

// Expected schema for the subscriptions table:
//
//	CREATE TABLE subscriptions (
//	    subscription_id      TEXT PRIMARY KEY,
//	    account_id           TEXT NOT NULL,
//	    status               TEXT NOT NULL,
//	    status_rank          INT  NOT NULL,
//	    price_id             TEXT NOT NULL DEFAULT '',
//	    quantity             BIGINT NOT NULL DEFAULT 1,
//	    cancel_at_period_end BOOLEAN NOT NULL DEFAULT FALSE,
//	    cancel_at            TIMESTAMPTZ,
//	    canceled_at          TIMESTAMPTZ,
//	    ended_at             TIMESTAMPTZ,
//	    current_period_start TIMESTAMPTZ NOT NULL,
//	    current_period_end   TIMESTAMPTZ NOT NULL,
//	    trial_start          TIMESTAMPTZ,
//	    trial_end            TIMESTAMPTZ,
//	    created              TIMESTAMPTZ NOT NULL,
//	    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX subscriptions_account_status_idx ON subscriptions (account_id, status);

const subscriptionColumns = `subscription_id, account_id, status, price_id, quantity,
	 cancel_at_period_end, cancel_at, canceled_at, ended_at,
	 current_period_start, current_period_end, trial_start, trial_end,
	 created, updated_at`

// upsertSubscriptionSQL applies a projected subscription state if and only if
// it is not stale relative to the stored row. A row is replaced when the
// incoming state covers a later billing period, or the same period with a
// strictly later lifecycle status. Period bounds use GREATEST so a
// late-arriving lifecycle update can never roll the billing period backwards.
const upsertSubscriptionSQL = `
	INSERT INTO subscriptions (
		subscription_id, account_id, status, status_rank, price_id, quantity,
		cancel_at_period_end, cancel_at, canceled_at, ended_at,
		current_period_start, current_period_end, trial_start, trial_end,
		created, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
	ON CONFLICT (subscription_id) DO UPDATE SET
		status               = EXCLUDED.status,
		status_rank          = EXCLUDED.status_rank,
		price_id             = EXCLUDED.price_id,
		quantity             = EXCLUDED.quantity,
		cancel_at_period_end = EXCLUDED.cancel_at_period_end,
		cancel_at            = EXCLUDED.cancel_at,
		canceled_at          = COALESCE(EXCLUDED.canceled_at, subscriptions.canceled_at),
		ended_at             = COALESCE(EXCLUDED.ended_at, subscriptions.ended_at),
		current_period_start = GREATEST(subscriptions.current_period_start, EXCLUDED.current_period_start),
		current_period_end   = GREATEST(subscriptions.current_period_end, EXCLUDED.current_period_end),
		trial_start          = EXCLUDED.trial_start,
		trial_end            = EXCLUDED.trial_end,
		updated_at           = NOW()
	WHERE subscriptions.current_period_end < EXCLUDED.current_period_end
	   OR subscriptions.status_rank < EXCLUDED.status_rank`

// SubscriptionRepo persists the local projection of provider-side
// subscriptions. It is the storage half of the projection pipeline: webhook
// events are reduced to SubscriptionRecord values and written through Upsert,
// while the access gate and read API query the same table.
//
// Key invariants:
//   - Upsert resolves out-of-order webhook deliveries at the statement level.
//     The conditional ON CONFLICT update makes concurrent applies safe without
//     explicit row locks: whichever event commits last still cannot regress
//     the stored period or lifecycle rank.
//   - account_id and created are written on insert only. Later events for the
//     same subscription never reassign ownership.
type SubscriptionRepo struct {
	db     DBTX
	logger *slog.Logger
}

// NewSubscriptionRepo creates a new SubscriptionRepo backed by the given
// database connection (pool or transaction).
func NewSubscriptionRepo(db DBTX, logger *slog.Logger) *SubscriptionRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionRepo{db: db, logger: logger}
}

// Upsert writes the projected subscription state. It returns true if the row
// was inserted or updated, and false if the write was discarded as stale.
// A stale write is a normal consequence of at-least-once, out-of-order
// webhook delivery and is logged at info level only.
func (r *SubscriptionRepo) Upsert(ctx context.Context, rec *types.SubscriptionRecord) (bool, error) {
	tag, err := r.db.Exec(ctx, upsertSubscriptionSQL,
		rec.SubscriptionID,
		rec.AccountID,
		rec.Status,
		rec.Status.Rank(),
		rec.PriceID,
		rec.Quantity,
		rec.CancelAtPeriodEnd,
		rec.CancelAt,
		rec.CanceledAt,
		rec.EndedAt,
		rec.CurrentPeriodStart,
		rec.CurrentPeriodEnd,
		rec.TrialStart,
		rec.TrialEnd,
		rec.Created,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to upsert subscription", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.InfoContext(ctx, "stale subscription event ignored",
			slog.String("subscription_id", rec.SubscriptionID),
			slog.String("status", string(rec.Status)),
			slog.Time("current_period_end", rec.CurrentPeriodEnd),
		)
		return false, nil
	}

	return true, nil
}

// GetBySubscriptionID returns the stored projection for a single
// subscription, or a not-found AppError if none exists.
func (r *SubscriptionRepo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*types.SubscriptionRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE subscription_id = $1`,
		subscriptionID,
	)
	return scanSubscription(row)
}

// GetByAccountID returns the most recently updated subscription owned by the
// account, or a not-found AppError if the account has none.
func (r *SubscriptionRepo) GetByAccountID(ctx context.Context, accountID string) (*types.SubscriptionRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE account_id = $1
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		accountID,
	)
	return scanSubscription(row)
}

// HasActiveSubscription reports whether the account currently holds at least
// one subscription in active status. This is the query behind the access
// gate: absence of rows means no entitlement, never an error.
func (r *SubscriptionRepo) HasActiveSubscription(ctx context.Context, accountID string) (bool, error) {
	var active bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE account_id = $1 AND status = $2
		 )`,
		accountID,
		types.SubStatusActive,
	).Scan(&active)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to check entitlement", err)
	}
	return active, nil
}

func scanSubscription(row pgx.Row) (*types.SubscriptionRecord, error) {
	var rec types.SubscriptionRecord
	err := row.Scan(
		&rec.SubscriptionID,
		&rec.AccountID,
		&rec.Status,
		&rec.PriceID,
		&rec.Quantity,
		&rec.CancelAtPeriodEnd,
		&rec.CancelAt,
		&rec.CanceledAt,
		&rec.EndedAt,
		&rec.CurrentPeriodStart,
		&rec.CurrentPeriodEnd,
		&rec.TrialStart,
		&rec.TrialEnd,
		&rec.Created,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewAppError(types.ErrCodeNotFoundSubscription, "subscription not found", err)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load subscription", err)
	}
	return &rec, nil
}
