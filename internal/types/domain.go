package types

import (
	"time"
)

// SubscriptionRecord is the locally persisted projection of a provider-side
// subscription. It is the single source of truth the rest of the platform
// reads entitlement from; it is only ever written by the webhook projection
// pipeline.
type SubscriptionRecord struct {
	SubscriptionID string `json:"subscription_id" db:"subscription_id"`
	AccountID      string `json:"account_id" db:"account_id"`

	Status   SubscriptionStatus `json:"status" db:"status"`
	PriceID  string             `json:"price_id" db:"price_id"`
	Quantity int64              `json:"quantity" db:"quantity"`

	// Cancellation state. CancelAtPeriodEnd marks a scheduled cancellation;
	// the nullable timestamps are absent until the provider populates them.
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	CancelAt          *time.Time `json:"cancel_at,omitempty" db:"cancel_at"`
	CanceledAt        *time.Time `json:"canceled_at,omitempty" db:"canceled_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	CurrentPeriodStart time.Time  `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd   time.Time  `json:"current_period_end" db:"current_period_end"`
	TrialStart         *time.Time `json:"trial_start,omitempty" db:"trial_start"`
	TrialEnd           *time.Time `json:"trial_end,omitempty" db:"trial_end"`

	Created   time.Time `json:"created" db:"created"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Entitlement is the answer the access gate gives callers asking whether an
// account may use paid features right now.
type Entitlement struct {
	AccountID string `json:"account_id"`
	Active    bool   `json:"active"`
}

// CheckoutSession is the reference a client needs to hand a customer over to
// the provider's hosted payment page.
type CheckoutSession struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}
