// Package billing implements the webhook projection pipeline that keeps the
// local subscriptions table synchronized with the billing provider. Events
// arrive at-least-once and in arbitrary order; the pipeline reduces each one
// to a full subscription snapshot and hands it to the store, which resolves
// ordering conflicts at write time.
package billing

import (
	"encoding/json"
	"time"
)

// Stripe event types the dispatcher handles. Everything else is acknowledged
// and ignored.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// metadataAccountKey is the subscription metadata entry that carries the
// internal account reference. It is set by the checkout initiator when the
// subscription is created, so every lifecycle event can be attributed.
const metadataAccountKey = "account_id"

// Event is the envelope of a provider webhook delivery. Data.Object is kept
// raw because its shape depends on Type.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Created int64     `json:"created"`
	Data    EventData `json:"data"`
}

// EventData wraps the event's primary object.
type EventData struct {
	Object json.RawMessage `json:"object"`
}

// CreatedTime returns the event timestamp as a time.Time.
func (e *Event) CreatedTime() time.Time {
	return time.Unix(e.Created, 0).UTC()
}

// SubscriptionPayload is the subset of the provider's subscription object the
// projector consumes. All provider timestamps are Unix epoch seconds; zero
// means the field is absent.
type SubscriptionPayload struct {
	ID                 string            `json:"id"`
	Status             string            `json:"status"`
	Metadata           map[string]string `json:"metadata"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CancelAt           int64             `json:"cancel_at"`
	CanceledAt         int64             `json:"canceled_at"`
	EndedAt            int64             `json:"ended_at"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	TrialStart         int64             `json:"trial_start"`
	TrialEnd           int64             `json:"trial_end"`
	Created            int64             `json:"created"`
	Items              SubscriptionItems `json:"items"`
}

// SubscriptionItems mirrors the provider's item list. Single-plan
// subscriptions carry exactly one entry.
type SubscriptionItems struct {
	Data []SubscriptionItem `json:"data"`
}

// SubscriptionItem carries the price and seat count of one line item.
type SubscriptionItem struct {
	Quantity int64             `json:"quantity"`
	Price    SubscriptionPrice `json:"price"`
}

// SubscriptionPrice identifies the plan the subscription is billed on.
type SubscriptionPrice struct {
	ID string `json:"id"`
}

// unixOrNil converts an optional epoch-seconds field to a nullable UTC
// timestamp.
func unixOrNil(epoch int64) *time.Time {
	if epoch == 0 {
		return nil
	}
	t := time.Unix(epoch, 0).UTC()
	return &t
}
