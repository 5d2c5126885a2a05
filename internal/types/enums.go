package types

// SubscriptionStatus represents the provider-side lifecycle state of a
// billing subscription.
type SubscriptionStatus string

const (
	SubStatusIncomplete        SubscriptionStatus = "incomplete"
	SubStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubStatusTrialing          SubscriptionStatus = "trialing"
	SubStatusActive            SubscriptionStatus = "active"
	SubStatusPaused            SubscriptionStatus = "paused"
	SubStatusPastDue           SubscriptionStatus = "past_due"
	SubStatusCanceled          SubscriptionStatus = "canceled"
	SubStatusUnpaid            SubscriptionStatus = "unpaid"
)

// statusRanks orders statuses by lifecycle progression. Out-of-order webhook
// deliveries are resolved against this order: an update that would move a
// subscription to a strictly lower rank within the same billing period is
// discarded as stale. Trialing and active share a rank, as do canceled and
// unpaid, because Stripe can emit either first depending on payment timing.
var statusRanks = map[SubscriptionStatus]int{
	SubStatusIncomplete:        0,
	SubStatusIncompleteExpired: 1,
	SubStatusTrialing:          2,
	SubStatusActive:            2,
	SubStatusPaused:            3,
	SubStatusPastDue:           4,
	SubStatusCanceled:          5,
	SubStatusUnpaid:            5,
}

// Rank returns the lifecycle position of the status. Unknown statuses rank
// lowest so they can never displace a known state.
func (s SubscriptionStatus) Rank() int {
	if r, ok := statusRanks[s]; ok {
		return r
	}
	return -1
}

// IsKnown reports whether the status is one Stripe documents for
// subscription objects.
func (s SubscriptionStatus) IsKnown() bool {
	_, ok := statusRanks[s]
	return ok
}

// IsTerminal reports whether the subscription has permanently ended.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubStatusCanceled || s == SubStatusUnpaid || s == SubStatusIncompleteExpired
}

// GrantsAccess reports whether the status entitles the owning account to
// paid features. Only a fully paid-up subscription grants access; trialing
// accounts are gated until the first successful payment.
func (s SubscriptionStatus) GrantsAccess() bool {
	return s == SubStatusActive
}
