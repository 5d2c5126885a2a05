package external

import (
	"context"

	"subsync/internal/types"
)

// CheckoutService abstracts the payment provider operation that hands a
// customer over to hosted checkout. Implementations translate between domain
// types and vendor-specific APIs.
type CheckoutService interface {
	// StartCheckout creates a subscription-mode checkout session for the
	// account and returns the session reference the client redirects to.
	// The account reference must be planted in the subscription metadata so
	// later webhook events can be attributed.
	StartCheckout(ctx context.Context, accountID string, email string) (*types.CheckoutSession, error)
}

// WebhookVerifier abstracts webhook signature checking.
type WebhookVerifier interface {
	// Verify validates a webhook payload against the provided signature
	// header and signing secret. Returns nil on success, a
	// *VerificationError on rejection.
	Verify(payload []byte, header string, secret string) error
}
