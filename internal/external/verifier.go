package external

import (
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

// Rejection reasons reported by VerificationError.
const (
	ReasonSignatureMismatch = "signature_mismatch"
	ReasonStaleTimestamp    = "stale_timestamp"
)

// VerificationError is returned when a webhook delivery fails signature
// verification. Reason distinguishes a cryptographic mismatch from a
// timestamp outside the replay tolerance window; both must be rejected
// before any payload parsing happens.
type VerificationError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	return fmt.Sprintf("webhook verification failed (%s)", e.Reason)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *VerificationError) Unwrap() error {
	return e.Err
}

// StripeVerifier implements WebhookVerifier using stripe-go's webhook
// signature verification: HMAC-SHA256 over the timestamped payload, with
// constant-time comparison and a bounded timestamp tolerance.
type StripeVerifier struct {
	// Tolerance bounds how old a signature timestamp may be. Zero means
	// the stripe-go default (5 minutes).
	Tolerance time.Duration
}

// Verify validates a Stripe webhook payload against the signature header and
// signing secret.
func (v *StripeVerifier) Verify(payload []byte, header string, secret string) error {
	tolerance := v.Tolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}

	err := webhook.ValidatePayloadWithTolerance(payload, header, secret, tolerance)
	if err == nil {
		return nil
	}

	if errors.Is(err, webhook.ErrTooOld) {
		return &VerificationError{Reason: ReasonStaleTimestamp, Err: err}
	}
	return &VerificationError{Reason: ReasonSignatureMismatch, Err: err}
}
