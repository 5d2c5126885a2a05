package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

const rawKey = "sk_live_abc123def456"

func TestSecretString_NeverLeaksThroughFmt(t *testing.T) {
	s := SecretString(rawKey)

	for _, verb := range []string{"%s", "%v", "%+v"} {
		out := fmt.Sprintf("key="+verb, s)
		if strings.Contains(out, rawKey) {
			t.Errorf("fmt.Sprintf(%s) leaked the raw secret: %s", verb, out)
		}
	}

	if s.String() != redactedPlaceholder {
		t.Errorf("String() = %q, want %q", s.String(), redactedPlaceholder)
	}
}

func TestSecretString_MarshalJSONRedacts(t *testing.T) {
	type billingConfig struct {
		StripeSecretKey SecretString `json:"stripe_secret_key"`
		PriceID         string       `json:"price_id"`
	}

	data, err := json.Marshal(billingConfig{
		StripeSecretKey: SecretString(rawKey),
		PriceID:         "price_123",
	})
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}

	out := string(data)
	if strings.Contains(out, rawKey) {
		t.Errorf("json.Marshal leaked the raw secret: %s", out)
	}
	if !strings.Contains(out, redactedPlaceholder) {
		t.Errorf("expected redacted placeholder in output: %s", out)
	}
	if !strings.Contains(out, "price_123") {
		t.Errorf("non-secret fields must marshal normally: %s", out)
	}
}

func TestSecretString_Unmask(t *testing.T) {
	if got := SecretString(rawKey).Unmask(); got != rawKey {
		t.Errorf("Unmask() = %q, want %q", got, rawKey)
	}
	if got := SecretString("").Unmask(); got != "" {
		t.Errorf("Unmask() of empty = %q, want empty", got)
	}
}
