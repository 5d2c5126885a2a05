package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"subsync/internal/types"
)

// newTestStripeClient points a StripeClient at a local test server with fast
// retries.
func newTestStripeClient(t *testing.T, serverURL string) *StripeClient {
	t.Helper()
	base := NewBaseClient(
		&http.Client{Timeout: 5 * time.Second},
		"stripe-test-"+t.Name(),
		RetryPolicy{MaxRetries: 1, MinWait: time.Millisecond, MaxWait: 5 * time.Millisecond},
		"SubSync-Test/1.0",
		WithSleepFunc(noopSleep),
	)
	return NewStripeClientWithBase(base, StripeClientConfig{
		SecretKey:    "sk_test_abc",
		PriceID:      "price_test_123",
		DashboardURL: "https://app.example.com/",
		BaseURL:      serverURL,
	})
}

func TestStartCheckout_Success(t *testing.T) {
	var gotForm map[string][]string
	var gotAuth, gotIdemKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("path = %q, want /v1/checkout/sessions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotIdemKey = r.Header.Get("Idempotency-Key")
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		gotForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`))
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)

	session, err := client.StartCheckout(context.Background(), "acct_42", "owner@example.com")
	if err != nil {
		t.Fatalf("StartCheckout returned error: %v", err)
	}

	if session.SessionID != "cs_test_1" {
		t.Errorf("SessionID = %q, want cs_test_1", session.SessionID)
	}
	if session.CheckoutURL != "https://checkout.stripe.com/c/pay/cs_test_1" {
		t.Errorf("CheckoutURL = %q", session.CheckoutURL)
	}

	if gotAuth != "Bearer sk_test_abc" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotIdemKey == "" {
		t.Error("Idempotency-Key header missing")
	}

	// The account reference must reach the subscription metadata, or later
	// lifecycle webhooks cannot be attributed.
	checks := map[string]string{
		"mode":                                    "subscription",
		"client_reference_id":                     "acct_42",
		"customer_email":                          "owner@example.com",
		"line_items[0][price]":                    "price_test_123",
		"subscription_data[metadata][account_id]": "acct_42",
	}
	for key, want := range checks {
		if got := gotForm[key]; len(got) != 1 || got[0] != want {
			t.Errorf("form[%q] = %v, want %q", key, got, want)
		}
	}
}

func TestStartCheckout_CardDeclined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","decline_code":"insufficient_funds","message":"Your card was declined."}}`))
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)

	_, err := client.StartCheckout(context.Background(), "acct_42", "owner@example.com")
	if err == nil {
		t.Fatal("expected error for declined card")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error type = %T, want *types.AppError", err)
	}
	if appErr.Code != types.ErrCodePaymentDeclined {
		t.Errorf("Code = %q, want %q", appErr.Code, types.ErrCodePaymentDeclined)
	}
	if appErr.Details["decline_code"] != "insufficient_funds" {
		t.Errorf("Details[decline_code] = %v", appErr.Details["decline_code"])
	}
}

func TestStartCheckout_InvalidRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such price: price_test_123"}}`))
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)

	_, err := client.StartCheckout(context.Background(), "acct_42", "owner@example.com")

	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeUpstreamStripe {
		t.Fatalf("want upstream_stripe_unavailable AppError, got: %v", err)
	}
}

func TestStartCheckout_ServerErrorAfterRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)

	_, err := client.StartCheckout(context.Background(), "acct_42", "owner@example.com")

	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeUpstreamUnavailable {
		t.Fatalf("want upstream_unavailable AppError, got: %v", err)
	}
}

func TestStartCheckout_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	client := newTestStripeClient(t, server.URL)

	_, err := client.StartCheckout(context.Background(), "acct_42", "owner@example.com")

	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeInternalUnexpected {
		t.Fatalf("want internal_unexpected_error AppError, got: %v", err)
	}
}

func TestStripeClient_InterfaceCompliance(t *testing.T) {
	var _ CheckoutService = (*StripeClient)(nil)
}
