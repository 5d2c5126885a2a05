package types

import (
	"context"
	"testing"
)

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-abc123")

	if got := GetRequestID(ctx); got != "req-abc123" {
		t.Errorf("GetRequestID() = %q, want req-abc123", got)
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() on empty context = %q, want empty", got)
	}
}

func TestWithRequestID_Overwrite(t *testing.T) {
	ctx := WithRequestID(context.Background(), "first")
	ctx = WithRequestID(ctx, "second")

	if got := GetRequestID(ctx); got != "second" {
		t.Errorf("GetRequestID() = %q, want second", got)
	}
}
