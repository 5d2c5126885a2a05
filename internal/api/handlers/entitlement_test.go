package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"subsync/internal/types"
)

type fakeSubscriptionReader struct {
	active    bool
	activeErr error
	record    *types.SubscriptionRecord
	recordErr error
}

func (f *fakeSubscriptionReader) HasActiveSubscription(ctx context.Context, accountID string) (bool, error) {
	return f.active, f.activeErr
}

func (f *fakeSubscriptionReader) GetByAccountID(ctx context.Context, accountID string) (*types.SubscriptionRecord, error) {
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	return f.record, nil
}

func entitlementRouter(subs SubscriptionReader) *chi.Mux {
	r := chi.NewRouter()
	NewEntitlementHandler(subs, testLogger()).RegisterRoutes(r)
	return r
}

func TestGetEntitlement_Active(t *testing.T) {
	router := entitlementRouter(&fakeSubscriptionReader{active: true})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/acct_1/entitlement", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data types.Entitlement `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Data.Active {
		t.Error("expected active entitlement")
	}
	if resp.Data.AccountID != "acct_1" {
		t.Errorf("expected account acct_1, got %q", resp.Data.AccountID)
	}
}

func TestGetEntitlement_Inactive(t *testing.T) {
	router := entitlementRouter(&fakeSubscriptionReader{active: false})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/acct_2/entitlement", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Data types.Entitlement `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.Active {
		t.Error("expected inactive entitlement")
	}
}

func TestGetEntitlement_StorageError(t *testing.T) {
	router := entitlementRouter(&fakeSubscriptionReader{
		activeErr: types.NewAppError(types.ErrCodeInternalDB, "query failed", nil),
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/acct_1/entitlement", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestGetSubscription_Found(t *testing.T) {
	periodEnd := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	router := entitlementRouter(&fakeSubscriptionReader{
		record: &types.SubscriptionRecord{
			SubscriptionID:   "sub_1",
			AccountID:        "acct_1",
			Status:           types.SubStatusActive,
			CurrentPeriodEnd: periodEnd,
		},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/acct_1/subscription", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data types.SubscriptionRecord `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.SubscriptionID != "sub_1" {
		t.Errorf("expected sub_1, got %q", resp.Data.SubscriptionID)
	}
	if resp.Data.Status != types.SubStatusActive {
		t.Errorf("expected active status, got %q", resp.Data.Status)
	}
}

func TestGetSubscription_NotFound(t *testing.T) {
	router := entitlementRouter(&fakeSubscriptionReader{
		recordErr: types.NewAppError(types.ErrCodeNotFoundSubscription, "subscription not found", nil),
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/acct_unknown/subscription", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if code := decodeErrorCode(t, w); code != string(types.ErrCodeNotFoundSubscription) {
		t.Errorf("expected not found code, got %s", code)
	}
}
