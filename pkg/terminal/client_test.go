package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, filepath.Join(t.TempDir(), "pending.json"))
}

func TestValidateOnlineSuccess(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/validar-cupom" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body struct {
			Code string `json:"code"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Code != "AB12CD" {
			t.Errorf("code = %q, want AB12CD", body.Code)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "Cupom validado com sucesso!",
			"validationData": map[string]any{
				"customerName": "Padaria Central",
				"offerTitle":   "10% de desconto",
			},
		})
	}))

	out, err := c.Validate(context.Background(), "ab12cd")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if out.Queued {
		t.Fatal("Queued = true for online validation")
	}
	if out.Message != "Cupom validado com sucesso!" {
		t.Fatalf("Message = %q", out.Message)
	}
	if out.Data == nil || out.Data.CustomerName != "Padaria Central" {
		t.Fatalf("Data = %+v", out.Data)
	}
}

func TestValidateRejectsShortCode(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called")
	}))

	_, err := c.Validate(context.Background(), "AB1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400 APIError", err)
	}
}

func TestValidateServerErrorPassedThrough(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "conflict",
			"message": "Este cupom já foi utilizado.",
		})
	}))

	_, err := c.Validate(context.Background(), "AB12CD")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Message != "Este cupom já foi utilizado." {
		t.Fatalf("apiErr = %+v", apiErr)
	}
	if c.queue.Len() != 0 {
		t.Fatal("rejected code must not be queued")
	}
	if !c.Online() {
		t.Fatal("server rejection must not flip the client offline")
	}
}

func TestValidateOfflineQueues(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called while offline")
	}))
	if err := c.SetOnline(context.Background(), false); err != nil {
		t.Fatalf("SetOnline: %v", err)
	}

	out, err := c.Validate(context.Background(), "ab12cd")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !out.Queued {
		t.Fatal("Queued = false while offline")
	}
	if got := c.Pending(); len(got) != 1 || got[0] != "AB12CD" {
		t.Fatalf("Pending = %v", got)
	}

	// Same code again stays deduplicated.
	if _, err := c.Validate(context.Background(), "AB12CD"); err != nil {
		t.Fatalf("Validate again: %v", err)
	}
	if c.queue.Len() != 1 {
		t.Fatalf("queue len = %d, want 1", c.queue.Len())
	}
}

func TestValidateUnreachableGoesOfflineAndQueues(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on
	c := New(srv.URL, filepath.Join(t.TempDir(), "pending.json"))

	out, err := c.Validate(context.Background(), "AB12CD")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !out.Queued {
		t.Fatal("Queued = false after transport failure")
	}
	if c.Online() {
		t.Fatal("client should flip offline after transport failure")
	}
	if got := c.Pending(); len(got) != 1 || got[0] != "AB12CD" {
		t.Fatalf("Pending = %v", got)
	}
}

func TestSyncFlushesAndClearsQueue(t *testing.T) {
	var gotCodes []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sync-cupons" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body struct {
			Codes []string `json:"codes"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotCodes = body.Codes
		_ = json.NewEncoder(w).Encode(SyncOutcome{
			Success: []string{"AB12CD"},
			Failed:  []SyncFailure{{Code: "ZZ99ZZ", Reason: "Inválido, expirado, já utilizado ou não encontrado."}},
		})
	}))
	_ = c.queue.Add("AB12CD")
	_ = c.queue.Add("ZZ99ZZ")

	out, err := c.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !reflect.DeepEqual(gotCodes, []string{"AB12CD", "ZZ99ZZ"}) {
		t.Fatalf("sent codes = %v", gotCodes)
	}
	if len(out.Success) != 1 || len(out.Failed) != 1 {
		t.Fatalf("out = %+v", out)
	}
	// Failed codes are dropped too; the queue empties on any 200.
	if c.queue.Len() != 0 {
		t.Fatalf("queue len = %d after sync, want 0", c.queue.Len())
	}
}

func TestSyncKeepsQueueOnServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code": "internal_error", "message": "Failed to sync coupons.",
		})
	}))
	_ = c.queue.Add("AB12CD")

	if _, err := c.Sync(context.Background()); err == nil {
		t.Fatal("expected error from failed sync")
	}
	if c.queue.Len() != 1 {
		t.Fatalf("queue len = %d, want 1 (kept for retry)", c.queue.Len())
	}
}

func TestSyncEmptyQueueSkipsNetwork(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called for empty queue")
	}))
	out, err := c.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(out.Success) != 0 || len(out.Failed) != 0 {
		t.Fatalf("out = %+v", out)
	}
}

func TestSetOnlineTriggersFlush(t *testing.T) {
	synced := false
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		synced = true
		_ = json.NewEncoder(w).Encode(SyncOutcome{Success: []string{"AB12CD"}, Failed: []SyncFailure{}})
	}))
	_ = c.SetOnline(context.Background(), false)
	if _, err := c.Validate(context.Background(), "AB12CD"); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if err := c.SetOnline(context.Background(), true); err != nil {
		t.Fatalf("SetOnline: %v", err)
	}
	if !synced {
		t.Fatal("coming back online did not flush the queue")
	}
	if c.queue.Len() != 0 {
		t.Fatalf("queue len = %d after flush", c.queue.Len())
	}
}
