package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/teemow/labelfewer/internal/embedding"
	"github.com/teemow/labelfewer/internal/memory"
)

func newTestMemoryStore(t *testing.T) *memory.Store {
	t.Helper()

	embedder := embedding.NewService(nil, embedding.DefaultDimensions, nil)
	store, err := memory.NewStore(filepath.Join(t.TempDir(), "memory.db"), embedder, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewServerContext(t *testing.T) {
	store := newTestMemoryStore(t)

	sc, err := NewServerContext(context.Background(), Options{
		Store:       store,
		ApplyLabels: true,
	})
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer func() { _ = sc.Shutdown() }()

	if sc.Store() != store {
		t.Error("Store() should return the configured store")
	}
	if !sc.ApplyLabels() {
		t.Error("ApplyLabels() should be true")
	}
	if sc.IsShutdown() {
		t.Error("new context should not be shut down")
	}
}

func TestServerContext_ShutdownIdempotent(t *testing.T) {
	sc, err := NewServerContext(context.Background(), Options{})
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}

	if err := sc.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if err := sc.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	if !sc.IsShutdown() {
		t.Error("IsShutdown() should be true after Shutdown()")
	}

	select {
	case <-sc.Context().Done():
	default:
		t.Error("context should be cancelled after Shutdown()")
	}
}

func TestServerContext_Accounts(t *testing.T) {
	sc, err := NewServerContext(context.Background(), Options{})
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer func() { _ = sc.Shutdown() }()

	sc.SetGmailClientForAccount("work", nil)
	sc.SetGmailClientForAccount("personal", nil)

	accounts := sc.Accounts()
	if len(accounts) != 2 {
		t.Fatalf("Accounts() returned %d accounts, want 2", len(accounts))
	}
	if accounts[0] != "personal" || accounts[1] != "work" {
		t.Errorf("Accounts() = %v, want sorted [personal work]", accounts)
	}
}

func TestHealthChecker_Readiness(t *testing.T) {
	store := newTestMemoryStore(t)

	sc, err := NewServerContext(context.Background(), Options{Store: store})
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer func() { _ = sc.Shutdown() }()

	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("readiness status = %d, want %d", rec.Code, http.StatusOK)
	}

	// Shutting down flips readiness
	_ = sc.Shutdown()
	rec = httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness status after shutdown = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHealthChecker_ReadinessWithoutStore(t *testing.T) {
	sc, err := NewServerContext(context.Background(), Options{})
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer func() { _ = sc.Shutdown() }()

	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness without store = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil)

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("liveness status = %d, want %d", rec.Code, http.StatusOK)
	}
}
