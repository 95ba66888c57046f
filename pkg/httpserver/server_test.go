package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/mselser95/kalshi-arb/internal/orderbook"
	"github.com/mselser95/kalshi-arb/pkg/healthprobe"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

type fakeStatusSource struct {
	snapshot any
}

func (f *fakeStatusSource) StatusSnapshot() any {
	return f.snapshot
}

func newTestServer(t *testing.T, books *orderbook.Store, status StatusSource) (*Server, *healthprobe.HealthChecker) {
	t.Helper()

	health := healthprobe.New()
	server := New(&Config{
		Port:          0,
		Logger:        zaptest.NewLogger(t),
		HealthChecker: health,
		Books:         books,
		Status:        status,
	})
	return server, health
}

func TestServer_HealthAndReady(t *testing.T) {
	t.Parallel()

	server, health := newTestServer(t, nil, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz: expected 503 before ready, got %d", rec.Code)
	}

	health.SetReady(true)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("readyz: expected 200 after ready, got %d", rec.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t, nil, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("metrics: expected 200, got %d", rec.Code)
	}
}

func TestServer_Orderbook(t *testing.T) {
	t.Parallel()

	store := orderbook.New(&orderbook.Config{Logger: zaptest.NewLogger(t)})
	store.InstallSnapshot("KXTEST-A", orderbook.NewBook("KXTEST-A", types.OrderbookData{
		Yes: []types.Level{{Price: 40, Quantity: 100}},
		No:  []types.Level{{Price: 55, Quantity: 50}},
	}))

	server, _ := newTestServer(t, store, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orderbook/KXTEST-A", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp OrderbookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Ticker != "KXTEST-A" {
		t.Errorf("expected ticker KXTEST-A, got %q", resp.Ticker)
	}
	if resp.Yes.BestBid != 40 {
		t.Errorf("expected yes best bid 40, got %d", resp.Yes.BestBid)
	}
	// Implied YES ask = 100 - best NO bid.
	if resp.Yes.ImpliedAsk != 45 {
		t.Errorf("expected implied yes ask 45, got %d", resp.Yes.ImpliedAsk)
	}
	if resp.Yes.QuantityAtAsk != 50 {
		t.Errorf("expected quantity at implied ask 50, got %d", resp.Yes.QuantityAtAsk)
	}
	if len(resp.YesLevels) != 1 || len(resp.NoLevels) != 1 {
		t.Errorf("expected full ladders in response, got %d/%d levels",
			len(resp.YesLevels), len(resp.NoLevels))
	}
}

func TestServer_OrderbookNotFound(t *testing.T) {
	t.Parallel()

	store := orderbook.New(&orderbook.Config{Logger: zaptest.NewLogger(t)})
	server, _ := newTestServer(t, store, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orderbook/UNKNOWN", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected error message in response")
	}
}

func TestServer_Status(t *testing.T) {
	t.Parallel()

	source := &fakeStatusSource{snapshot: map[string]any{
		"running":        true,
		"watched_events": []string{"KXTEST"},
	}}
	server, _ := newTestServer(t, nil, source)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["running"] != true {
		t.Errorf("expected running=true in status, got %v", got["running"])
	}
}
