package paygate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mcastilho/clientdesk/internal/config"
	"github.com/mcastilho/clientdesk/pkg/paygate"
)

func testConfig(baseURL string) config.GatewayConfig {
	return config.GatewayConfig{
		BaseURL:                 baseURL,
		Timeout:                 2 * time.Second,
		Retries:                 0,
		Backoff:                 time.Millisecond,
		CircuitFailureThreshold: 5,
		CircuitReset:            time.Second,
	}
}

func TestClient_CreateOrder_Success(t *testing.T) {
	var gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/orders" {
			gotRequestID = r.Header.Get("Request-Id")
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "bad body", http.StatusBadRequest)
				return
			}
			if body["reference"] != "INV-2025-001" || body["amount"] != float64(80000) {
				http.Error(w, "wrong body", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"ord_123","status":"CREATED","approval_url":"https://pay.example/approve/ord_123"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client, err := paygate.NewClient(testConfig(srv.URL), srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	order, err := client.CreateOrder(context.Background(), "INV-2025-001", 80000, "USD")
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.ID != "ord_123" || order.ApprovalURL == "" {
		t.Fatalf("unexpected order: %#v", order)
	}
	if gotRequestID == "" {
		t.Fatalf("expected an idempotency request id header")
	}
}

func TestClient_CreateOrder_RetriesWithSameRequestID(t *testing.T) {
	var calls int32
	ids := map[string]struct{}{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids[r.Header.Get("Request-Id")] = struct{}{}
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"ord_retry","status":"CREATED"}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retries = 2
	client, err := paygate.NewClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	order, err := client.CreateOrder(context.Background(), "INV-1", 100, "USD")
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.ID != "ord_retry" {
		t.Fatalf("unexpected order: %#v", order)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 attempts got %d", calls)
	}
	if len(ids) != 1 {
		t.Fatalf("retries must reuse the same request id, saw %d distinct ids", len(ids))
	}
}

func TestClient_CreateOrder_InvalidAmount(t *testing.T) {
	client, err := paygate.NewClient(testConfig("http://localhost:1"), nil)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if _, err := client.CreateOrder(context.Background(), "INV-1", 0, "USD"); err == nil {
		t.Fatalf("expected error for zero amount")
	}
}

func TestClient_CaptureOrder_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/orders/ord_123/capture" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"transaction_reference":"tx_987","status":"COMPLETED"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client, err := paygate.NewClient(testConfig(srv.URL), srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	capt, err := client.CaptureOrder(context.Background(), "ord_123")
	if err != nil {
		t.Fatalf("CaptureOrder failed: %v", err)
	}
	if capt.TxRef != "tx_987" || capt.Status != "COMPLETED" {
		t.Fatalf("unexpected capture: %#v", capt)
	}
	if capt.OrderID != "ord_123" {
		t.Fatalf("expected order id backfilled, got %q", capt.OrderID)
	}
}

func TestClient_CaptureOrder_Non200_Fails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "server error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := paygate.NewClient(testConfig(srv.URL), srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if _, err := client.CaptureOrder(context.Background(), "ord_123"); err == nil {
		t.Fatalf("expected CaptureOrder to fail on non-200")
	}
}

func TestClient_CircuitOpensAfterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.CircuitFailureThreshold = 2
	cfg.CircuitReset = time.Minute
	client, err := paygate.NewClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := client.CaptureOrder(ctx, "ord_x"); err == nil {
			t.Fatalf("expected failure %d", i)
		}
	}

	if _, err := client.CaptureOrder(ctx, "ord_x"); err != paygate.ErrCircuitOpen {
		t.Fatalf("expected ErrCircuitOpen got %v", err)
	}
}

func TestClient_InvalidBaseURL(t *testing.T) {
	if _, err := paygate.NewClient(testConfig("not a url"), nil); err == nil {
		t.Fatalf("expected error for invalid base url")
	}
}
