// Package paygate is the HTTP client for the hosted payment gateway. It adds
// retries, per-request timeouts, idempotency keys, and a circuit breaker on
// top of the gateway's order/capture REST API.
package paygate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mcastilho/clientdesk/internal/config"
)

var ErrCircuitOpen = errors.New("paygate circuit open")

// Client talks to the payment gateway with retries, timeout, and a circuit
// breaker.
type Client struct {
	cfg    config.GatewayConfig
	client *http.Client

	// circuit breaker state
	failures  int32
	openUntil int64 // unix nano
	closed    int32 // atomic flag for Close()
}

// Order is the gateway's representation of a pending checkout.
type Order struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	ApprovalURL string `json:"approval_url,omitempty"`
}

// Capture is the result of capturing an approved order.
type Capture struct {
	OrderID string `json:"order_id"`
	TxRef   string `json:"transaction_reference"`
	Status  string `json:"status"`
}

// createOrderRequest is the wire body for POST /orders.
type createOrderRequest struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// NewClient creates a gateway client. A nil httpClient gets a plain client
// with the configured timeout.
func NewClient(cfg config.GatewayConfig, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	c := &Client{
		cfg:    cfg,
		client: httpClient,
	}
	logger.Info("paygate: NewClient created", slog.String("base_url", cfg.BaseURL), slog.Duration("timeout", cfg.Timeout))
	return c, nil
}

// NewDefaultClient creates a gateway client with a tuned transport.
func NewDefaultClient(cfg config.GatewayConfig) (*Client, error) {
	defaultClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 15 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	return NewClient(cfg, defaultClient)
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.failures) < int32(c.cfg.CircuitFailureThreshold) {
		return false
	}

	if time.Now().UnixNano() < atomic.LoadInt64(&c.openUntil) {
		return true
	}

	// half-open: reset failures and allow a request through
	atomic.StoreInt32(&c.failures, 0)
	return false
}

func (c *Client) recordFailure() {
	v := atomic.AddInt32(&c.failures, 1)
	if v >= int32(c.cfg.CircuitFailureThreshold) {
		atomic.StoreInt64(&c.openUntil, time.Now().Add(c.cfg.CircuitReset).UnixNano())
	}
}

// Close releases idle connections on the underlying transport. Close is
// idempotent and safe to call multiple times.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if c.client != nil && c.client.Transport != nil {
		if tr, ok := c.client.Transport.(interface{ CloseIdleConnections() }); ok {
			tr.CloseIdleConnections()
			logger.Info("paygate: client Close() called - CloseIdleConnections invoked")
		}
	}
	return nil
}

// package-level logger for pkg/paygate; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/paygate. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Health pings the gateway's /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	if c.isCircuitOpen() {
		return ErrCircuitOpen
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.recordFailure()
		return fmt.Errorf("health endpoint returned status %d", resp.StatusCode)
	}

	atomic.StoreInt32(&c.failures, 0)
	return nil
}

// CreateOrder registers a checkout with the gateway for the given amount in
// cents. reference is the merchant-side identifier (the invoice number) and
// doubles as the idempotency scope: the same uuid request id is reused across
// retries of one call so the gateway never creates the order twice.
func (c *Client) CreateOrder(ctx context.Context, reference string, amount int64, currency string) (*Order, error) {
	if c.isCircuitOpen() {
		return nil, ErrCircuitOpen
	}
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", amount)
	}
	if currency == "" {
		currency = "USD"
	}

	body, err := json.Marshal(createOrderRequest{Reference: reference, Amount: amount, Currency: currency})
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		ctxReq, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		order, err := c.postOrder(ctxReq, "/orders", body, requestID)
		cancel()
		if err == nil {
			atomic.StoreInt32(&c.failures, 0)
			return order, nil
		}

		lastErr = err
		c.recordFailure()

		time.Sleep(c.cfg.Backoff * time.Duration(attempt+1))
		if c.isCircuitOpen() {
			return nil, ErrCircuitOpen
		}
	}

	return nil, fmt.Errorf("create order failed after retries: %w", lastErr)
}

// CaptureOrder captures an approved order. Capture is not retried: a timeout
// after the gateway moved money must surface to the operator, not repeat.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	if c.isCircuitOpen() {
		return nil, ErrCircuitOpen
	}
	if orderID == "" {
		return nil, fmt.Errorf("order id is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/capture", nil, uuid.NewString())
	if err != nil {
		c.recordFailure()
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("capture order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.recordFailure()
		return nil, fmt.Errorf("capture endpoint returned status %d", resp.StatusCode)
	}

	var out Capture
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.recordFailure()
		return nil, err
	}
	if out.OrderID == "" {
		out.OrderID = orderID
	}

	atomic.StoreInt32(&c.failures, 0)
	return &out, nil
}

func (c *Client) postOrder(ctx context.Context, path string, body []byte, requestID string) (*Order, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body), requestID)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("orders endpoint returned status %d", resp.StatusCode)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, fmt.Errorf("gateway returned order without id")
	}

	return &order, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body *bytes.Reader, requestID string) (*http.Request, error) {
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	u := base.ResolveReference(&url.URL{Path: path})

	var req *http.Request
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, u.String(), body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u.String(), nil)
	}
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set("Request-Id", requestID)
	}

	return req, nil
}
