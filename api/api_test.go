package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcastilho/clientdesk/api"
	dbfs "github.com/mcastilho/clientdesk/db"
	"github.com/mcastilho/clientdesk/internal/config"
	dbpkg "github.com/mcastilho/clientdesk/internal/db"
	sqlite "github.com/mcastilho/clientdesk/internal/repository/sqlite"
	"github.com/mcastilho/clientdesk/pkg/models"
	"github.com/mcastilho/clientdesk/pkg/paygate"
)

// fakeGateway satisfies api.Gateway without network traffic.
type fakeGateway struct {
	createErr  error
	captureErr error
	orders     int
	captures   int
}

func (g *fakeGateway) CreateOrder(ctx context.Context, reference string, amount int64, currency string) (*paygate.Order, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.orders++
	return &paygate.Order{ID: fmt.Sprintf("ord_%d", g.orders), Status: "CREATED", ApprovalURL: "https://pay.example/approve"}, nil
}

func (g *fakeGateway) CaptureOrder(ctx context.Context, orderID string) (*paygate.Capture, error) {
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	g.captures++
	return &paygate.Capture{OrderID: orderID, TxRef: fmt.Sprintf("tx_%d", g.captures), Status: "COMPLETED"}, nil
}

// fakeQueue records enqueued job types.
type fakeQueue struct {
	mu    sync.Mutex
	types []string
}

func (q *fakeQueue) Enqueue(ctx context.Context, typ string, payload any, priority, maxAttempts int) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.types = append(q.types, typ)
	return int64(len(q.types)), nil
}

func (q *fakeQueue) enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.types))
	copy(out, q.types)
	return out
}

type testEnv struct {
	srv     *httptest.Server
	repo    *sqlite.SQLiteRepo
	gateway *fakeGateway
	queue   *fakeQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	d, err := dbpkg.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations); err != nil {
		d.Close()
		t.Fatalf("failed to migrate: %v", err)
	}

	cfg := &config.Config{JWTSecret: "testsecret", TokenDuration: time.Hour}
	gw := &fakeGateway{}
	queue := &fakeQueue{}
	router, err := api.SetupRoutes(cfg, "test", "now", d, gw, queue)
	if err != nil {
		d.Close()
		t.Fatalf("SetupRoutes: %v", err)
	}

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		d.Close()
	})

	return &testEnv{srv: srv, repo: sqlite.New(d, nil), gateway: gw, queue: queue}
}

// seedAdmin creates an admin directly; the signup endpoint only mints
// customers.
func (e *testEnv) seedAdmin(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("adminpass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if _, err := e.repo.CreateUser(context.Background(), &models.User{
		Name: "Admin", Email: "admin@example.com", PasswordHash: string(hash), Role: models.RoleAdmin,
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return e.signin(t, "admin@example.com", "adminpass")
}

// signupCustomer registers over the wire and returns the token and user id.
func (e *testEnv) signupCustomer(t *testing.T, email string) (string, int64) {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"name": "Customer", "email": email, "password": "customerpass",
	})
	if status != http.StatusCreated {
		t.Fatalf("signup returned %d: %s", status, body)
	}
	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	return resp.Token, resp.User.ID
}

func (e *testEnv) signin(t *testing.T, email, password string) string {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/v1/auth/signin", "", map[string]string{
		"email": email, "password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("signin returned %d: %s", status, body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode signin response: %v", err)
	}
	return resp.Token
}

// do performs a request with optional bearer token and JSON body.
func (e *testEnv) do(t *testing.T, method, path, token string, payload any) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		if s, ok := payload.(string); ok {
			body = bytes.NewBufferString(s)
		} else {
			b, err := json.Marshal(payload)
			if err != nil {
				t.Fatalf("marshal payload: %v", err)
			}
			body = bytes.NewBuffer(b)
		}
	}

	req, err := http.NewRequest(method, e.srv.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res.StatusCode, b
}

func TestHealthAndVersion(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK {
		t.Fatalf("health returned %d", status)
	}
	if !bytes.Contains(body, []byte(`"status":"ok"`)) {
		t.Fatalf("unexpected health body: %s", body)
	}

	status, body = env.do(t, http.MethodGet, "/version", "", nil)
	if status != http.StatusOK {
		t.Fatalf("version returned %d", status)
	}
	if !bytes.Contains(body, []byte(`"version":"test"`)) {
		t.Fatalf("unexpected version body: %s", body)
	}
}

func TestSignupSigninFlow(t *testing.T) {
	env := newTestEnv(t)

	token, userID := env.signupCustomer(t, "alice@example.com")
	if token == "" || userID <= 0 {
		t.Fatalf("unexpected signup result: token=%q id=%d", token, userID)
	}

	// duplicate email is rejected with a validation error
	status, body := env.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"name": "Alice Again", "email": "alice@example.com", "password": "customerpass",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("duplicate signup returned %d: %s", status, body)
	}
	var errBody struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errBody); err != nil || errBody.Error == "" {
		t.Fatalf("expected {\"error\": ...} body, got %s", body)
	}

	// wrong password
	status, _ = env.do(t, http.MethodPost, "/v1/auth/signin", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("bad signin returned %d", status)
	}

	// good password
	if tok := env.signin(t, "alice@example.com", "customerpass"); tok == "" {
		t.Fatalf("empty token")
	}

	// short password is rejected
	status, _ = env.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"name": "Bob", "email": "bob@example.com", "password": "short",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("short password signup returned %d", status)
	}

	// signout is a stateless ack
	status, _ = env.do(t, http.MethodPost, "/v1/auth/signout", token, nil)
	if status != http.StatusOK {
		t.Fatalf("signout returned %d", status)
	}
}

func TestSignupRoleIsAlwaysCustomer(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"name": "Mallory", "email": "mallory@example.com", "password": "password1", "role": "ADMIN",
	})
	if status != http.StatusCreated {
		t.Fatalf("signup returned %d: %s", status, body)
	}
	var resp struct {
		User struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.User.Role != models.RoleCustomer {
		t.Fatalf("expected CUSTOMER role got %q", resp.User.Role)
	}
}
