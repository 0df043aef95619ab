package api_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcastilho/clientdesk/api"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := api.CORSMiddleware(next)

	// OPTIONS short-circuits with 204
	req := httptest.NewRequest(http.MethodOptions, "/cors", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", res.StatusCode)
	}
	if res.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}

	// regular requests pass through
	req = httptest.NewRequest(http.MethodGet, "/cors", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Result().StatusCode)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := api.RecoveryMiddleware(next)

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), `"error"`) {
		t.Fatalf("expected error body, got %q", string(b))
	}
}

func TestJWTAuthMiddleware(t *testing.T) {
	secret := "testsecret"
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := api.JWTAuthMiddlewareWithSecret(secret)(next)

	run := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Result().StatusCode
	}

	if got := run(""); got != http.StatusUnauthorized {
		t.Fatalf("missing header: expected 401 got %d", got)
	}
	if got := run("Bearer notatoken"); got != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401 got %d", got)
	}

	// expired token
	expired := signToken(t, secret, jwt.MapClaims{
		"sub": 1, "role": "CUSTOMER", "exp": time.Now().Add(-time.Hour).Unix(),
	})
	if got := run("Bearer " + expired); got != http.StatusUnauthorized {
		t.Fatalf("expired token: expected 401 got %d", got)
	}

	// wrong secret
	foreign := signToken(t, "othersecret", jwt.MapClaims{
		"sub": 1, "role": "CUSTOMER", "exp": time.Now().Add(time.Hour).Unix(),
	})
	if got := run("Bearer " + foreign); got != http.StatusUnauthorized {
		t.Fatalf("foreign token: expected 401 got %d", got)
	}

	// unknown role
	unknownRole := signToken(t, secret, jwt.MapClaims{
		"sub": 1, "role": "SUPERUSER", "exp": time.Now().Add(time.Hour).Unix(),
	})
	if got := run("Bearer " + unknownRole); got != http.StatusUnauthorized {
		t.Fatalf("unknown role: expected 401 got %d", got)
	}

	// valid token
	valid := signToken(t, secret, jwt.MapClaims{
		"sub": 1, "role": "CUSTOMER", "exp": time.Now().Add(time.Hour).Unix(),
	})
	if got := run("Bearer " + valid); got != http.StatusOK {
		t.Fatalf("valid token: expected 200 got %d", got)
	}
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	env := newTestEnv(t)
	custToken, _ := env.signupCustomer(t, "cust@example.com")
	adminToken := env.seedAdmin(t)

	// customers hit 403 on the admin subrouter
	status, _ := env.do(t, http.MethodGet, "/v1/admin/customers", custToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("customer on admin route: expected 403 got %d", status)
	}

	// anonymous hits 401 before the role gate
	status, _ = env.do(t, http.MethodGet, "/v1/admin/customers", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("anonymous on admin route: expected 401 got %d", status)
	}

	status, _ = env.do(t, http.MethodGet, "/v1/admin/customers", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("admin on admin route: expected 200 got %d", status)
	}
}
