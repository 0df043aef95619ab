package api

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"log/slog"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/mcastilho/clientdesk/pkg/models"
)

type ctxKey string

const ctxIdentity ctxKey = "identity"

// Capability is what a request is allowed to do. Handlers check capabilities,
// never raw role strings, so adding a role touches only this table.
type Capability uint8

const (
	CapReadOwn Capability = 1 << iota
	CapReadAll
	CapWriteOwn
	CapWriteAll
)

var roleCaps = map[string]Capability{
	models.RoleAdmin:    CapReadOwn | CapReadAll | CapWriteOwn | CapWriteAll,
	models.RoleCustomer: CapReadOwn | CapWriteOwn,
}

// Identity is the authenticated caller, derived once by the JWT middleware.
type Identity struct {
	UserID int64
	Role   string
	caps   Capability
}

func (id Identity) Can(c Capability) bool { return id.caps&c == c }

// scope returns the clientID to pass to listing queries: 0 (all clients) for
// callers with read-all, the caller's own id otherwise.
func (id Identity) scope() int64 {
	if id.Can(CapReadAll) {
		return 0
	}
	return id.UserID
}

// identityFrom pulls the caller from the request context. The boolean is
// false on routes that skipped the JWT middleware.
func identityFrom(r *http.Request) (Identity, bool) {
	id, ok := r.Context().Value(ctxIdentity).(Identity)
	return id, ok
}

// package-level logger used by middleware and helpers; can be set via SetLogger from caller
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the api package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
		)
		next.ServeHTTP(w, r)
	})
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic", slog.Any("err", err))
				writeError(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// JWTAuthMiddlewareWithSecret validates the Bearer token and loads the
// caller's Identity (id, role, capability set) into the request context.
func JWTAuthMiddlewareWithSecret(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			var tokenString string
			if _, err := fmt.Sscanf(authHeader, "Bearer %s", &tokenString); err != nil {
				logger.Error("failed to parse Authorization header", slog.Any("err", err))
			}
			if tokenString == "" {
				writeError(w, "invalid Authorization header", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}

				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeError(w, "invalid token claims", http.StatusUnauthorized)
				return
			}

			var userID int64
			switch v := claims["sub"].(type) {
			case float64:
				userID = int64(v)
			case int64:
				userID = v
			}
			role, _ := claims["role"].(string)
			caps, known := roleCaps[role]
			if userID <= 0 || !known {
				writeError(w, "invalid token claims", http.StatusUnauthorized)
				return
			}

			ident := Identity{UserID: userID, Role: role, caps: caps}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxIdentity, ident)))
		})
	}
}

// RequireAdmin gates the admin subrouter on the read-all capability.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := identityFrom(r)
		if !ok {
			writeError(w, "not authenticated", http.StatusUnauthorized)
			return
		}
		if !ident.Can(CapReadAll) {
			writeError(w, "not authorized", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
