package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/haasonsaas/parley/internal/observability"
)

// DefaultUserID identifies requests when authentication is disabled.
const DefaultUserID = "default_user"

// UserID extracts the authenticated user id placed in the request
// context by Middleware.
func UserID(r *http.Request) string {
	if id, ok := r.Context().Value(observability.UserIDKey).(string); ok {
		return id
	}
	return ""
}

// Middleware resolves the Authorization header into a user id on the
// request context. With auth disabled every request runs as
// DefaultUserID; otherwise a missing or invalid bearer token is a 401.
func Middleware(svc *Service, logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !svc.Enabled() {
				ctx := observability.WithValue(r.Context(), observability.UserIDKey, DefaultUserID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "Could not validate credentials")
				return
			}
			userID, err := svc.UserIDFromToken(token)
			if err != nil {
				logger.Debug(r.Context(), "rejected bearer token", "error", err)
				unauthorized(w, "Could not validate credentials")
				return
			}

			ctx := observability.WithValue(r.Context(), observability.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
