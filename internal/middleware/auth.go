package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Dan9191/issue-tracker/internal/auth"
	"github.com/sirupsen/logrus"
)

type contextKey int

const claimsKey contextKey = iota

// Authenticator validates a raw bearer token
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

// RequireAuth validates the Authorization bearer token and injects its claims
// into the request context. Bad tokens get 401; a failing revocation lookup gets 500.
func RequireAuth(authn Authenticator, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			claims, err := authn.Authenticate(r.Context(), token)
			if errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if err != nil {
				log.Errorf("Failed to authenticate request: %v", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by RequireAuth
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// UserIDFromContext returns the authenticated user's id, or "" outside RequireAuth
func UserIDFromContext(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok {
		return claims.UserID
	}
	return ""
}

// WithClaims stores claims in ctx the way RequireAuth does
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
