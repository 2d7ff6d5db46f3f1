package authapi

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Identity is the caller identity exposed to protected handlers.
type Identity struct {
	UserID   string
	Username string
	Roles    []string
}

type ctxKey int

const identityKey ctxKey = iota

// IdentityFromContext returns the authenticated caller, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// RequireAuth validates the bearer access token and injects the caller's
// identity into the request context.
//
// The check is stateless: only signature and expiry decide validity.
// Revocation applies at the refresh boundary, which is why access tokens
// are kept short-lived.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing_credential", "authorization header required")
			return
		}

		parts := strings.Fields(raw)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, http.StatusUnauthorized, "malformed_credential", "expected 'Bearer <token>'")
			return
		}

		claims, err := h.sessions.VerifyAccess(parts[1], time.Now().UTC())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_credential", "invalid or expired token")
			return
		}

		id := Identity{
			UserID:   claims.UserID(),
			Username: claims.Username,
			Roles:    claims.Roles,
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}
