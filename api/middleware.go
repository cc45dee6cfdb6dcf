package api

import (
	"context"
	"net/http"
	"strings"

	"govflow/authz"
)

type contextKey string

const callerKey contextKey = "caller"

// Caller identifies the authenticated reviewer behind a request.
type Caller struct {
	ProfileID   string
	AccessLevel authz.AccessLevel
	Role        authz.AccountRole
}

// CallerFrom extracts the authenticated caller, if any.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey).(Caller)
	return c, ok
}

// authed wraps a handler with bearer token verification. Requests
// without a valid token answer 401.
func (h *Handler) authed(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		profileID, level, role, err := h.verify.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		caller := Caller{ProfileID: profileID, AccessLevel: level, Role: role}
		next(w, r.WithContext(context.WithValue(r.Context(), callerKey, caller)))
	})
}
