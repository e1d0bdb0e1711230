package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Identity headers set by the auth collaborator in front of this service.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// ErrorResponse is the JSON body of every error this service writes.
type ErrorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Identity stores the caller's user id and role in the request context when
// the headers are present. It never rejects a request.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if uid := strings.TrimSpace(r.Header.Get(HeaderUserID)); uid != "" {
			ctx = WithUserID(ctx, uid)
		}
		if role := strings.TrimSpace(r.Header.Get(HeaderUserRole)); role != "" {
			ctx = context.WithValue(ctx, ctxUserRole, role)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects requests without an X-User-Id with 400.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == "" {
			writeError(w, r, http.StatusBadRequest, "missing required header: "+HeaderUserID)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers whose X-User-Role differs from role with 403.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.EqualFold(GetUserRole(r.Context()), role) {
				writeError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxUserID, uid)
}

func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func GetUserRole(ctx context.Context) string {
	if v, ok := ctx.Value(ctxUserRole).(string); ok {
		return v
	}
	return ""
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:         msg,
		CorrelationID: GetCorrelationID(r.Context()),
	})
}
