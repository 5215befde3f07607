package httpapi

import (
	"context"
	"net/http"
)

// Role is the pre-verified caller role set by the upstream gateway.
type Role string

const (
	RolePublic    Role = "Public"
	RoleResponder Role = "Responder"
	RoleAdmin     Role = "Admin"
)

const (
	subjectKey contextKey = "subject-id"
	roleKey    contextKey = "role"
)

// requireRole trusts the gateway-verified X-User-ID / X-Role headers and
// gates the handler on the expected role. Admin passes every gate.
func (s *Server) requireRole(role Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject := r.Header.Get("X-User-ID")
		got := Role(r.Header.Get("X-Role"))
		if subject == "" || got == "" {
			http.Error(w, "missing identity", http.StatusUnauthorized)
			return
		}
		if got != role && got != RoleAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		ctx := context.WithValue(r.Context(), subjectKey, subject)
		ctx = context.WithValue(ctx, roleKey, got)
		next(w, r.WithContext(ctx))
	}
}

func subjectID(ctx context.Context) string {
	if v, ok := ctx.Value(subjectKey).(string); ok {
		return v
	}
	return ""
}

func roleFromContext(ctx context.Context) Role {
	if v, ok := ctx.Value(roleKey).(Role); ok {
		return v
	}
	return ""
}
