package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/example/respondr-dispatch/internal/errs"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps each error kind to a distinct response status.
func statusFor(k errs.Kind) int {
	switch k {
	case errs.Validation:
		return http.StatusBadRequest
	case errs.NotFound:
		return http.StatusNotFound
	case errs.Conflict:
		return http.StatusConflict
	case errs.ResourceExhausted:
		return http.StatusGone
	case errs.DependencyMissing:
		return http.StatusUnprocessableEntity
	case errs.NoResponderAvailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError maps the error taxonomy onto HTTP. Only the caller-safe
// message leaves the process; the wrapped cause goes to the log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)
	if status >= 500 {
		s.logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err,
			"request_id", requestIDFromContext(r.Context()))
	}
	s.writeJSON(w, status, map[string]any{
		"error":   kind.String(),
		"message": errs.Message(err),
	})
}
