package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"vtlookup/internal/frame"
	"vtlookup/internal/vt"
)

type errorBody struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, vt.ErrUnsupportedKind),
		errors.Is(err, vt.ErrMissingColumn),
		errors.Is(err, vt.ErrEmptyInput):
		return http.StatusBadRequest
	case vt.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, vt.ErrLookupFailed):
		return http.StatusBadGateway
	case errors.Is(err, errNoRepository):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "err", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// writeTable answers with CSV when the client accepts it, JSON records otherwise.
func (s *Server) writeTable(w http.ResponseWriter, r *http.Request, t *frame.Table) {
	if strings.Contains(r.Header.Get("Accept"), "text/csv") {
		w.Header().Set("Content-Type", "text/csv")
		if err := t.WriteCSV(w); err != nil {
			s.logger.Error("write csv failed", "err", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
