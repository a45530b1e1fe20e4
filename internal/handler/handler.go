// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/store"
)

// Handler holds the plain endpoints that need no dependencies.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Hello is the root info endpoint.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"message": "F-Droid metrics dashboard API",
		"version": "0.1.0",
	}
	writeJSON(w, http.StatusOK, response)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already sent; nothing useful left to do.
		_ = err
	}
}

// errorBody is the error envelope shared by all endpoints.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeDomainError maps store errors onto HTTP statuses. Anything not in
// the domain taxonomy reports a 500 without leaking internals.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no snapshot data for the requested date")
	case errors.Is(err, store.ErrMalformedData):
		writeError(w, http.StatusInternalServerError, "MALFORMED_DATA", "snapshot data is corrupt")
	case errors.Is(err, store.ErrPathOutsideRoot):
		writeError(w, http.StatusBadRequest, "INVALID_NAME", "invalid identifier")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

// errInvalidDateParam tags malformed date query parameters.
var errInvalidDateParam = errors.New("invalid date parameter")

// dateRangeParams reads optional start/end query parameters. Both absent
// means "all dates" (nil filter). A present parameter must be a valid
// YYYY-MM-DD string.
func dateRangeParams(r *http.Request) (start, end string, err error) {
	start = r.URL.Query().Get("start")
	end = r.URL.Query().Get("end")
	if start != "" && !store.ValidDate(start) {
		return "", "", errInvalidDateParam
	}
	if end != "" && !store.ValidDate(end) {
		return "", "", errInvalidDateParam
	}
	return start, end, nil
}

// filterDates restricts a sorted date list to the inclusive [start, end]
// window. Empty bounds are open.
func filterDates(dates []string, start, end string) []string {
	if start == "" && end == "" {
		return dates
	}
	filtered := make([]string, 0, len(dates))
	for _, d := range dates {
		if start != "" && d < start {
			continue
		}
		if end != "" && d > end {
			continue
		}
		filtered = append(filtered, d)
	}
	return filtered
}
