package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// envelope is the body of every response.
type envelope struct {
	Status  bool   `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

type pageMeta struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Status: true, Message: message, Data: data})
}

// writeError maps err to a status code. Client errors keep their message;
// forbidden and server errors get a generic one.
func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error, data any) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, envelope{Status: false, Code: code, Message: message, Data: data})
}

func classify(err error) (int, string, string) {
	var gerr *goerrors.Error
	if !errors.As(err, &gerr) {
		return http.StatusInternalServerError, "INTERNAL_ERROR", http.StatusText(http.StatusInternalServerError)
	}

	status := gerr.Code
	if status == 0 {
		status = statusForCategory(gerr.Category)
	}

	switch {
	case status == http.StatusForbidden:
		return status, gerr.TextCode, http.StatusText(http.StatusForbidden)
	case status >= http.StatusInternalServerError && status != http.StatusBadGateway:
		return status, gerr.TextCode, http.StatusText(status)
	default:
		return status, gerr.TextCode, gerr.Message
	}
}

func statusForCategory(c goerrors.Category) int {
	switch c {
	case goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(msg string) error {
	return goerrors.New(msg, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode("INVALID_INPUT")
}
