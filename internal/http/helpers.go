package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joujou-angel/Traveller2-sub000/internal/core"
	"github.com/joujou-angel/Traveller2-sub000/internal/storage"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

// Stable machine-readable error codes.
const (
	codeInvalidRequest    = "invalid_request"
	codeUnauthorized      = "unauthorized"
	codeForbidden         = "forbidden"
	codeNotFound          = "not_found"
	codeConflict          = "conflict"
	codeRateLimited       = "rate_limited"
	codeConfigIncomplete  = "configuration_incomplete"
	codeSourceUnavailable = "source_unavailable"
	codeInternal          = "internal_error"
)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeStoreError maps storage failures onto the API error taxonomy.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "resource not found")
	case errors.Is(err, storage.ErrNotMember):
		writeError(w, http.StatusForbidden, codeForbidden, "not a member of this trip")
	default:
		slog.ErrorContext(r.Context(), "Storage operation failed", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidRange,
		core.ErrInvalidAmount,
		core.ErrEmptyName,
		core.ErrEmptyPayer,
		core.ErrUnknownCurrency,
		core.ErrEmptyDisplayName,
		core.ErrEmptyBody,
		core.ErrEmptyTitle,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func requestUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}
