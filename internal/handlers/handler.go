package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ledgerchat/ledgerchat/internal/ledger"
)

// Handler contains shared dependencies for all HTTP handlers. The gateway is
// read-only: appends never pass through it.
type Handler struct {
	ledger *ledger.Ledger
	logger zerolog.Logger
}

// NewHandler creates a new Handler over the given ledger.
func NewHandler(led *ledger.Ledger, logger zerolog.Logger) *Handler {
	return &Handler{ledger: led, logger: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// authorizeRead gates reads of private namespaces behind the X-Room-Key
// header. Public namespaces pass through.
func (h *Handler) authorizeRead(w http.ResponseWriter, r *http.Request) bool {
	err := h.ledger.VerifyAccessKey(r.Context(), r.Header.Get("X-Room-Key"))
	switch {
	case err == nil:
		return true
	case errors.Is(err, ledger.ErrAccessDenied):
		h.Error(w, http.StatusForbidden, "invalid room key")
		return false
	case errors.Is(err, ledger.ErrNotInitialized):
		h.Error(w, http.StatusNotFound, "namespace not initialized")
		return false
	default:
		h.Error(w, http.StatusInternalServerError, "store error")
		return false
	}
}
