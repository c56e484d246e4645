package handlers

import (
	"errors"
	"net/http"

	"github.com/ledgerchat/ledgerchat/internal/ledger"
)

// RoomResponse represents the namespace counter state.
type RoomResponse struct {
	Namespace    string `json:"namespace"`
	MessageCount uint64 `json:"message_count"`
	Private      bool   `json:"private"`
}

// Room returns the namespace's counter record.
func (h *Handler) Room(w http.ResponseWriter, r *http.Request) {
	counter, err := h.ledger.Counter(r.Context())
	if errors.Is(err, ledger.ErrNotInitialized) {
		h.Error(w, http.StatusNotFound, "namespace not initialized")
		return
	}
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "store error")
		return
	}

	h.JSON(w, http.StatusOK, RoomResponse{
		Namespace:    h.ledger.Namespace(),
		MessageCount: counter.MessageCount,
		Private:      counter.IsPrivate(),
	})
}
