package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ledgerchat/ledgerchat/internal/identity"
	"github.com/ledgerchat/ledgerchat/internal/ledger"
	"github.com/ledgerchat/ledgerchat/internal/models"
)

const defaultMessageLimit = 100

// MessagesResponse represents the message list response. Content is the
// raw ledger ciphertext (base64); the gateway never decrypts.
type MessagesResponse struct {
	Namespace string                 `json:"namespace"`
	Messages  []models.MessageRecord `json:"messages"`
}

// Messages lists ledger records, optionally filtered to one recipient via
// ?recipient=<base64 identity>. Records come back in message_id order.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeRead(w, r) {
		return
	}

	limit := defaultMessageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	var (
		records []models.MessageRecord
		err     error
	)
	if v := r.URL.Query().Get("recipient"); v != "" {
		recipient, perr := identity.Parse(v)
		if perr != nil {
			h.Error(w, http.StatusBadRequest, "invalid recipient identity")
			return
		}
		records, err = h.ledger.ScanForRecipient(r.Context(), recipient)
	} else {
		records, err = h.ledger.ScanAll(r.Context())
	}
	if errors.Is(err, ledger.ErrNotInitialized) {
		h.Error(w, http.StatusNotFound, "namespace not initialized")
		return
	}
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "store error")
		return
	}

	// Newest records are the interesting ones; keep the tail.
	if len(records) > limit {
		records = records[len(records)-limit:]
	}

	h.JSON(w, http.StatusOK, MessagesResponse{
		Namespace: h.ledger.Namespace(),
		Messages:  records,
	})
}
