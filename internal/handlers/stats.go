package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/ledgerchat/ledgerchat/internal/ledger"
)

// StatsResponse represents aggregate namespace statistics.
type StatsResponse struct {
	Namespace     string `json:"namespace"`
	TotalMessages uint64 `json:"total_messages"`
	LastActivity  string `json:"last_activity"`
}

// Stats returns aggregate statistics for the namespace.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	counter, err := h.ledger.Counter(r.Context())
	if errors.Is(err, ledger.ErrNotInitialized) {
		h.Error(w, http.StatusNotFound, "namespace not initialized")
		return
	}
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "store error")
		return
	}

	lastActivity := "no activity yet"
	if counter.MessageCount > 0 {
		// The newest record carries the last activity timestamp. Scan only
		// when something exists; a gap here just means an append in flight.
		records, err := h.ledger.ScanAll(r.Context())
		if err != nil {
			h.logger.Warn().Err(err).Msg("stats scan failed, omitting last activity")
		} else if len(records) > 0 {
			last := records[len(records)-1]
			lastActivity = time.Unix(last.Timestamp, 0).UTC().Format(time.RFC3339)
		}
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		Namespace:     h.ledger.Namespace(),
		TotalMessages: counter.MessageCount,
		LastActivity:  lastActivity,
	})
}
