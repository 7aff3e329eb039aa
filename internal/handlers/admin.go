package handlers

import (
	"context"
	"net/http"

	"charchive/internal/logging"
)

// TriggerReindex starts a topic index rebuild in the background and
// returns immediately. A rebuild already in flight makes this a no-op.
func (h *Handlers) TriggerReindex(w http.ResponseWriter, _ *http.Request) {
	if h.maintainer.IsRebuilding() {
		writeJSONStatus(w, "already_running")
		return
	}

	// The rebuild outlives the request, so it cannot run on the
	// request context.
	go func() {
		if err := h.maintainer.TriggerRebuild(context.Background()); err != nil {
			logging.Error("Manual reindex failed: %v", err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	writeJSONStatus(w, "started")
}

// Vacuum compacts the database file.
func (h *Handlers) Vacuum(w http.ResponseWriter, _ *http.Request) {
	if err := h.store.Vacuum(); err != nil {
		writeJSONError(w, "Vacuum failed", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "ok")
}
