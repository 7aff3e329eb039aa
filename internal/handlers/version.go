package handlers

import (
	"net/http"

	"charchive/internal/startup"
)

// GetVersion serves the build information stamped in at link time.
// Uncached so a rolling deploy is visible immediately.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, startup.GetBuildInfo())
}
