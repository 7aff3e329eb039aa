package handlers

import (
	"net/http"
	"strconv"

	"charchive/internal/catalog"
)

// GetTopics returns the most used topics with card counts.
func (h *Handlers) GetTopics(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	topics, err := h.store.ListTopics(r.Context(), limit)
	if err != nil {
		writeJSONError(w, "Failed to list topics", http.StatusInternalServerError)
		return
	}

	if topics == nil {
		topics = []catalog.TopicCount{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, topics)
}

// GetAliases returns the loaded alias groups.
func (h *Handlers) GetAliases(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, h.store.Expander().Table().Snapshot())
}

// ExpandTag shows how a single tag resolves through the alias table,
// useful for debugging why a search matched.
func (h *Handlers) ExpandTag(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		writeJSONError(w, "Tag is required", http.StatusBadRequest)
		return
	}

	variants, kind := h.store.Expander().ExpandWithKind(tag)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"tag":        tag,
		"resolution": kind,
		"variants":   variants,
	})
}

// GetLanguages returns the distinct card languages with counts.
func (h *Handlers) GetLanguages(w http.ResponseWriter, r *http.Request) {
	langs, err := h.store.Languages(r.Context())
	if err != nil {
		writeJSONError(w, "Failed to get languages", http.StatusInternalServerError)
		return
	}

	if langs == nil {
		langs = []catalog.LanguageCount{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, langs)
}
