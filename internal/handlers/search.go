package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"charchive/internal/catalog"
)

// Search runs a filtered card search. Every filter arrives as a query
// parameter; absent parameters are no-ops. The ids and creators
// parameters distinguish absent (no filter) from present-but-empty
// (explicit empty allow-list, zero results).
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := catalog.SearchOptions{
		Query:       q.Get("q"),
		TitleQuery:  q.Get("title"),
		AuthorQuery: q.Get("author"),
		Tags:        splitParam(q.Get("tags")),
		TagMode:     catalog.TagMode(q.Get("tagMode")),
		ExcludeTags: splitParam(q.Get("exclude")),
		Language:    q.Get("language"),
		Source:      q.Get("source"),
		Favorite:    catalog.FavoriteFilter(q.Get("favorite")),
		Sort:        catalog.SortKey(q.Get("sort")),
		Page:        1,
		PageSize:    50,
	}

	if minTokens, err := strconv.Atoi(q.Get("minTokens")); err == nil && minTokens > 0 {
		opts.MinTokens = minTokens
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		opts.Page = page
	}
	if pageSize, err := strconv.Atoi(q.Get("pageSize")); err == nil && pageSize > 0 {
		opts.PageSize = pageSize
	}

	opts.NSFWOnly = boolParam(q.Get("nsfw"))
	opts.GalleryOnly = boolParam(q.Get("gallery"))
	opts.LorebookOnly = boolParam(q.Get("lorebook"))
	opts.AltGreetingsOnly = boolParam(q.Get("altGreetings"))
	opts.ExampleDialogsOnly = boolParam(q.Get("exampleDialogs"))
	opts.ScenarioOnly = boolParam(q.Get("scenario"))
	opts.SystemPromptOnly = boolParam(q.Get("systemPrompt"))
	opts.CreatorNotesOnly = boolParam(q.Get("creatorNotes"))

	if q.Has("ids") {
		opts.AllowedIDs = splitParamKeepEmpty(q.Get("ids"))
	}
	if q.Has("creators") {
		opts.Creators = splitParamKeepEmpty(q.Get("creators"))
	}

	result, err := h.store.SearchCards(r.Context(), opts)
	if err != nil {
		writeJSONError(w, "Search failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// splitParam splits a comma-joined parameter, dropping empty entries.
// Returns nil for a blank input.
func splitParam(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitParamKeepEmpty is splitParam except a blank input yields an
// empty non-nil slice, preserving explicit-empty allow-list semantics.
func splitParamKeepEmpty(value string) []string {
	out := splitParam(value)
	if out == nil {
		out = []string{}
	}
	return out
}

func boolParam(value string) bool {
	parsed, err := strconv.ParseBool(value)
	return err == nil && parsed
}
