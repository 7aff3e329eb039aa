package metrics

// InitializeMetrics pre-populates the expected label combinations so
// that every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	dbOps := []string{
		"initialize_schema", "upsert_card", "search_cards", "get_cards_by_ids",
		"toggle_favorite", "delete_card", "languages", "list_topics",
		"replace_topics", "needs_rebuild", "rebuild_topic_index", "vacuum",
	}
	for _, op := range dbOps {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}

	for _, status := range []string{"success", "error"} {
		SearchesTotal.WithLabelValues(status)
		RebuildRunsTotal.WithLabelValues(status)
	}

	for _, kind := range []string{"exact", "fuzzy", "none"} {
		TagExpansionsTotal.WithLabelValues(kind)
	}
}
