package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charchive_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "charchive_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "charchive_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charchive_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "charchive_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "charchive_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"outcome"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "charchive_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Search metrics
var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charchive_searches_total",
			Help: "Total number of card searches",
		},
		[]string{"status"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "charchive_search_duration_seconds",
			Help:    "Card search duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	TagExpansionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charchive_tag_expansions_total",
			Help: "Total number of tag expansions by resolution kind",
		},
		[]string{"kind"}, // "exact", "fuzzy", "none"
	)
)

// Topic index rebuild metrics
var (
	RebuildRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charchive_topic_rebuild_runs_total",
			Help: "Total number of topic index rebuild runs",
		},
		[]string{"status"},
	)

	RebuildLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "charchive_topic_rebuild_last_run_timestamp",
			Help: "Timestamp of the last topic index rebuild",
		},
	)

	RebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "charchive_topic_rebuild_duration_seconds",
			Help:    "Topic index rebuild duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	RebuildBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "charchive_topic_rebuild_batches_total",
			Help: "Total number of batch transactions committed during rebuilds",
		},
	)

	RebuildRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "charchive_topic_rebuild_running",
			Help: "Whether a topic index rebuild is currently running (1 = running, 0 = idle)",
		},
	)
)

// Archive gauges kept in sync by the Collector
var (
	CardsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "charchive_cards_total",
			Help: "Total number of cards in the archive",
		},
	)

	TaggedCardsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "charchive_tagged_cards_total",
			Help: "Number of cards with a non-empty topic field",
		},
	)

	IndexedTopicsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "charchive_indexed_topics_total",
			Help: "Number of rows in the normalized topic index",
		},
	)

	FavoriteCardsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "charchive_favorite_cards_total",
			Help: "Number of cards the user has favorited",
		},
	)

	LanguagesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "charchive_languages_total",
			Help: "Number of distinct card languages",
		},
	)
)
