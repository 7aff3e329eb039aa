package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"charchive/internal/catalog"
	"charchive/internal/handlers"
	"charchive/internal/logging"
	"charchive/internal/maintenance"
	"charchive/internal/metrics"
	"charchive/internal/middleware"
	"charchive/internal/startup"
	"charchive/internal/tagalias"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	expander := tagalias.NewExpander(loadAliases(config.AliasesFile))

	dbStart := time.Now()
	store, err := catalog.New(context.Background(), config.DatabasePath, expander)
	if err != nil {
		logging.Fatal("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Warn("Error closing database: %v", err)
		}
	}()
	startup.LogDatabaseInit(time.Since(dbStart))

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
	}

	startup.LogMaintenanceInit(config.IndexCheckInterval)
	maintainer := maintenance.New(store, config.IndexCheckInterval)
	maintainer.Start()
	startup.LogMaintenanceStarted()

	collector := metrics.NewCollector(store, config.StatsInterval)
	collector.Start()

	h := handlers.New(store, maintainer)

	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)

	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsRouter := mux.NewRouter()
		metricsRouter.Handle("/metrics", h.MetricsHandler()).Methods("GET")
		metricsSrv = &http.Server{
			Addr:         ":" + config.MetricsPort,
			Handler:      metricsRouter,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, maintainer, collector)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

// loadAliases loads the alias table, or returns an empty one when no
// file is configured.
func loadAliases(path string) *tagalias.Table {
	if path == "" {
		logging.Info("No aliases file configured, tag matching is exact-string plus fuzzy")
		return tagalias.NewTable(nil)
	}
	return tagalias.Load(path)
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/search", h.Search).Methods("GET")
	api.HandleFunc("/cards", h.UpsertCard).Methods("PUT")
	api.HandleFunc("/cards/batch", h.GetCardsBatch).Methods("POST")
	api.HandleFunc("/cards/{id}", h.GetCard).Methods("GET")
	api.HandleFunc("/cards/{id}", h.DeleteCard).Methods("DELETE")
	api.HandleFunc("/cards/{id}/favorite", h.ToggleFavorite).Methods("POST")
	api.HandleFunc("/topics", h.GetTopics).Methods("GET")
	api.HandleFunc("/languages", h.GetLanguages).Methods("GET")
	api.HandleFunc("/aliases", h.GetAliases).Methods("GET")
	api.HandleFunc("/aliases/expand", h.ExpandTag).Methods("GET")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/reindex", h.TriggerReindex).Methods("POST")
	api.HandleFunc("/vacuum", h.Vacuum).Methods("POST")

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, maintainer *maintenance.Maintainer, collector *metrics.Collector) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping maintenance loop")
	maintainer.Stop()
	startup.LogShutdownStepComplete("Maintenance loop stopped")

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
