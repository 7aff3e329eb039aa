package maintenance

import (
	"context"
	"sync"
	"time"

	"charchive/internal/catalog"
	"charchive/internal/logging"
)

// Maintainer keeps the topic index consistent with the cards table. It
// runs one consistency check at startup and then re-checks on a fixed
// interval, rebuilding only when the check reports drift. Manual
// rebuilds can be triggered through TriggerRebuild at any time; only
// one rebuild runs at once.
type Maintainer struct {
	store         *catalog.Store
	checkInterval time.Duration
	stopChan      chan struct{}

	mu                   sync.Mutex
	isRebuilding         bool
	lastCheckTime        time.Time
	lastRebuildTime      time.Time
	lastCheckReason      string
	initialCheckComplete bool
	initialCheckError    error
	startTime            time.Time
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready             bool      `json:"ready"`
	Rebuilding        bool      `json:"rebuilding"`
	StartTime         time.Time `json:"startTime"`
	Uptime            string    `json:"uptime"`
	LastChecked       time.Time `json:"lastChecked,omitempty"`
	LastRebuilt       time.Time `json:"lastRebuilt,omitempty"`
	LastCheckReason   string    `json:"lastCheckReason,omitempty"`
	InitialCheckError string    `json:"initialCheckError,omitempty"`
}

// New creates a new Maintainer instance.
func New(store *catalog.Store, checkInterval time.Duration) *Maintainer {
	return &Maintainer{
		store:         store,
		checkInterval: checkInterval,
		stopChan:      make(chan struct{}),
		startTime:     time.Now(),
	}
}

// Start begins the maintenance loop.
func (m *Maintainer) Start() {
	go func() {
		logging.Info("Running startup index consistency check...")
		if err := m.checkOnce(context.Background()); err != nil {
			logging.Error("Startup index check error: %v", err)
			m.mu.Lock()
			m.initialCheckError = err
			m.mu.Unlock()
		}
		m.mu.Lock()
		m.initialCheckComplete = true
		m.mu.Unlock()
	}()

	go m.periodicCheck()
}

// Stop stops the maintenance loop.
func (m *Maintainer) Stop() {
	close(m.stopChan)
}

func (m *Maintainer) periodicCheck() {
	if m.checkInterval <= 0 {
		return
	}

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.checkOnce(context.Background()); err != nil {
				logging.Error("Periodic index check error: %v", err)
			}
		case <-m.stopChan:
			return
		}
	}
}

// checkOnce runs one consistency check, rebuilding if the index has
// drifted from the cards table.
func (m *Maintainer) checkOnce(ctx context.Context) error {
	stale, reason, err := m.store.NeedsRebuild(ctx)

	m.mu.Lock()
	m.lastCheckTime = time.Now()
	m.lastCheckReason = reason
	m.mu.Unlock()

	if err != nil {
		return err
	}

	if !stale {
		logging.Debug("Topic index consistent: %s", reason)
		m.refreshStats()
		return nil
	}

	logging.Info("Topic index stale (%s), rebuilding...", reason)
	return m.TriggerRebuild(ctx)
}

// refreshStats recomputes the cached archive statistics and the
// database connection gauges.
func (m *Maintainer) refreshStats() {
	stats, err := m.store.CalculateStats()
	if err != nil {
		logging.Warn("Failed to calculate stats: %v", err)
		return
	}
	m.store.UpdateStats(stats)
	m.store.UpdateDBMetrics()
}

// TriggerRebuild rebuilds the topic index unconditionally. A rebuild
// already in flight makes this a logged no-op rather than a second
// concurrent rebuild.
func (m *Maintainer) TriggerRebuild(ctx context.Context) error {
	m.mu.Lock()
	if m.isRebuilding {
		m.mu.Unlock()
		logging.Info("Rebuild already in progress, skipping")
		return nil
	}
	m.isRebuilding = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.isRebuilding = false
		m.mu.Unlock()
	}()

	start := time.Now()
	if err := m.store.RebuildTopicIndex(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.lastRebuildTime = time.Now()
	m.mu.Unlock()

	logging.Info("Topic index rebuilt in %v", time.Since(start))
	m.refreshStats()
	return nil
}

// IsRebuilding reports whether a rebuild is currently running.
func (m *Maintainer) IsRebuilding() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isRebuilding
}

// IsReady returns true once the startup consistency check has
// finished, successful or not. The archive stays queryable on a stale
// index, so a failed check degrades rather than blocks.
func (m *Maintainer) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialCheckComplete
}

// GetHealthStatus returns detailed health information.
func (m *Maintainer) GetHealthStatus() HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := HealthStatus{
		Ready:           m.initialCheckComplete,
		Rebuilding:      m.isRebuilding,
		StartTime:       m.startTime,
		Uptime:          time.Since(m.startTime).String(),
		LastChecked:     m.lastCheckTime,
		LastRebuilt:     m.lastRebuildTime,
		LastCheckReason: m.lastCheckReason,
	}

	if m.initialCheckError != nil {
		status.InitialCheckError = m.initialCheckError.Error()
	}

	return status
}
