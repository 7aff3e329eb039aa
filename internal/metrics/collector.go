package metrics

import "time"

// Stats holds the archive statistics exported as gauges.
type Stats struct {
	TotalCards    int
	TaggedCards   int
	IndexedTopics int
	Favorites     int
	Languages     int
}

// StatsProvider supplies current archive statistics.
type StatsProvider interface {
	GetStats() Stats
}

// Collector periodically refreshes the archive gauges from a
// StatsProvider.
type Collector struct {
	provider StatsProvider
	interval time.Duration
	stopChan chan struct{}
}

// NewCollector creates a collector polling the provider at the given
// interval.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		provider: provider,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the collection loop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the collection loop.
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	// A zero or negative interval means one collection and no loop.
	if c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.provider == nil {
		return
	}

	stats := c.provider.GetStats()

	CardsTotal.Set(float64(stats.TotalCards))
	TaggedCardsTotal.Set(float64(stats.TaggedCards))
	IndexedTopicsTotal.Set(float64(stats.IndexedTopics))
	FavoriteCardsTotal.Set(float64(stats.Favorites))
	LanguagesTotal.Set(float64(stats.Languages))
}
