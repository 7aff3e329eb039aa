package metrics

import (
	"sync/atomic"
	"testing"
	"time"
)

type countingProvider struct {
	calls atomic.Int64
}

func (p *countingProvider) GetStats() Stats {
	p.calls.Add(1)
	return Stats{TotalCards: 1}
}

func TestCollectorZeroIntervalCollectsOnce(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{}
	c := NewCollector(provider, 0)
	c.Start()

	// The loop must collect once and return without arming a ticker;
	// time.NewTicker panics on a non-positive interval.
	deadline := time.Now().Add(2 * time.Second)
	for provider.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := provider.calls.Load(); got != 1 {
		t.Fatalf("collect calls = %d, want 1", got)
	}

	time.Sleep(50 * time.Millisecond)
	if got := provider.calls.Load(); got != 1 {
		t.Errorf("collector kept polling after one-shot run: %d calls", got)
	}
}

func TestCollectorStops(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{}
	c := NewCollector(provider, 10*time.Millisecond)
	c.Start()

	deadline := time.Now().Add(2 * time.Second)
	for provider.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if provider.calls.Load() < 2 {
		t.Fatal("collector never ticked")
	}

	c.Stop()
	time.Sleep(30 * time.Millisecond)
	after := provider.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if got := provider.calls.Load(); got != after {
		t.Errorf("collector still polling after Stop: %d -> %d calls", after, got)
	}
}

func TestCollectorNilProvider(t *testing.T) {
	t.Parallel()

	c := NewCollector(nil, 0)
	c.Start()
	time.Sleep(20 * time.Millisecond)
}
