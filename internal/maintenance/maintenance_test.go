package maintenance

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"charchive/internal/catalog"
	"charchive/internal/tagalias"
)

func setupTestMaintainer(t *testing.T, interval time.Duration) (*Maintainer, *catalog.Store) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := catalog.New(context.Background(), dbPath, tagalias.NewExpander(nil))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	return New(store, interval), store
}

func seedCards(t *testing.T, store *catalog.Store, n int) {
	t.Helper()

	now := time.Now()
	for i := 1; i <= n; i++ {
		card := &catalog.Card{
			ID:        int64(i),
			Name:      fmt.Sprintf("Card %d", i),
			Topics:    fmt.Sprintf("tag%d, shared", i),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := store.UpsertCard(context.Background(), card); err != nil {
			t.Fatalf("seed card %d: %v", i, err)
		}
	}
}

func waitReady(t *testing.T, m *Maintainer) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if m.IsReady() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("maintainer never became ready")
}

func TestStartupCheckRepairsIndex(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	m, store := setupTestMaintainer(t, 0)
	seedCards(t, store, 5)

	// Break the index behind the store's back.
	if err := store.ReplaceTopics(context.Background(), 3, nil); err != nil {
		t.Fatal(err)
	}

	stale, _, err := store.NeedsRebuild(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !stale {
		t.Fatal("index should be stale before start")
	}

	m.Start()
	defer m.Stop()
	waitReady(t, m)

	// The startup check detects the drift and rebuilds.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		stale, _, err = store.NeedsRebuild(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !stale {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if stale {
		t.Error("index still stale after startup check")
	}

	status := m.GetHealthStatus()
	if !status.Ready {
		t.Error("status should report ready")
	}
	if status.LastChecked.IsZero() {
		t.Error("LastChecked not recorded")
	}
}

func TestTriggerRebuild(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	m, store := setupTestMaintainer(t, 0)
	seedCards(t, store, 3)

	if err := m.TriggerRebuild(context.Background()); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	status := m.GetHealthStatus()
	if status.LastRebuilt.IsZero() {
		t.Error("LastRebuilt not recorded")
	}
	if m.IsRebuilding() {
		t.Error("rebuild flag stuck")
	}

	// The rebuild refreshes the cached stats.
	stats := store.GetStats()
	if stats.TotalCards != 3 {
		t.Errorf("cached TotalCards = %d, want 3", stats.TotalCards)
	}
}

func TestIsReadyAfterFailedCheck(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	m, store := setupTestMaintainer(t, 0)
	seedCards(t, store, 2)

	m.Start()
	defer m.Stop()
	waitReady(t, m)

	// Ready means the startup check ran, not that it found a clean
	// index; the archive stays queryable either way.
	if !m.IsReady() {
		t.Error("not ready after startup check")
	}
}
