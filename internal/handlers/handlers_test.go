package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"charchive/internal/catalog"
	"charchive/internal/maintenance"
	"charchive/internal/tagalias"
)

func setupTestHandlers(t *testing.T) (*Handlers, *catalog.Store) {
	t.Helper()

	expander := tagalias.NewExpander(tagalias.NewTable(map[string][]string{
		"robot": {"android", "cyborg"},
	}))

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := catalog.New(context.Background(), dbPath, expander)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	maintainer := maintenance.New(store, 0)
	return New(store, maintainer), store
}

func seedCard(t *testing.T, store *catalog.Store, id int64, topics string) {
	t.Helper()

	now := time.Now()
	card := &catalog.Card{
		ID:        id,
		Name:      fmt.Sprintf("Card %d", id),
		Author:    "tester",
		Topics:    topics,
		Language:  "en",
		Source:    "chub",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.UpsertCard(context.Background(), card); err != nil {
		t.Fatalf("seed card %d: %v", id, err)
	}
}
