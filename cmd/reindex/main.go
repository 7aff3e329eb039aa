package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"charchive/internal/catalog"
	"charchive/internal/tagalias"
)

const (
	// Default timeout for a full index rebuild
	defaultTimeout = 10 * time.Minute
	// Default database directory path
	defaultDatabaseDir = "/database"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	databaseDir := os.Getenv("DATABASE_DIR")
	if databaseDir == "" {
		databaseDir = defaultDatabaseDir
	}
	dbPath := filepath.Join(databaseDir, "archive.db")

	store, err := catalog.New(ctx, dbPath, tagalias.NewExpander(nil))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATABASE_DIR is set correctly (current: %s)\n", databaseDir)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	switch command {
	case "check":
		if !checkIndex(ctx, store) {
			os.Exit(1)
		}
	case "rebuild":
		if !rebuildIndex(ctx, store) {
			os.Exit(1)
		}
	case "vacuum":
		if !vacuum(store) {
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "Unknown command")
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Card Archive Index Management")
	fmt.Println("")
	fmt.Println("Usage: reindex <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  check    - Report whether the topic index is consistent")
	fmt.Println("  rebuild  - Rebuild the topic index from the cards table")
	fmt.Println("  vacuum   - Compact the database file")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Printf("  DATABASE_DIR - Path to database directory (default: %s)\n", defaultDatabaseDir)
}

func checkIndex(ctx context.Context, store *catalog.Store) bool {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stale, reason, err := store.NeedsRebuild(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	if stale {
		fmt.Printf("Index is STALE: %s\n", reason)
		fmt.Println("Run 'reindex rebuild' to fix.")
		return false
	}

	fmt.Printf("Index is consistent: %s\n", reason)
	return true
}

func rebuildIndex(ctx context.Context, store *catalog.Store) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	fmt.Println("Rebuilding topic index...")
	start := time.Now()

	if err := store.RebuildTopicIndex(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: rebuild failed: %v\n", err)
		return false
	}

	fmt.Printf("Done in %v\n", time.Since(start))
	return true
}

func vacuum(store *catalog.Store) bool {
	fmt.Println("Vacuuming database...")
	start := time.Now()

	if err := store.Vacuum(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: vacuum failed: %v\n", err)
		return false
	}

	fmt.Printf("Done in %v\n", time.Since(start))
	return true
}
