package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"charchive/internal/logging"
	"charchive/internal/metrics"
	"charchive/internal/tagalias"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Store manages all database operations for the card archive.
type Store struct {
	db       *sql.DB
	dbPath   string
	expander *tagalias.Expander
	mu       sync.RWMutex
	stats    metrics.Stats
	statsMu  sync.RWMutex
}

// New opens (or creates) the archive database at dbPath. The expander
// is used to resolve user-supplied tags to their alias variant sets in
// search queries; pass an expander over an empty table to get plain
// exact-string tag matching.
//
// dbPath must be the full path to the database FILE and the parent
// directory must already exist and be writable.
func New(ctx context.Context, dbPath string, expander *tagalias.Expander) (*Store, error) {
	logging.Info("Database path: %s", dbPath)

	if expander == nil {
		expander = tagalias.NewExpander(nil)
	}

	// WAL mode plus the usual pragma tuning. busy_timeout prevents
	// "database is locked" errors under reader/writer contention, and
	// foreign_keys enables the cards -> card_topics cascade.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Allow multiple readers; SQLite serializes the single writer.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:       db,
		dbPath:   dbPath,
		expander: expander,
	}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	done := observeQuery("initialize_schema")

	schema := `
	-- Card records. topics is the denormalized comma-joined tag field;
	-- card_topics below is its normalized index.
	CREATE TABLE IF NOT EXISTS cards (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		tagline TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		topics TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		source_url TEXT NOT NULL DEFAULT '',
		token_count INTEGER NOT NULL DEFAULT 0,
		chat_count INTEGER NOT NULL DEFAULT 0,
		message_count INTEGER NOT NULL DEFAULT 0,
		favorite_count INTEGER NOT NULL DEFAULT 0,
		star_count INTEGER NOT NULL DEFAULT 0,
		rating REAL NOT NULL DEFAULT 0,
		rating_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0,
		first_seen_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		favorited INTEGER NOT NULL DEFAULT 0,
		nsfw INTEGER NOT NULL DEFAULT 0,
		has_gallery INTEGER NOT NULL DEFAULT 0,
		has_lorebook INTEGER NOT NULL DEFAULT 0,
		has_alt_greetings INTEGER NOT NULL DEFAULT 0,
		has_example_dialogs INTEGER NOT NULL DEFAULT 0,
		has_scenario INTEGER NOT NULL DEFAULT 0,
		has_system_prompt INTEGER NOT NULL DEFAULT 0,
		has_creator_notes INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_cards_updated ON cards(updated_at);
	CREATE INDEX IF NOT EXISTS idx_cards_created ON cards(created_at);
	CREATE INDEX IF NOT EXISTS idx_cards_first_seen ON cards(first_seen_at);
	CREATE INDEX IF NOT EXISTS idx_cards_author ON cards(author COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_cards_language ON cards(language);
	CREATE INDEX IF NOT EXISTS idx_cards_source ON cards(source);
	CREATE INDEX IF NOT EXISTS idx_cards_token_count ON cards(token_count);

	-- Normalized topic index. One row per unique lowercased topic per
	-- card; topic keeps the first display spelling seen.
	CREATE TABLE IF NOT EXISTS card_topics (
		card_id INTEGER NOT NULL,
		topic TEXT NOT NULL,
		topic_lower TEXT NOT NULL,
		PRIMARY KEY (card_id, topic_lower),
		FOREIGN KEY (card_id) REFERENCES cards(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_card_topics_lower ON card_topics(topic_lower);
	CREATE INDEX IF NOT EXISTS idx_card_topics_card ON card_topics(card_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		done(err)
		return err
	}

	err = s.runMigrations(ctx)
	done(err)
	return err
}

// runMigrations applies database schema migrations
func (s *Store) runMigrations(ctx context.Context) error {
	// Migration 1: Add source_url column if it doesn't exist (older
	// archives stored only the bare source platform tag).
	var columnExists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) > 0
		FROM pragma_table_info('cards')
		WHERE name='source_url'
	`).Scan(&columnExists)

	if err != nil {
		return fmt.Errorf("failed to check for source_url column: %w", err)
	}

	if !columnExists {
		logging.Info("Migrating database: adding source_url column to cards table")

		_, err = s.db.ExecContext(ctx, `
			ALTER TABLE cards ADD COLUMN source_url TEXT NOT NULL DEFAULT ''
		`)
		if err != nil {
			return fmt.Errorf("failed to add source_url column: %w", err)
		}

		logging.Info("Migration complete: source_url column added")
	}

	// Migration 2: Add first_seen_at column if it doesn't exist.
	var firstSeenExists bool
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) > 0
		FROM pragma_table_info('cards')
		WHERE name='first_seen_at'
	`).Scan(&firstSeenExists)

	if err != nil {
		return fmt.Errorf("failed to check for first_seen_at column: %w", err)
	}

	if !firstSeenExists {
		logging.Info("Migrating database: adding first_seen_at column to cards table")

		// SQLite doesn't allow expressions in ALTER TABLE ADD COLUMN DEFAULT
		_, err = s.db.ExecContext(ctx, `
			ALTER TABLE cards ADD COLUMN first_seen_at INTEGER NOT NULL DEFAULT 0
		`)
		if err != nil {
			return fmt.Errorf("failed to add first_seen_at column: %w", err)
		}

		// Backfill from created_at for existing records
		_, err = s.db.ExecContext(ctx, `
			UPDATE cards SET first_seen_at = created_at WHERE first_seen_at = 0
		`)
		if err != nil {
			return fmt.Errorf("failed to initialize first_seen_at values: %w", err)
		}

		logging.Info("Migration complete: first_seen_at column added and initialized")
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Expander returns the tag expander this store queries with.
func (s *Store) Expander() *tagalias.Expander {
	return s.expander
}

// Vacuum optimizes the database.
func (s *Store) Vacuum() error {
	done := observeQuery("vacuum")

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, "VACUUM")
	done(err)
	return err
}

// UpdateDBMetrics updates database connection metrics
func (s *Store) UpdateDBMetrics() {
	stats := s.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// endTx commits the transaction when err is nil and rolls it back
// otherwise, recording the transaction duration either way. The
// returned error is the original err joined with any rollback failure,
// or the commit error.
func endTx(tx *sql.Tx, start time.Time, err error) error {
	duration := time.Since(start).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// observeQuery starts a query timer; call the returned func with the
// final error when the operation completes.
func observeQuery(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		recordQuery(operation, start, err)
	}
}
