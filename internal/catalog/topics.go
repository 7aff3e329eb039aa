package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"charchive/internal/logging"
	"charchive/internal/metrics"
)

// Number of cards whose topic rows are rewritten per rebuild batch
// transaction. Keeps per-transaction lock hold time bounded on large
// archives.
const rebuildBatchSize = 500

// topicRow is one normalized index entry: the first display spelling
// seen and its lowercased key.
type topicRow struct {
	Display string
	Lower   string
}

// splitTopics splits a comma-joined topic field into raw tokens.
func splitTopics(topics string) []string {
	if strings.TrimSpace(topics) == "" {
		return nil
	}
	return strings.Split(topics, ",")
}

// normalizeTopics trims, drops empties, and de-duplicates by lowercased
// key. The first display spelling wins on duplicate normalization.
func normalizeTopics(raw []string) []topicRow {
	seen := make(map[string]bool, len(raw))
	out := make([]topicRow, 0, len(raw))
	for _, t := range raw {
		display := strings.TrimSpace(t)
		if display == "" {
			continue
		}
		lower := strings.ToLower(display)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, topicRow{Display: display, Lower: lower})
	}
	return out
}

// replaceTopicsTx replaces all index rows for a card inside the
// caller's transaction: delete everything, then insert the normalized
// set. Safe with an empty list, which leaves the card with zero rows.
func replaceTopicsTx(tx *sql.Tx, cardID int64, raw []string) error {
	if _, err := tx.Exec("DELETE FROM card_topics WHERE card_id = ?", cardID); err != nil {
		return fmt.Errorf("failed to clear topic rows: %w", err)
	}

	for _, row := range normalizeTopics(raw) {
		_, err := tx.Exec(
			"INSERT INTO card_topics (card_id, topic, topic_lower) VALUES (?, ?, ?)",
			cardID, row.Display, row.Lower,
		)
		if err != nil {
			return fmt.Errorf("failed to insert topic row: %w", err)
		}
	}
	return nil
}

// ReplaceTopics rewrites the index rows for one card in its own
// transaction. UpsertCard does this as part of the card write; this
// entry point exists for callers fixing up a single card.
func (s *Store) ReplaceTopics(ctx context.Context, cardID int64, raw []string) error {
	done := observeQuery("replace_topics")

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	txStart := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		done(err)
		return err
	}

	err = replaceTopicsTx(tx, cardID, raw)
	err = endTx(tx, txStart, err)
	done(err)
	return err
}

// NeedsRebuild compares the number of cards carrying a non-empty topic
// field against the number of distinct cards present in the index. The
// returned reason is one of "no tagged cards", "no indexed topics",
// "count mismatch: indexed=X tagged=Y", or "counts match".
//
// This is a pure count comparison: an index whose counts coincide with
// the source while holding different topic sets passes as consistent.
func (s *Store) NeedsRebuild(ctx context.Context) (bool, string, error) {
	done := observeQuery("needs_rebuild")

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var tagged int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cards WHERE topics != ''",
	).Scan(&tagged); err != nil {
		done(err)
		return false, "", fmt.Errorf("failed to count tagged cards: %w", err)
	}

	if tagged == 0 {
		done(nil)
		return false, "no tagged cards", nil
	}

	var indexed int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT card_id) FROM card_topics",
	).Scan(&indexed); err != nil {
		done(err)
		return false, "", fmt.Errorf("failed to count indexed cards: %w", err)
	}

	done(nil)
	switch {
	case indexed == 0:
		return true, "no indexed topics", nil
	case indexed != tagged:
		return true, fmt.Sprintf("count mismatch: indexed=%d tagged=%d", indexed, tagged), nil
	default:
		return false, "counts match", nil
	}
}

// RebuildTopicIndex rebuilds the whole index from the cards table using
// a staging table: tagged cards stream through in fixed-size batches,
// each batch committed in its own transaction against the staging
// table, and a single final transaction swaps the staged rows into the
// live index. The staging table is dropped whether or not the rebuild
// succeeds, and a failure in any batch aborts the rebuild with the live
// index untouched, so stale-but-consistent data stays queryable.
func (s *Store) RebuildTopicIndex(ctx context.Context) (err error) {
	done := observeQuery("rebuild_topic_index")
	defer func() { done(err) }()

	start := time.Now()
	metrics.RebuildRunning.Set(1)
	defer func() {
		metrics.RebuildRunning.Set(0)
		metrics.RebuildDuration.Observe(time.Since(start).Seconds())
		metrics.RebuildLastRunTimestamp.SetToCurrentTime()
		if err != nil {
			metrics.RebuildRunsTotal.WithLabelValues("error").Inc()
		} else {
			metrics.RebuildRunsTotal.WithLabelValues("success").Inc()
		}
	}()

	logging.Info("Rebuilding topic index...")

	const staging = "card_topics_rebuild"

	if _, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		DROP TABLE IF EXISTS %[1]s;
		CREATE TABLE %[1]s (
			card_id INTEGER NOT NULL,
			topic TEXT NOT NULL,
			topic_lower TEXT NOT NULL,
			PRIMARY KEY (card_id, topic_lower)
		)`, staging)); err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}

	// The staging table must not outlive this call, success or not.
	defer func() {
		dropCtx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()
		if _, dropErr := s.db.ExecContext(dropCtx, "DROP TABLE IF EXISTS "+staging); dropErr != nil {
			logging.Error("failed to drop staging table: %v", dropErr)
		}
	}()

	var cards, rows int
	lastID := int64(0)
	for {
		batch, batchErr := s.fetchTaggedBatch(ctx, lastID)
		if batchErr != nil {
			err = fmt.Errorf("failed to read tagged cards after id %d: %w", lastID, batchErr)
			return err
		}
		if len(batch) == 0 {
			break
		}

		n, batchErr := s.stageBatch(ctx, staging, batch)
		if batchErr != nil {
			err = fmt.Errorf("rebuild batch after id %d failed: %w", lastID, batchErr)
			return err
		}

		metrics.RebuildBatchesTotal.Inc()
		cards += len(batch)
		rows += n
		lastID = batch[len(batch)-1].id
	}

	// Final swap: the only transaction that touches the live table.
	s.mu.Lock()
	defer s.mu.Unlock()

	txStart := time.Now()
	tx, txErr := s.db.BeginTx(ctx, nil)
	if txErr != nil {
		err = txErr
		return err
	}

	_, err = tx.Exec("DELETE FROM card_topics")
	if err == nil {
		_, err = tx.Exec(fmt.Sprintf(
			"INSERT INTO card_topics (card_id, topic, topic_lower) SELECT card_id, topic, topic_lower FROM %s", staging))
	}
	if err = endTx(tx, txStart, err); err != nil {
		err = fmt.Errorf("failed to swap staged topic index: %w", err)
		return err
	}

	logging.Info("Topic index rebuilt: %d cards, %d topic rows in %v", cards, rows, time.Since(start))
	return nil
}

// taggedCard is one (id, topics) pair streamed during a rebuild.
type taggedCard struct {
	id     int64
	topics string
}

// fetchTaggedBatch reads the next batch of tagged cards after lastID in
// id order. Keyset pagination keeps batches stable under concurrent
// upserts.
func (s *Store) fetchTaggedBatch(ctx context.Context, lastID int64) ([]taggedCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topics FROM cards
		WHERE topics != '' AND id > ?
		ORDER BY id
		LIMIT ?
	`, lastID, rebuildBatchSize)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var batch []taggedCard
	for rows.Next() {
		var tc taggedCard
		if err := rows.Scan(&tc.id, &tc.topics); err != nil {
			return nil, err
		}
		batch = append(batch, tc)
	}
	return batch, rows.Err()
}

// stageBatch rewrites one batch of cards into the staging table inside
// a single transaction, returning the number of rows inserted.
func (s *Store) stageBatch(ctx context.Context, staging string, batch []taggedCard) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	txStart := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, tc := range batch {
		if _, err = tx.Exec("DELETE FROM "+staging+" WHERE card_id = ?", tc.id); err != nil {
			break
		}
		for _, row := range normalizeTopics(splitTopics(tc.topics)) {
			if _, err = tx.Exec(
				"INSERT INTO "+staging+" (card_id, topic, topic_lower) VALUES (?, ?, ?)",
				tc.id, row.Display, row.Lower,
			); err != nil {
				break
			}
			inserted++
		}
		if err != nil {
			break
		}
	}

	if err = endTx(tx, txStart, err); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListTopics returns topic usage counts over the normalized index,
// most-used first.
func (s *Store) ListTopics(ctx context.Context, limit int) ([]TopicCount, error) {
	done := observeQuery("list_topics")

	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT topic, COUNT(*) as card_count
		FROM card_topics
		GROUP BY topic_lower
		ORDER BY card_count DESC, topic_lower
		LIMIT ?
	`, limit)
	if err != nil {
		done(err)
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var topics []TopicCount
	for rows.Next() {
		var tc TopicCount
		if err := rows.Scan(&tc.Topic, &tc.Count); err != nil {
			done(err)
			return nil, err
		}
		topics = append(topics, tc)
	}

	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return topics, nil
}
