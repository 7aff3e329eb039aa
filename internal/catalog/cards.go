package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"charchive/internal/logging"
	"charchive/internal/metrics"
)

// UpsertCard inserts or fully updates a card and rewrites its topic
// index rows in the same transaction, so the index invariant holds the
// moment the write becomes visible. Favorited state and the first-seen
// timestamp are preserved across updates; the language tag and
// canonical source URL are derived when the caller leaves them empty.
// Calling it repeatedly with identical input is idempotent.
func (s *Store) UpsertCard(ctx context.Context, card *Card) error {
	done := observeQuery("upsert_card")

	if card == nil || card.ID == 0 {
		err := errors.New("card must have a non-zero id")
		done(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	txStart := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		done(err)
		return err
	}

	err = s.upsertCardTx(tx, card)
	err = endTx(tx, txStart, err)
	done(err)
	return err
}

func (s *Store) upsertCardTx(tx *sql.Tx, card *Card) error {
	// Existing rows keep their favorited flag and first-seen time; a
	// repeated scrape must not reset what the user or history set.
	var favorited int
	var firstSeen int64
	err := tx.QueryRow(
		"SELECT favorited, first_seen_at FROM cards WHERE id = ?", card.ID,
	).Scan(&favorited, &firstSeen)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		favorited = boolToInt(card.Favorited)
		if card.FirstSeenAt.IsZero() {
			firstSeen = time.Now().Unix()
		} else {
			firstSeen = card.FirstSeenAt.Unix()
		}
	case err != nil:
		return fmt.Errorf("failed to resolve existing card: %w", err)
	}

	language := card.Language
	if language == "" {
		language = detectLanguage(card.Name + " " + card.Tagline + " " + card.Description)
	}

	sourceURL := card.SourceURL
	if sourceURL == "" {
		sourceURL = canonicalSourceURL(card.Source, card.ID, card.Author, card.Name)
	}

	_, err = tx.Exec(`
		INSERT INTO cards (
			id, name, tagline, description, author, topics,
			language, source, source_url, token_count,
			chat_count, message_count, favorite_count, star_count,
			rating, rating_count, created_at, updated_at, first_seen_at, favorited,
			nsfw, has_gallery, has_lorebook, has_alt_greetings,
			has_example_dialogs, has_scenario, has_system_prompt, has_creator_notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			tagline = excluded.tagline,
			description = excluded.description,
			author = excluded.author,
			topics = excluded.topics,
			language = excluded.language,
			source = excluded.source,
			source_url = excluded.source_url,
			token_count = excluded.token_count,
			chat_count = excluded.chat_count,
			message_count = excluded.message_count,
			favorite_count = excluded.favorite_count,
			star_count = excluded.star_count,
			rating = excluded.rating,
			rating_count = excluded.rating_count,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			nsfw = excluded.nsfw,
			has_gallery = excluded.has_gallery,
			has_lorebook = excluded.has_lorebook,
			has_alt_greetings = excluded.has_alt_greetings,
			has_example_dialogs = excluded.has_example_dialogs,
			has_scenario = excluded.has_scenario,
			has_system_prompt = excluded.has_system_prompt,
			has_creator_notes = excluded.has_creator_notes
	`,
		card.ID, card.Name, card.Tagline, card.Description, card.Author, card.Topics,
		language, card.Source, sourceURL, card.TokenCount,
		card.ChatCount, card.MessageCount, card.FavoriteCount, card.StarCount,
		card.Rating, card.RatingCount,
		card.CreatedAt.Unix(), card.UpdatedAt.Unix(), firstSeen, favorited,
		boolToInt(card.NSFW), boolToInt(card.HasGallery), boolToInt(card.HasLorebook),
		boolToInt(card.HasAltGreetings), boolToInt(card.HasExampleDialogs),
		boolToInt(card.HasScenario), boolToInt(card.HasSystemPrompt), boolToInt(card.HasCreatorNotes),
	)
	if err != nil {
		return fmt.Errorf("failed to write card: %w", err)
	}

	return replaceTopicsTx(tx, card.ID, splitTopics(card.Topics))
}

// SearchCards runs a filtered, sorted, paginated search. Short-circuit
// conditions (explicit empty allow-lists) return an empty page without
// touching the store.
func (s *Store) SearchCards(ctx context.Context, opts SearchOptions) (*CardPage, error) {
	done := observeQuery("search_cards")
	searchStart := time.Now()

	q := NewBuilder(s.expander).
		FullText(opts.Query).
		TitleText(opts.TitleQuery).
		AuthorText(opts.AuthorQuery).
		IncludeTags(opts.Tags, opts.TagMode).
		ExcludeTags(opts.ExcludeTags).
		MinTokens(opts.MinTokens).
		Language(opts.Language).
		Source(opts.Source).
		Favorite(opts.Favorite).
		Flag("nsfw", opts.NSFWOnly).
		Flag("has_gallery", opts.GalleryOnly).
		Flag("has_lorebook", opts.LorebookOnly).
		Flag("has_alt_greetings", opts.AltGreetingsOnly).
		Flag("has_example_dialogs", opts.ExampleDialogsOnly).
		Flag("has_scenario", opts.ScenarioOnly).
		Flag("has_system_prompt", opts.SystemPromptOnly).
		Flag("has_creator_notes", opts.CreatorNotesOnly).
		AllowedIDs(opts.AllowedIDs).
		Creators(opts.Creators).
		Sort(opts.Sort).
		Paginate(opts.Page, opts.PageSize).
		Build()

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	if q.Empty {
		done(nil)
		metrics.SearchesTotal.WithLabelValues("success").Inc()
		return &CardPage{
			Cards:      []Card{},
			TotalItems: 0,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: 0,
		}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var totalItems int
	if err := s.db.QueryRowContext(ctx, q.CountSQL, q.CountArgs...).Scan(&totalItems); err != nil {
		done(err)
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("count query failed: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		done(err)
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("select query failed: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	cards := []Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			done(err)
			metrics.SearchesTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		done(err)
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("rows error: %w", err)
	}

	totalPages := int(math.Ceil(float64(totalItems) / float64(pageSize)))

	done(nil)
	metrics.SearchesTotal.WithLabelValues("success").Inc()
	metrics.SearchDuration.Observe(time.Since(searchStart).Seconds())

	return &CardPage{
		Cards:      cards,
		TotalItems: totalItems,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetCard fetches a single card by id.
func (s *Store) GetCard(ctx context.Context, id int64) (*Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM cards c WHERE c.id = ?", id)

	card, err := scanCard(row)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// GetCardsByIDs fetches the cards named by ids and returns them in the
// exact order of the input list, de-duplicated, with non-numeric
// entries and unknown ids silently dropped.
func (s *Store) GetCardsByIDs(ctx context.Context, ids []string) ([]Card, error) {
	done := observeQuery("get_cards_by_ids")

	ordered, values := parseIDList(ids)
	if len(values) == 0 {
		done(nil)
		return []Card{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM cards c WHERE c.id IN ("+placeholders+")",
		values...)
	if err != nil {
		done(err)
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	byID := make(map[int64]Card, len(ordered))
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			done(err)
			return nil, err
		}
		byID[card.ID] = card
	}
	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	out := make([]Card, 0, len(ordered))
	for _, id := range ordered {
		if card, ok := byID[id]; ok {
			out = append(out, card)
		}
	}

	done(nil)
	return out, nil
}

// Languages returns the distinct card languages with counts, most
// common first.
func (s *Store) Languages(ctx context.Context) ([]LanguageCount, error) {
	done := observeQuery("languages")

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT language, COUNT(*) as card_count
		FROM cards
		WHERE language != ''
		GROUP BY language
		ORDER BY card_count DESC, language
	`)
	if err != nil {
		done(err)
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	var langs []LanguageCount
	for rows.Next() {
		var lc LanguageCount
		if err := rows.Scan(&lc.Language, &lc.Count); err != nil {
			done(err)
			return nil, err
		}
		langs = append(langs, lc)
	}

	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return langs, nil
}

// ToggleFavorite flips a card's favorited flag and returns the new
// state.
func (s *Store) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	done := observeQuery("toggle_favorite")

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx,
		"UPDATE cards SET favorited = 1 - favorited WHERE id = ?", id)
	if err != nil {
		done(err)
		return false, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		err = fmt.Errorf("card not found: %d", id)
		done(err)
		return false, err
	}

	var favorited int
	err = s.db.QueryRowContext(ctx,
		"SELECT favorited FROM cards WHERE id = ?", id).Scan(&favorited)
	done(err)
	return favorited == 1, err
}

// DeleteCard removes a card and its topic index rows in one
// transaction.
func (s *Store) DeleteCard(ctx context.Context, id int64) error {
	done := observeQuery("delete_card")

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

	// Explicit removal rather than relying on the FK cascade, so the
	// delete behaves the same on archives created before foreign_keys
	// was in the DSN.
	_, err = tx.Exec("DELETE FROM card_topics WHERE card_id = ?", id)
	if err == nil {
		_, err = tx.Exec("DELETE FROM cards WHERE id = ?", id)
	}
	err = endTx(tx, txStart, err)
	done(err)
	return err
}

// CalculateStats computes current archive statistics.
func (s *Store) CalculateStats() (metrics.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats metrics.Stats

	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM cards", &stats.TotalCards},
		{"SELECT COUNT(*) FROM cards WHERE topics != ''", &stats.TaggedCards},
		{"SELECT COUNT(*) FROM card_topics", &stats.IndexedTopics},
		{"SELECT COUNT(*) FROM cards WHERE favorited = 1", &stats.Favorites},
		{"SELECT COUNT(DISTINCT language) FROM cards WHERE language != ''", &stats.Languages},
	}

	for _, q := range queries {
		if err := s.db.QueryRow(q.query).Scan(q.dest); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// UpdateStats updates the cached statistics.
func (s *Store) UpdateStats(stats metrics.Stats) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats = stats
}

// GetStats returns the cached archive statistics.
func (s *Store) GetStats() metrics.Stats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (Card, error) {
	var card Card
	var createdAt, updatedAt, firstSeenAt int64
	var favorited int
	var nsfw, gallery, lorebook, altGreetings, exampleDialogs, scenario, systemPrompt, creatorNotes int

	err := row.Scan(
		&card.ID, &card.Name, &card.Tagline, &card.Description, &card.Author, &card.Topics,
		&card.Language, &card.Source, &card.SourceURL, &card.TokenCount,
		&card.ChatCount, &card.MessageCount, &card.FavoriteCount, &card.StarCount,
		&card.Rating, &card.RatingCount,
		&createdAt, &updatedAt, &firstSeenAt, &favorited,
		&nsfw, &gallery, &lorebook, &altGreetings,
		&exampleDialogs, &scenario, &systemPrompt, &creatorNotes,
	)
	if err != nil {
		return card, err
	}

	card.CreatedAt = time.Unix(createdAt, 0)
	card.UpdatedAt = time.Unix(updatedAt, 0)
	card.FirstSeenAt = time.Unix(firstSeenAt, 0)
	card.Favorited = favorited == 1
	card.NSFW = nsfw == 1
	card.HasGallery = gallery == 1
	card.HasLorebook = lorebook == 1
	card.HasAltGreetings = altGreetings == 1
	card.HasExampleDialogs = exampleDialogs == 1
	card.HasScenario = scenario == 1
	card.HasSystemPrompt = systemPrompt == 1
	card.HasCreatorNotes = creatorNotes == 1

	for _, row := range normalizeTopics(splitTopics(card.Topics)) {
		card.TagList = append(card.TagList, row.Display)
	}

	return card, nil
}

// parseIDList parses raw id strings, dropping non-numeric entries and
// duplicates while preserving first-seen order.
func parseIDList(ids []string) ([]int64, []any) {
	ordered := make([]int64, 0, len(ids))
	values := make([]any, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, raw := range ids {
		// Strict parse, matching the id allow-list filter: "12abc" is
		// dropped, not truncated to 12.
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ordered = append(ordered, id)
		values = append(values, id)
	}
	return ordered, values
}

// detectLanguage derives a rough language tag from free text by
// dominant script. Cards from the supported platforms overwhelmingly
// carry either Latin-script or single-script CJK/Cyrillic text, so a
// script census is enough here.
func detectLanguage(text string) string {
	var han, kana, hangul, cyrillic, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			kana++
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.IsLetter(r):
			latin++
		}
	}

	switch {
	case kana > 0 && kana+han >= latin:
		return "ja"
	case hangul > latin:
		return "ko"
	case han > latin:
		return "zh"
	case cyrillic > latin:
		return "ru"
	default:
		return "en"
	}
}

// canonicalSourceURL formats a card's public URL from its source
// platform. Unknown platforms get no URL.
func canonicalSourceURL(source string, id int64, author, name string) string {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "chub":
		if author != "" && name != "" {
			return fmt.Sprintf("https://chub.ai/characters/%s/%s",
				url.PathEscape(strings.ToLower(author)), url.PathEscape(slugify(name)))
		}
		return ""
	case "janitor":
		return fmt.Sprintf("https://janitorai.com/characters/%d", id)
	case "risu":
		return fmt.Sprintf("https://realm.risuai.net/character/%d", id)
	default:
		return ""
	}
}

// slugify lowercases and dash-joins a display name for URL paths.
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
