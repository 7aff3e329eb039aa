package catalog

import (
	"strconv"
	"strings"

	"charchive/internal/metrics"
	"charchive/internal/tagalias"
)

// Computed ranking expressions. overallRatingExpr is the weighted
// star/favorite composite; engagementExpr folds usage counters,
// a ratings-above-3.0 term, and a stepped recency bonus. ageDaysExpr
// floors the card's age at one day so the per-day variants never
// divide by a near-zero age for same-day cards.
const (
	overallRatingExpr = "(c.star_count * 4.0 + c.favorite_count * 6.0)"

	engagementExpr = "(c.chat_count * 40.0 + c.message_count * 1.0 + c.favorite_count * 10.0 + c.star_count * 5.0" +
		" + CASE WHEN c.rating > 3.0 THEN (c.rating - 3.0) * c.rating_count * 2.0 ELSE 0.0 END" +
		" + CASE" +
		" WHEN strftime('%s', 'now') - c.updated_at <= 259200 THEN 100.0" +
		" WHEN strftime('%s', 'now') - c.updated_at <= 604800 THEN 50.0" +
		" WHEN strftime('%s', 'now') - c.updated_at <= 1209600 THEN 25.0" +
		" ELSE 0.0 END)"

	ageDaysExpr = "max(1.0, (strftime('%s', 'now') - c.created_at) / 86400.0)"
)

// sortClauses maps every known sort key to its ORDER BY body. The id
// tiebreaker is appended by Build so that pagination is stable under
// equal sort values.
var sortClauses = map[SortKey]string{
	SortRecent:          "c.updated_at DESC",
	SortOldest:          "c.updated_at ASC",
	SortCreated:         "c.created_at DESC",
	SortFirstSeen:       "c.first_seen_at DESC",
	SortName:            "c.name COLLATE NOCASE ASC",
	SortNameDesc:        "c.name COLLATE NOCASE DESC",
	SortTokens:          "c.token_count DESC",
	SortStars:           "c.star_count DESC",
	SortFavorites:       "c.favorite_count DESC",
	SortMessages:        "c.message_count DESC",
	SortChats:           "c.chat_count DESC",
	SortRating:          "c.rating DESC, c.rating_count DESC",
	SortOverallRating:   overallRatingExpr + " DESC",
	SortTrending:        overallRatingExpr + " / " + ageDaysExpr + " DESC",
	SortEngagement:      engagementExpr + " DESC",
	SortFreshEngagement: engagementExpr + " / " + ageDaysExpr + " DESC",
}

// predicate is one node of the WHERE clause. Predicates render
// themselves into SQL and append their parameters in the same pass, so
// clause text and parameter order can never drift apart.
type predicate interface {
	compile(sb *strings.Builder, args *[]any)
}

// textMatch is a substring match OR'd over a set of text columns.
type textMatch struct {
	columns []string
	needle  string
}

func (p textMatch) compile(sb *strings.Builder, args *[]any) {
	pattern := "%" + escapeLike(p.needle) + "%"
	sb.WriteString("(")
	for i, col := range p.columns {
		if i > 0 {
			sb.WriteString(" OR ")
		}
		sb.WriteString(col)
		sb.WriteString(" LIKE ? ESCAPE '\\'")
		*args = append(*args, pattern)
	}
	sb.WriteString(")")
}

// tagExists tests membership of any of the variant spellings in the
// normalized topic index; negate turns it into an exclusion. Rendered
// as a semi-join (c.id IN (SELECT ...)) rather than a correlated
// EXISTS: SQLite's subquery flattener can turn the EXISTS form into a
// plain join, returning one row per matching variant and inflating
// COUNT(*). The IN form cannot multiply rows.
type tagExists struct {
	variants []string // already lowercased, de-duplicated
	negate   bool
}

func (p tagExists) compile(sb *strings.Builder, args *[]any) {
	sb.WriteString("c.id ")
	if p.negate {
		sb.WriteString("NOT ")
	}
	sb.WriteString("IN (SELECT ct.card_id FROM card_topics ct WHERE ct.topic_lower IN (")
	for i, v := range p.variants {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("?")
		*args = append(*args, v)
	}
	sb.WriteString("))")
}

// numericCompare is a single column comparison.
type numericCompare struct {
	column string
	op     string
	value  any
}

func (p numericCompare) compile(sb *strings.Builder, args *[]any) {
	sb.WriteString(p.column)
	sb.WriteString(" ")
	sb.WriteString(p.op)
	sb.WriteString(" ?")
	*args = append(*args, p.value)
}

// inList is a column IN (...) allow-list; noCase folds both sides to
// lower case.
type inList struct {
	column string
	values []any
	noCase bool
}

func (p inList) compile(sb *strings.Builder, args *[]any) {
	if p.noCase {
		sb.WriteString("LOWER(")
		sb.WriteString(p.column)
		sb.WriteString(")")
	} else {
		sb.WriteString(p.column)
	}
	sb.WriteString(" IN (")
	for i, v := range p.values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("?")
		*args = append(*args, v)
	}
	sb.WriteString(")")
}

// flagSet requires a boolean feature-flag column to be set.
type flagSet struct {
	column string
}

func (p flagSet) compile(sb *strings.Builder, _ *[]any) {
	sb.WriteString(p.column)
	sb.WriteString(" = 1")
}

// escapeLike escapes the LIKE wildcard characters in a user-supplied
// needle so they match literally under ESCAPE '\'.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// Query is the compiled output of a Builder: a paginated page query and
// a count query sharing identical WHERE text and parameter order. Empty
// marks a short-circuited query that must return zero rows without
// touching the store.
type Query struct {
	SQL       string
	Args      []any
	CountSQL  string
	CountArgs []any
	Empty     bool
}

// Builder assembles a card search from chainable filter calls. Every
// filter method is a no-op when given an empty value, so callers can
// apply all of them unconditionally. Builders are single-use.
type Builder struct {
	expander *tagalias.Expander
	preds    []predicate
	empty    bool
	sort     SortKey
	page     int
	pageSize int
}

// NewBuilder creates a Builder resolving tags through the given
// expander.
func NewBuilder(expander *tagalias.Expander) *Builder {
	if expander == nil {
		expander = tagalias.NewExpander(nil)
	}
	return &Builder{expander: expander}
}

// FullText adds a substring match across name, tagline, description,
// and author.
func (b *Builder) FullText(query string) *Builder {
	query = strings.TrimSpace(query)
	if query == "" {
		return b
	}
	b.preds = append(b.preds, textMatch{
		columns: []string{"c.name", "c.tagline", "c.description", "c.author"},
		needle:  query,
	})
	return b
}

// TitleText restricts the match to the card name.
func (b *Builder) TitleText(query string) *Builder {
	query = strings.TrimSpace(query)
	if query == "" {
		return b
	}
	b.preds = append(b.preds, textMatch{columns: []string{"c.name"}, needle: query})
	return b
}

// AuthorText restricts the match to the author field.
func (b *Builder) AuthorText(query string) *Builder {
	query = strings.TrimSpace(query)
	if query == "" {
		return b
	}
	b.preds = append(b.preds, textMatch{columns: []string{"c.author"}, needle: query})
	return b
}

// IncludeTags filters on the requested tags. In TagModeAny the variant
// sets of all tags flatten into one membership test; in TagModeAll each
// tag gets its own semi-join, so every requested tag must be satisfied
// by one of its own variants.
func (b *Builder) IncludeTags(tags []string, mode TagMode) *Builder {
	tags = cleanTags(tags)
	if len(tags) == 0 {
		return b
	}

	if mode == TagModeAll {
		for _, tag := range tags {
			b.preds = append(b.preds, tagExists{variants: b.expandLower(tag)})
		}
		return b
	}

	seen := make(map[string]bool)
	var variants []string
	for _, tag := range tags {
		for _, v := range b.expandLower(tag) {
			if !seen[v] {
				seen[v] = true
				variants = append(variants, v)
			}
		}
	}
	b.preds = append(b.preds, tagExists{variants: variants})
	return b
}

// ExcludeTags drops cards matching any variant of any excluded tag.
func (b *Builder) ExcludeTags(tags []string) *Builder {
	for _, tag := range cleanTags(tags) {
		b.preds = append(b.preds, tagExists{variants: b.expandLower(tag), negate: true})
	}
	return b
}

// expandLower expands one tag and lowercases the variant set for
// matching against topic_lower.
func (b *Builder) expandLower(tag string) []string {
	expanded, kind := b.expander.ExpandWithKind(tag)
	metrics.TagExpansionsTotal.WithLabelValues(string(kind)).Inc()

	seen := make(map[string]bool, len(expanded))
	out := make([]string, 0, len(expanded))
	for _, v := range expanded {
		lower := strings.ToLower(strings.TrimSpace(v))
		if lower == "" || seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, lower)
	}
	return out
}

// MinTokens requires at least n tokens.
func (b *Builder) MinTokens(n int) *Builder {
	if n <= 0 {
		return b
	}
	b.preds = append(b.preds, numericCompare{column: "c.token_count", op: ">=", value: n})
	return b
}

// Language filters on an exact language code.
func (b *Builder) Language(code string) *Builder {
	code = strings.TrimSpace(code)
	if code == "" {
		return b
	}
	b.preds = append(b.preds, numericCompare{column: "c.language", op: "=", value: code})
	return b
}

// Source filters on the source platform; "all" disables the filter.
func (b *Builder) Source(source string) *Builder {
	source = strings.TrimSpace(source)
	if source == "" || strings.EqualFold(source, "all") {
		return b
	}
	b.preds = append(b.preds, numericCompare{column: "c.source", op: "=", value: source})
	return b
}

// Favorite filters on favorite visibility state.
func (b *Builder) Favorite(f FavoriteFilter) *Builder {
	switch f {
	case FavoriteOnly:
		b.preds = append(b.preds, numericCompare{column: "c.favorited", op: "=", value: 1})
	case FavoriteNone:
		b.preds = append(b.preds, numericCompare{column: "c.favorited", op: "=", value: 0})
	}
	return b
}

// Flag AND's in a boolean feature-flag column when enabled is true.
func (b *Builder) Flag(column string, enabled bool) *Builder {
	if !enabled {
		return b
	}
	b.preds = append(b.preds, flagSet{column: "c." + column})
	return b
}

// AllowedIDs restricts results to an explicit id allow-list.
// Non-numeric entries are dropped rather than failing the query; a
// non-nil list that is empty after filtering short-circuits the whole
// query to zero results. A nil list means no filter.
func (b *Builder) AllowedIDs(ids []string) *Builder {
	if ids == nil {
		return b
	}

	var values []any
	seen := make(map[int64]bool, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		values = append(values, id)
	}

	if len(values) == 0 {
		b.empty = true
		return b
	}
	b.preds = append(b.preds, inList{column: "c.id", values: values})
	return b
}

// Creators restricts results to a case-insensitive author allow-list.
// A non-nil empty list short-circuits to zero results; nil means no
// filter.
func (b *Builder) Creators(names []string) *Builder {
	if names == nil {
		return b
	}

	var values []any
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		values = append(values, name)
	}

	if len(values) == 0 {
		b.empty = true
		return b
	}
	b.preds = append(b.preds, inList{column: "c.author", values: values, noCase: true})
	return b
}

// Sort selects the sort order; unknown keys fall back to recency.
func (b *Builder) Sort(key SortKey) *Builder {
	b.sort = key
	return b
}

// Paginate sets the result page. Invalid values are clamped.
func (b *Builder) Paginate(page, pageSize int) *Builder {
	b.page = page
	b.pageSize = pageSize
	return b
}

const selectColumns = `c.id, c.name, c.tagline, c.description, c.author, c.topics,
	c.language, c.source, c.source_url, c.token_count, c.chat_count, c.message_count,
	c.favorite_count, c.star_count, c.rating, c.rating_count,
	c.created_at, c.updated_at, c.first_seen_at, c.favorited,
	c.nsfw, c.has_gallery, c.has_lorebook, c.has_alt_greetings,
	c.has_example_dialogs, c.has_scenario, c.has_system_prompt, c.has_creator_notes`

// Build compiles the page and count queries. The two share WHERE text
// and parameter order exactly; only the trailing ORDER BY/LIMIT/OFFSET
// differ, so count and page agree at the same instant.
func (b *Builder) Build() Query {
	page := b.page
	if page < 1 {
		page = 1
	}
	pageSize := b.pageSize
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	if b.empty {
		return Query{Empty: true}
	}

	var where strings.Builder
	var whereArgs []any
	for i, p := range b.preds {
		if i == 0 {
			where.WriteString(" WHERE ")
		} else {
			where.WriteString(" AND ")
		}
		p.compile(&where, &whereArgs)
	}

	orderBy, ok := sortClauses[b.sort]
	if !ok {
		orderBy = sortClauses[SortRecent]
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectColumns)
	sb.WriteString(" FROM cards c")
	sb.WriteString(where.String())
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderBy)
	sb.WriteString(", c.id DESC")
	sb.WriteString(" LIMIT ? OFFSET ?")

	args := make([]any, len(whereArgs), len(whereArgs)+2)
	copy(args, whereArgs)
	args = append(args, pageSize, (page-1)*pageSize)

	countArgs := make([]any, len(whereArgs))
	copy(countArgs, whereArgs)

	return Query{
		SQL:       sb.String(),
		Args:      args,
		CountSQL:  "SELECT COUNT(*) FROM cards c" + where.String(),
		CountArgs: countArgs,
	}
}

// cleanTags trims and drops empty entries, preserving order.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
