package catalog

import (
	"strings"
	"testing"

	"charchive/internal/tagalias"
)

func newTestBuilder() *Builder {
	return NewBuilder(tagalias.NewExpander(tagalias.NewTable(map[string][]string{
		"robot": {"android", "cyborg"},
	})))
}

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	q := newTestBuilder().Build()

	if q.Empty {
		t.Fatal("unfiltered query must not be empty")
	}
	if strings.Contains(q.SQL, "WHERE") {
		t.Errorf("unfiltered query has a WHERE clause: %s", q.SQL)
	}
	if !strings.Contains(q.SQL, "ORDER BY c.updated_at DESC, c.id DESC") {
		t.Errorf("default sort is not recency: %s", q.SQL)
	}
	if !strings.HasSuffix(q.SQL, "LIMIT ? OFFSET ?") {
		t.Errorf("query must end in LIMIT/OFFSET: %s", q.SQL)
	}
	if len(q.Args) != 2 || q.Args[0] != 50 || q.Args[1] != 0 {
		t.Errorf("default pagination args = %v, want [50 0]", q.Args)
	}
	if len(q.CountArgs) != 0 {
		t.Errorf("count args = %v, want none", q.CountArgs)
	}
}

func TestBuildPaginationClamps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		page       int
		pageSize   int
		wantLimit  int
		wantOffset int
	}{
		{"zero values", 0, 0, 50, 0},
		{"negative page", -3, 10, 10, 0},
		{"oversized page size", 1, 5000, 200, 0},
		{"third page", 3, 10, 10, 20},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q := newTestBuilder().Paginate(tt.page, tt.pageSize).Build()
			limit := q.Args[len(q.Args)-2]
			offset := q.Args[len(q.Args)-1]
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("limit/offset = %v/%v, want %d/%d", limit, offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestBuildSortOrders(t *testing.T) {
	t.Parallel()

	for key, clause := range sortClauses {
		q := newTestBuilder().Sort(key).Build()
		want := "ORDER BY " + clause + ", c.id DESC"
		if !strings.Contains(q.SQL, want) {
			t.Errorf("sort %q: query %q missing %q", key, q.SQL, want)
		}
	}
}

func TestBuildUnknownSortFallsBack(t *testing.T) {
	t.Parallel()

	q := newTestBuilder().Sort(SortKey("bogus")).Build()
	if !strings.Contains(q.SQL, "ORDER BY c.updated_at DESC, c.id DESC") {
		t.Errorf("unknown sort did not fall back to recency: %s", q.SQL)
	}
}

func TestBuildTextSearch(t *testing.T) {
	t.Parallel()

	q := newTestBuilder().FullText("dragon").Build()

	if !strings.Contains(q.SQL, "c.name LIKE ? ESCAPE '\\'") {
		t.Errorf("full text match missing name column: %s", q.SQL)
	}
	// name, tagline, description, author
	if got := strings.Count(q.SQL, "LIKE ?"); got != 4 {
		t.Errorf("full text spans %d columns, want 4", got)
	}
	for _, arg := range q.CountArgs {
		if arg != "%dragon%" {
			t.Errorf("text arg = %v, want %%dragon%%", arg)
		}
	}
}

func TestBuildLikeEscaping(t *testing.T) {
	t.Parallel()

	q := newTestBuilder().TitleText(`50%_off\now`).Build()
	want := `%50\%\_off\\now%`
	if len(q.CountArgs) != 1 || q.CountArgs[0] != want {
		t.Errorf("escaped needle = %v, want %q", q.CountArgs, want)
	}
}

func TestBuildTagModes(t *testing.T) {
	t.Parallel()

	// Any mode: one flattened semi-join over both variant sets.
	q := newTestBuilder().IncludeTags([]string{"robot", "dragon"}, TagModeAny).Build()
	if got := strings.Count(q.CountSQL, "c.id IN (SELECT ct.card_id"); got != 1 {
		t.Errorf("any mode compiled %d tag subqueries, want 1", got)
	}
	if len(q.CountArgs) != 4 {
		t.Errorf("any mode args = %v, want robot variants plus dragon", q.CountArgs)
	}

	// All mode: one semi-join per requested tag.
	q = newTestBuilder().IncludeTags([]string{"robot", "dragon"}, TagModeAll).Build()
	if got := strings.Count(q.CountSQL, "c.id IN (SELECT ct.card_id"); got != 2 {
		t.Errorf("all mode compiled %d tag subqueries, want 2", got)
	}
}

func TestBuildTagPredicateCannotMultiplyRows(t *testing.T) {
	t.Parallel()

	// A card tagged with several variants of the same group must count
	// once, so the tag predicate has to be a membership test on c.id,
	// never a correlated EXISTS the flattener could rewrite into a
	// row-multiplying join.
	q := newTestBuilder().IncludeTags([]string{"cyborg"}, TagModeAny).Build()
	if strings.Contains(q.CountSQL, "EXISTS") {
		t.Errorf("tag predicate compiled to EXISTS: %s", q.CountSQL)
	}
	if !strings.Contains(q.CountSQL, "c.id IN (SELECT ct.card_id FROM card_topics ct WHERE ct.topic_lower IN (?, ?, ?))") {
		t.Errorf("tag predicate is not a semi-join: %s", q.CountSQL)
	}
}

func TestBuildTagExpansionLowercases(t *testing.T) {
	t.Parallel()

	q := newTestBuilder().IncludeTags([]string{"Android"}, TagModeAny).Build()
	want := map[string]bool{"android": true, "robot": true, "cyborg": true}
	if len(q.CountArgs) != len(want) {
		t.Fatalf("args = %v, want the lowercased robot group", q.CountArgs)
	}
	for _, arg := range q.CountArgs {
		s, ok := arg.(string)
		if !ok || !want[s] {
			t.Errorf("unexpected variant arg %v", arg)
		}
	}
}

func TestBuildExcludeTags(t *testing.T) {
	t.Parallel()

	q := newTestBuilder().ExcludeTags([]string{"robot"}).Build()
	if !strings.Contains(q.CountSQL, "c.id NOT IN (SELECT ct.card_id") {
		t.Errorf("exclusion did not compile to an anti-join: %s", q.CountSQL)
	}
	if len(q.CountArgs) != 3 {
		t.Errorf("exclusion args = %v, want full variant set", q.CountArgs)
	}
}

func TestBuildAllowedIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ids       []string
		wantEmpty bool
		wantArgs  int
	}{
		{"nil means no filter", nil, false, 0},
		{"explicit empty short-circuits", []string{}, true, 0},
		{"all invalid short-circuits", []string{"abc", ""}, true, 0},
		{"invalid entries dropped", []string{"12", "abc", "40"}, false, 2},
		{"duplicates dropped", []string{"7", "7", "7"}, false, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q := newTestBuilder().AllowedIDs(tt.ids).Build()
			if q.Empty != tt.wantEmpty {
				t.Fatalf("Empty = %v, want %v", q.Empty, tt.wantEmpty)
			}
			if !q.Empty && len(q.CountArgs) != tt.wantArgs {
				t.Errorf("args = %v, want %d entries", q.CountArgs, tt.wantArgs)
			}
		})
	}
}

func TestBuildCreators(t *testing.T) {
	t.Parallel()

	q := newTestBuilder().Creators([]string{"Alice", "BOB", "alice"}).Build()
	if q.Empty {
		t.Fatal("non-empty creator list must not short-circuit")
	}
	if !strings.Contains(q.CountSQL, "LOWER(c.author) IN (?, ?)") {
		t.Errorf("creators clause wrong: %s", q.CountSQL)
	}
	if len(q.CountArgs) != 2 || q.CountArgs[0] != "alice" || q.CountArgs[1] != "bob" {
		t.Errorf("creator args = %v, want [alice bob]", q.CountArgs)
	}

	if q := newTestBuilder().Creators([]string{}).Build(); !q.Empty {
		t.Error("explicit empty creator list must short-circuit")
	}
	if q := newTestBuilder().Creators(nil).Build(); q.Empty {
		t.Error("nil creator list must not short-circuit")
	}
}

func TestBuildSourceFilter(t *testing.T) {
	t.Parallel()

	if q := newTestBuilder().Source("all").Build(); strings.Contains(q.CountSQL, "c.source") {
		t.Errorf(`"all" must disable the source filter: %s`, q.CountSQL)
	}
	if q := newTestBuilder().Source("chub").Build(); !strings.Contains(q.CountSQL, "c.source = ?") {
		t.Errorf("source filter missing: %s", q.CountSQL)
	}
}

func TestBuildFavoriteFilter(t *testing.T) {
	t.Parallel()

	q := newTestBuilder().Favorite(FavoriteOnly).Build()
	if !strings.Contains(q.CountSQL, "c.favorited = ?") || q.CountArgs[0] != 1 {
		t.Errorf("favorite-only filter wrong: %s %v", q.CountSQL, q.CountArgs)
	}

	q = newTestBuilder().Favorite(FavoriteNone).Build()
	if q.CountArgs[0] != 0 {
		t.Errorf("not-favorite filter args = %v, want [0]", q.CountArgs)
	}

	q = newTestBuilder().Favorite(FavoriteAll).Build()
	if strings.Contains(q.CountSQL, "favorited") {
		t.Errorf("all filter must not constrain favorited: %s", q.CountSQL)
	}
}

func TestBuildCountAndPageShareWhere(t *testing.T) {
	t.Parallel()

	q := newTestBuilder().
		FullText("dragon").
		IncludeTags([]string{"robot"}, TagModeAny).
		MinTokens(500).
		Flag("nsfw", true).
		Paginate(2, 25).
		Build()

	wherePos := strings.Index(q.SQL, " WHERE ")
	orderPos := strings.Index(q.SQL, " ORDER BY ")
	if wherePos < 0 || orderPos < 0 {
		t.Fatalf("malformed query: %s", q.SQL)
	}
	pageWhere := q.SQL[wherePos:orderPos]
	countWhere := strings.TrimPrefix(q.CountSQL, "SELECT COUNT(*) FROM cards c")
	if pageWhere != countWhere {
		t.Errorf("WHERE clauses differ:\npage:  %s\ncount: %s", pageWhere, countWhere)
	}

	if len(q.Args) != len(q.CountArgs)+2 {
		t.Fatalf("page args = %d, count args = %d, want page = count + 2", len(q.Args), len(q.CountArgs))
	}
	for i, arg := range q.CountArgs {
		if q.Args[i] != arg {
			t.Errorf("arg %d differs: page %v, count %v", i, q.Args[i], arg)
		}
	}
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"100%", `100\%`},
		{"snake_case", `snake\_case`},
		{`back\slash`, `back\\slash`},
		{`%_\`, `\%\_\\`},
	}
	for _, tt := range tests {
		tt := tt
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
