package tagalias

import "strings"

// Expander resolves a user-supplied tag to the full set of spellings
// that should be treated as equivalent. It is pure with respect to the
// table it wraps: call Expand once per distinct user tag per query, not
// per row.
type Expander struct {
	table *Table
}

// NewExpander wraps an alias table. A nil table behaves like an empty
// one.
func NewExpander(table *Table) *Expander {
	if table == nil {
		table = NewTable(nil)
	}
	return &Expander{table: table}
}

// Table returns the wrapped alias table.
func (e *Expander) Table() *Table {
	return e.table
}

// ResolutionKind reports how a tag was resolved to an alias group.
type ResolutionKind string

const (
	// ResolvedExact means the lowercased tag was a known variant.
	ResolvedExact ResolutionKind = "exact"
	// ResolvedFuzzy means the tag matched a group within the edit
	// distance threshold.
	ResolvedFuzzy ResolutionKind = "fuzzy"
	// ResolvedNone means the tag matched no group at all.
	ResolvedNone ResolutionKind = "none"
)

// Expand returns the variant set for tag. The verbatim input is always
// the first element. If the tag resolves to an alias group, exactly via
// the reverse map or through the fuzzy fallback, the group's spellings
// follow. The result is de-duplicated case-insensitively.
func (e *Expander) Expand(tag string) []string {
	variants, _ := e.ExpandWithKind(tag)
	return variants
}

// ExpandWithKind is Expand plus a report of how the tag resolved.
func (e *Expander) ExpandWithKind(tag string) ([]string, ResolutionKind) {
	out := []string{tag}
	seen := map[string]bool{strings.ToLower(tag): true}

	kind := ResolvedExact
	canonical, ok := e.table.CanonicalOf(tag)
	if !ok {
		canonical, ok = e.table.BestMatch(strings.TrimSpace(tag))
		kind = ResolvedFuzzy
	}
	if !ok {
		return out, ResolvedNone
	}

	for _, variant := range e.table.Group(canonical) {
		lower := strings.ToLower(variant)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, variant)
	}

	return out, kind
}
