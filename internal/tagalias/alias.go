package tagalias

import (
	"encoding/json"
	"os"
	"strings"

	"charchive/internal/logging"
)

// Table holds the alias groups and the derived reverse lookup map.
// It is immutable after construction.
type Table struct {
	groups  map[string][]string // canonical -> variant spellings
	reverse map[string]string   // lowercase(variant) -> canonical
}

// NewTable builds a Table from canonical -> variants groups.
// The canonical name itself is always treated as a member of its group.
func NewTable(groups map[string][]string) *Table {
	t := &Table{
		groups:  make(map[string][]string, len(groups)),
		reverse: make(map[string]string),
	}

	for canonical, variants := range groups {
		members := make([]string, 0, len(variants)+1)
		seen := make(map[string]bool, len(variants)+1)

		add := func(v string) {
			v = strings.TrimSpace(v)
			if v == "" {
				return
			}
			lower := strings.ToLower(v)
			if seen[lower] {
				return
			}
			seen[lower] = true
			members = append(members, v)
			t.reverse[lower] = canonical
		}

		add(canonical)
		for _, v := range variants {
			add(v)
		}

		t.groups[canonical] = members
	}

	return t
}

// Load reads an alias table from a JSON file of the form
// {"canonical": ["variant", ...], ...}. A missing or malformed file is
// not fatal: the archive degrades to exact-string tag matching, so Load
// logs the problem and returns an empty table.
func Load(path string) *Table {
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Warn("Alias table not loaded from %s: %v (tag matching degrades to exact strings)", path, err)
		return NewTable(nil)
	}

	var groups map[string][]string
	if err := json.Unmarshal(data, &groups); err != nil {
		logging.Warn("Alias table %s is not valid JSON: %v (tag matching degrades to exact strings)", path, err)
		return NewTable(nil)
	}

	t := NewTable(groups)
	logging.Info("Loaded %d alias groups (%d variant spellings) from %s", len(t.groups), len(t.reverse), path)
	return t
}

// Snapshot returns a deep copy of the alias groups. Callers can mutate
// the result freely without affecting the live table.
func (t *Table) Snapshot() map[string][]string {
	out := make(map[string][]string, len(t.groups))
	for canonical, variants := range t.groups {
		cp := make([]string, len(variants))
		copy(cp, variants)
		out[canonical] = cp
	}
	return out
}

// CanonicalOf resolves a variant spelling to its canonical group name.
// Matching is case-insensitive.
func (t *Table) CanonicalOf(variant string) (string, bool) {
	canonical, ok := t.reverse[strings.ToLower(variant)]
	return canonical, ok
}

// Group returns the variant spellings of a canonical group, or nil if
// the canonical name is unknown.
func (t *Table) Group(canonical string) []string {
	return t.groups[canonical]
}

// Len returns the number of alias groups.
func (t *Table) Len() int {
	return len(t.groups)
}
