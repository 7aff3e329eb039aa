package tagalias

import "strings"

// Distance returns the Levenshtein edit distance between a and b:
// the minimum number of single-rune insertions, deletions, and
// substitutions needed to transform a into b.
func Distance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	rows := len(ra) + 1
	cols := len(rb) + 1

	d := make([][]int, rows)
	for i := range d {
		d[i] = make([]int, cols)
		d[i][0] = i
	}
	for j := 0; j < cols; j++ {
		d[0][j] = j
	}

	for i := 1; i < rows; i++ {
		for j := 1; j < cols; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := d[i-1][j] + 1
			ins := d[i][j-1] + 1
			sub := d[i-1][j-1] + cost

			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			d[i][j] = min
		}
	}

	return d[rows-1][cols-1]
}

// maxEdits returns the edit-distance budget for a query of the given
// rune length. Short tags get no fuzzy budget at all so that strings
// like "ai" or "rp" cannot land in unrelated groups.
func maxEdits(length int) int {
	switch {
	case length >= 6:
		return 2
	case length >= 4:
		return 1
	default:
		return 0
	}
}

// BestMatch finds the canonical group closest to the lowercased query.
// Canonical names are scanned first; only if none falls within the
// threshold are the variant spellings scanned, in which case the
// matching variant's canonical group is returned. Ties keep the
// first-found minimum.
func (t *Table) BestMatch(query string) (string, bool) {
	query = strings.ToLower(query)
	budget := maxEdits(len([]rune(query)))

	best := ""
	bestDist := budget + 1

	for canonical := range t.groups {
		if d := Distance(query, strings.ToLower(canonical)); d < bestDist {
			best = canonical
			bestDist = d
		}
	}
	if bestDist <= budget {
		return best, true
	}

	best = ""
	bestDist = budget + 1
	for variant, canonical := range t.reverse {
		if d := Distance(query, variant); d < bestDist {
			best = canonical
			bestDist = d
		}
	}
	if bestDist <= budget {
		return best, true
	}

	return "", false
}
