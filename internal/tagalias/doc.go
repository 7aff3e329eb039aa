// Package tagalias maps free-form topic spellings onto canonical alias
// groups for the card archive.
//
// An alias table is loaded once at startup from a JSON file of
// canonical-name -> variant-spellings groups. Lookups happen in two
// stages: an exact reverse lookup over lowercased variants, then an
// edit-distance fallback with a length-adaptive threshold so that short
// tags like "ai" or "rp" never fuzzy-match unrelated groups.
//
// The Expander combines both stages and is constructed once and passed
// into the catalog store; there is no package-level table state.
package tagalias
