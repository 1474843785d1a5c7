package index

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ListMode controls how a filter option list is assembled.
type ListMode string

const (
	// AllWithSelectedFirst lists every option, selected ones first.
	AllWithSelectedFirst ListMode = "all-with-selected-first"
	// SelectedOnlyDefault lists only selected options until a query is typed,
	// then the matches plus the selected ones.
	SelectedOnlyDefault ListMode = "selected-only-default"
)

// Valid reports whether m is a known list mode.
func (m ListMode) Valid() bool {
	return m == AllWithSelectedFirst || m == SelectedOnlyDefault
}

// Option is one entry in a filter menu.
type Option struct {
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

// Options builds a filter menu from items.  Entries are ordered selected
// first, then case-insensitively in Lithuanian collation order; a non-empty
// query keeps the matching entries and every selected one.
func Options(items, selected []string, mode ListMode, query string) []Option {
	query = strings.TrimSpace(query)
	picked := make(map[string]bool, len(selected))
	for _, s := range selected {
		picked[s] = true
	}

	kept := make([]string, 0, len(items))
	for _, it := range items {
		switch {
		case picked[it]:
			kept = append(kept, it)
		case query != "":
			if containsFold(it, query) {
				kept = append(kept, it)
			}
		case mode != SelectedOnlyDefault:
			kept = append(kept, it)
		}
	}

	col := collate.New(language.Lithuanian, collate.IgnoreCase)
	slices.SortStableFunc(kept, func(a, b string) int {
		if picked[a] != picked[b] {
			if picked[a] {
				return -1
			}
			return 1
		}
		return col.CompareString(a, b)
	})

	out := make([]Option, 0, len(kept))
	for _, k := range kept {
		out = append(out, Option{Value: k, Selected: picked[k]})
	}
	return out
}
