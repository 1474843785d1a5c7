package index

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/iliyamo/cinema-showtimes/internal/model"
)

// FilterMoviesBySearch keeps the shows whose title or original title contains
// query, ignoring case.  An empty query returns shows unchanged.
func FilterMoviesBySearch(shows []model.Show, query string) []model.Show {
	query = strings.TrimSpace(query)
	if query == "" {
		return shows
	}
	// cases.Caser keeps state and is not safe for concurrent use.
	fold := cases.Fold()
	needle := fold.String(query)

	out := make([]model.Show, 0)
	for _, s := range shows {
		if strings.Contains(fold.String(s.Title), needle) ||
			(s.OriginalTitle != "" && strings.Contains(fold.String(s.OriginalTitle), needle)) {
			out = append(out, s)
		}
	}
	return out
}

// containsFold reports whether s contains sub, ignoring case.
func containsFold(s, sub string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(sub))
}
