// Package index builds the display-ready views over a list of shows:
// grouping by title and cinema, selection filters, hidden entries and
// free-text search.  Everything here is a pure function of its inputs.
package index

import (
	"slices"
	"time"

	"github.com/iliyamo/cinema-showtimes/internal/model"
)

// CinemaRow is one cinema inside a title group.  Earliest represents the row;
// the remaining screenings at that cinema are in Overflow, in time order.
type CinemaRow struct {
	Cinema   string       `json:"cinema"`
	Earliest model.Show   `json:"earliest"`
	Overflow []model.Show `json:"overflow"`
}

// TitleGroup gathers every show of one title.
type TitleGroup struct {
	Title         string       `json:"title"`
	OriginalTitle string       `json:"originalTitle,omitempty"`
	Poster        string       `json:"poster,omitempty"`
	Earliest      time.Time    `json:"earliest"`
	Shows         []model.Show `json:"shows"`
	Cinemas       []CinemaRow  `json:"cinemas"`
}

// SortByTime returns a copy of shows stably sorted by start time.
func SortByTime(shows []model.Show) []model.Show {
	out := slices.Clone(shows)
	slices.SortStableFunc(out, func(a, b model.Show) int {
		return a.Time.Compare(b.Time)
	})
	return out
}

// GroupByTitle groups shows by exact title.  The input is sorted once by time
// and grouping keeps that order, so title groups come out ordered by their
// earliest show and cinema rows by their own earliest show.  Equal inputs
// always give equal outputs.
func GroupByTitle(shows []model.Show) []TitleGroup {
	sorted := SortByTime(shows)

	groups := make([]TitleGroup, 0)
	byTitle := make(map[string]int)
	for _, s := range sorted {
		i, ok := byTitle[s.Title]
		if !ok {
			i = len(groups)
			byTitle[s.Title] = i
			groups = append(groups, TitleGroup{Title: s.Title, Earliest: s.Time})
		}
		g := &groups[i]
		g.Shows = append(g.Shows, s)
		if g.OriginalTitle == "" {
			g.OriginalTitle = s.OriginalTitle
		}
		if g.Poster == "" {
			g.Poster = s.Poster
		}
	}
	for i := range groups {
		groups[i].Cinemas = cinemaRows(groups[i].Shows)
	}
	return groups
}

// cinemaRows expects shows already in time order.
func cinemaRows(shows []model.Show) []CinemaRow {
	rows := make([]CinemaRow, 0)
	byCinema := make(map[string]int)
	for _, s := range shows {
		i, ok := byCinema[s.Cinema]
		if !ok {
			byCinema[s.Cinema] = len(rows)
			rows = append(rows, CinemaRow{Cinema: s.Cinema, Earliest: s, Overflow: []model.Show{}})
			continue
		}
		rows[i].Overflow = append(rows[i].Overflow, s)
	}
	return rows
}
