package index

import (
	"strings"

	"github.com/iliyamo/cinema-showtimes/internal/model"
)

// Input is everything Build needs for one render.
type Input struct {
	Day           []model.Show // current date's shows
	All           []model.Show // every show seen across dates, searched when a query is set
	Selection     model.Selection
	Mode          model.Mode
	HiddenTitles  []string
	HiddenCinemas []string
}

// View is the grouped, filtered result handed to the presentation layer.
type View struct {
	Mode      model.Mode   `json:"mode"`
	Query     string       `json:"query,omitempty"`
	Searching bool         `json:"searching"`
	Groups    []TitleGroup `json:"groups"`
	Selected  []TitleGroup `json:"selected,omitempty"`
	Empty     bool         `json:"empty"`
}

// Build applies hidden entries, search and the selection to in and groups
// the survivors.  With a query the date scope is dropped and in.All is
// searched instead of in.Day.
func Build(in Input) View {
	mode := in.Mode
	if !mode.Valid() {
		mode = model.ModeStandard
	}
	query := strings.TrimSpace(in.Selection.Query)

	shows := in.Day
	if query != "" {
		shows = FilterMoviesBySearch(in.All, query)
	}
	shows = withoutHidden(shows, in.HiddenTitles, in.HiddenCinemas)

	sel := in.Selection
	if len(sel.Cinemas) > 0 {
		shows = keep(shows, func(s model.Show) bool { return sel.HasCinema(s.Cinema) })
	}

	v := View{Mode: mode, Query: query, Searching: query != ""}
	switch mode {
	case model.ModeStandard:
		if len(sel.Titles) > 0 {
			shows = keep(shows, func(s model.Show) bool { return sel.HasTitle(s.Title) })
		}
		v.Groups = GroupByTitle(shows)
	case model.ModeCompact:
		picked := keep(shows, func(s model.Show) bool { return sel.HasTitle(s.Title) })
		rest := keep(shows, func(s model.Show) bool { return !sel.HasTitle(s.Title) })
		v.Selected = GroupByTitle(picked)
		v.Groups = GroupByTitle(rest)
	case model.ModePicks:
		v.Groups = GroupByTitle(keep(shows, func(s model.Show) bool { return sel.HasTitle(s.Title) }))
	}
	v.Empty = len(v.Groups) == 0 && len(v.Selected) == 0
	return v
}

func withoutHidden(shows []model.Show, titles, cinemas []string) []model.Show {
	if len(titles) == 0 && len(cinemas) == 0 {
		return shows
	}
	ht := toSet(titles)
	hc := toSet(cinemas)
	return keep(shows, func(s model.Show) bool {
		_, t := ht[s.Title]
		_, c := hc[s.Cinema]
		return !t && !c
	})
}

func keep(shows []model.Show, pred func(model.Show) bool) []model.Show {
	out := make([]model.Show, 0, len(shows))
	for _, s := range shows {
		if pred(s) {
			out = append(out, s)
		}
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}
