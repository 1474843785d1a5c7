package model

import "slices"

// Mode selects how the index engine applies the title selection.  It is an
// input from the presentation layer, never computed by the engine.
type Mode string

const (
	// ModeStandard narrows the listing by both selected titles and cinemas.
	ModeStandard Mode = "standard"
	// ModeCompact narrows by cinema only; selected titles are listed in a
	// separate always-visible sublist.
	ModeCompact Mode = "compact"
	// ModePicks lists only the selected titles (narrowed by cinema).
	ModePicks Mode = "picks"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeStandard, ModeCompact, ModePicks:
		return true
	}
	return false
}

// Selection is the user's filter state: selected titles, selected cinemas and
// a free-text query.  Entries are matched by exact string equality and stay
// valid even when the current date has no matching shows.
type Selection struct {
	Titles  []string `json:"titles"`
	Cinemas []string `json:"cinemas"`
	Query   string   `json:"query"`
}

// HasTitle reports whether title is selected.
func (s Selection) HasTitle(title string) bool {
	return slices.Contains(s.Titles, title)
}

// HasCinema reports whether cinema is selected.
func (s Selection) HasCinema(cinema string) bool {
	return slices.Contains(s.Cinemas, cinema)
}

// ToggleTitle adds title when absent and removes it otherwise.
func (s *Selection) ToggleTitle(title string) {
	s.Titles = toggle(s.Titles, title)
}

// ToggleCinema adds cinema when absent and removes it otherwise.
func (s *Selection) ToggleCinema(cinema string) {
	s.Cinemas = toggle(s.Cinemas, cinema)
}

// Clone returns a deep copy.
func (s Selection) Clone() Selection {
	return Selection{
		Titles:  slices.Clone(s.Titles),
		Cinemas: slices.Clone(s.Cinemas),
		Query:   s.Query,
	}
}

func toggle(list []string, v string) []string {
	if i := slices.Index(list, v); i >= 0 {
		return slices.Delete(slices.Clone(list), i, i+1)
	}
	return append(slices.Clone(list), v)
}
