package model

import "time"

// Show is one scheduled screening, the canonical record every source adapter
// produces.  Shows are immutable once built and carry no identity of their
// own: Title is the grouping key and Cinema the venue key.
//
// Fields:
//
//	Title         – display title; empty when the source omits it.
//	OriginalTitle – original-language title; empty when the source has none.
//	Time          – absolute start instant, never the zero time.
//	Cinema        – display name of the venue.
//	URL           – purchase/details link; may be empty.
//	Poster        – image URL; empty when the source has none.
type Show struct {
	Title         string    `json:"title"`
	OriginalTitle string    `json:"originalTitle,omitempty"`
	Time          time.Time `json:"time"`
	Cinema        string    `json:"cinema"`
	URL           string    `json:"url"`
	Poster        string    `json:"poster,omitempty"`
}

// After reports whether the show starts strictly after t.
func (s Show) After(t time.Time) bool {
	return s.Time.After(t)
}

// FutureOnly returns the shows starting strictly after now, preserving order.
// now is captured once by the caller so a whole batch is judged against the
// same instant.
func FutureOnly(shows []Show, now time.Time) []Show {
	out := make([]Show, 0, len(shows))
	for _, s := range shows {
		if s.After(now) {
			out = append(out, s)
		}
	}
	return out
}
