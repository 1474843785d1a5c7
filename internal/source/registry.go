package source

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-showtimes/internal/config"
	"github.com/iliyamo/cinema-showtimes/internal/model"
)

// Upcoming is a feed that can list every published future event in one
// request, without a date filter.
type Upcoming interface {
	Name() string
	FetchUpcoming(ctx context.Context) ([]model.Show, error)
}

// Options controls how Build wraps each adapter.
type Options struct {
	Breaker  bool
	Settings BreakerSettings
}

// Build turns the source table into the instrumented adapter list the
// aggregator fans out to, one Forum adapter per (root, area) pair.
func Build(table config.Sources, client *Client, loc *time.Location, opts Options) []Adapter {
	var raw []Adapter
	for _, ch := range table.Forum {
		for _, area := range ch.Areas {
			raw = append(raw, NewForum(client, ch.Root, area, ch.BaseURL, loc))
		}
	}
	if t := table.Ticketing; t != nil {
		raw = append(raw, NewTicketing(client, t.BaseURL, t.Project, loc))
	}
	if w := table.WordPress; w != nil {
		raw = append(raw, NewWordPress(client, w.BaseURL, w.SiteURL, w.Cinema, loc))
	}

	out := make([]Adapter, 0, len(raw))
	for _, a := range raw {
		a = Instrument(a)
		if opts.Breaker {
			a = WithBreaker(a, opts.Settings)
		}
		out = append(out, a)
	}
	return out
}

// BuildUpcoming returns the dateless feeds of the source table.  The prefetch
// pass uses them to widen the title universe beyond its day-by-day window.
func BuildUpcoming(table config.Sources, client *Client, loc *time.Location) []Upcoming {
	var out []Upcoming
	if t := table.Ticketing; t != nil {
		out = append(out, NewTicketing(client, t.BaseURL, t.Project, loc))
	}
	return out
}
