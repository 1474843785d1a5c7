package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/cinema-showtimes/internal/model"
	"github.com/iliyamo/cinema-showtimes/internal/utils"
)

type ticketingResponse struct {
	Data []ticketingMovie `json:"data"`
}

type ticketingMovie struct {
	Name         string           `json:"name"`
	OriginalName string           `json:"original_name"`
	Events       []ticketingEvent `json:"events"`
}

type ticketingEvent struct {
	StartsAt struct {
		Full string `json:"full"`
	} `json:"starts_at"`
	Theater struct {
		Name string `json:"name"`
	} `json:"theater"`
	MarkusLink   string `json:"markus_link"`
	OriginalName string `json:"original_name"`
}

// Ticketing reads the REST ticketing API.  It supports a single-day mode
// (Fetch) and a dateless mode returning every upcoming event (FetchUpcoming).
type Ticketing struct {
	client  *Client
	baseURL string
	project string
	loc     *time.Location
}

// NewTicketing builds the adapter.  project is sent as
// filter[project_identifier].
func NewTicketing(client *Client, baseURL, project string, loc *time.Location) *Ticketing {
	return &Ticketing{client: client, baseURL: strings.TrimRight(baseURL, "/"), project: project, loc: loc}
}

// Name returns the project identifier, or "ticketing" when unset.
func (t *Ticketing) Name() string {
	if t.project == "" {
		return "ticketing"
	}
	return t.project
}

// Fetch returns the events of one local calendar day.
func (t *Ticketing) Fetch(ctx context.Context, date time.Time) ([]model.Show, error) {
	return t.fetch(ctx, t.moviesURL(&date))
}

// FetchUpcoming returns every event the API currently publishes.
func (t *Ticketing) FetchUpcoming(ctx context.Context) ([]model.Show, error) {
	return t.fetch(ctx, t.moviesURL(nil))
}

func (t *Ticketing) moviesURL(date *time.Time) string {
	q := url.Values{}
	q.Set("include", "mpaaRating,genres,collections")
	if date != nil {
		q.Set("filter[date]", utils.FormatISODate(*date, t.loc))
	}
	if t.project != "" {
		q.Set("filter[project_identifier]", t.project)
	}
	return t.baseURL + "?" + q.Encode()
}

func (t *Ticketing) fetch(ctx context.Context, rawURL string) ([]model.Show, error) {
	body, err := t.client.Get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Name(), err)
	}
	var payload ticketingResponse
	if err := decodeJSON(body, &payload); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", t.Name(), ErrDecode, err)
	}

	out := make([]model.Show, 0)
	for _, movie := range payload.Data {
		for _, ev := range movie.Events {
			start, ok := parseLocalTime(ev.StartsAt.Full, t.loc)
			if !ok {
				continue
			}
			original := ev.OriginalName
			if original == "" {
				original = movie.OriginalName
			}
			out = append(out, model.Show{
				Title:         movie.Name,
				OriginalTitle: original,
				Time:          start,
				Cinema:        ev.Theater.Name,
				URL:           ev.MarkusLink,
			})
		}
	}
	return out, nil
}
