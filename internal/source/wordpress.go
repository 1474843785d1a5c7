package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/iliyamo/cinema-showtimes/internal/logging"
	"github.com/iliyamo/cinema-showtimes/internal/model"
	"github.com/iliyamo/cinema-showtimes/internal/utils"
)

// wordpressFeed carries two parallel collections joined by event id.  The
// elements stay raw so one malformed record cannot fail the whole feed.
type wordpressFeed struct {
	Shows  []json.RawMessage `json:"shows"`
	Events []json.RawMessage `json:"events"`
}

type wordpressShow struct {
	ID        flexID   `json:"_id"`
	EventID   flexID   `json:"eventid"`
	StartDate flexUnix `json:"start_date"`
}

type wordpressEvent struct {
	ID            flexID `json:"_id"`
	Title         string `json:"title"`
	Link          string `json:"link"`
	OriginalTitle string `json:"title_originalo_kalba"`
}

// WordPress reads a WordPress custom JSON feed that always returns the full
// schedule.  Narrowing to the requested day happens here by local calendar
// date comparison.
type WordPress struct {
	client  *Client
	baseURL string
	siteURL string
	cinema  string
	loc     *time.Location
}

// NewWordPress builds the adapter.  Every show is attributed to cinema and
// linked under siteURL.
func NewWordPress(client *Client, baseURL, siteURL, cinema string, loc *time.Location) *WordPress {
	return &WordPress{
		client:  client,
		baseURL: baseURL,
		siteURL: strings.TrimRight(siteURL, "/"),
		cinema:  cinema,
		loc:     loc,
	}
}

// Name is the lower-cased cinema name.
func (w *WordPress) Name() string { return strings.ToLower(w.cinema) }

// Fetch downloads the whole feed and keeps the shows on date's calendar day.
// Shows referencing an unknown event or lacking a start time are skipped.
func (w *WordPress) Fetch(ctx context.Context, date time.Time) ([]model.Show, error) {
	body, err := w.client.Get(ctx, w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", w.Name(), err)
	}
	var payload *wordpressFeed
	if err := decodeJSON(body, &payload); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", w.Name(), ErrDecode, err)
	}
	if payload == nil {
		return []model.Show{}, nil
	}

	skipped := 0
	events := make(map[flexID]wordpressEvent, len(payload.Events))
	for _, raw := range payload.Events {
		var ev wordpressEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			skipped++
			continue
		}
		events[ev.ID] = ev
	}

	out := make([]model.Show, 0)
	for _, raw := range payload.Shows {
		var s wordpressShow
		if err := json.Unmarshal(raw, &s); err != nil {
			skipped++
			continue
		}
		ev, ok := events[s.EventID]
		if !ok || s.StartDate <= 0 {
			continue
		}
		start := time.Unix(int64(s.StartDate), 0).In(w.loc)
		if !utils.SameDay(start, date, w.loc) {
			continue
		}
		out = append(out, model.Show{
			Title:         ev.Title,
			OriginalTitle: ev.OriginalTitle,
			Time:          start,
			Cinema:        w.cinema,
			URL:           w.showURL(ev, s),
		})
	}
	if skipped > 0 {
		logging.Debug().Str("source", w.Name()).Int("skipped", skipped).Msg("malformed feed records skipped")
	}
	return out, nil
}

func (w *WordPress) showURL(ev wordpressEvent, s wordpressShow) string {
	if ev.Link == "" {
		return ""
	}
	return w.siteURL + ev.Link + "?show=" + string(s.ID)
}
