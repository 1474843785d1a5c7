package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/cinema-showtimes/internal/model"
	"github.com/iliyamo/cinema-showtimes/internal/utils"
)

// forumSchedule is the body of /xml/Schedule.  The endpoint labels it as XML
// but the payload is JSON.
type forumSchedule struct {
	Shows []forumShow `json:"Shows"`
}

type forumShow struct {
	Title         string       `json:"Title"`
	OriginalTitle string       `json:"OriginalTitle"`
	ShowStart     string       `json:"dttmShowStart"`
	Theatre       string       `json:"Theatre"`
	ShowURL       string       `json:"ShowURL"`
	Images        *forumImages `json:"Images"`
}

type forumImages struct {
	MediumPortrait string `json:"EventMediumImagePortrait"`
	SmallPortrait  string `json:"EventSmallImagePortrait"`
}

// Forum reads one (chain root, area) pair of a Forum-like schedule API.
type Forum struct {
	client  *Client
	root    string
	area    int
	baseURL string
	loc     *time.Location
}

// NewForum builds the adapter for root/area.  An empty baseURL resolves to
// https://www.<root>.lt.
func NewForum(client *Client, root string, area int, baseURL string, loc *time.Location) *Forum {
	if baseURL == "" {
		baseURL = "https://www." + root + ".lt"
	}
	return &Forum{
		client:  client,
		root:    root,
		area:    area,
		baseURL: strings.TrimRight(baseURL, "/"),
		loc:     loc,
	}
}

// Name identifies the adapter as root/area, e.g. forumcinemas/1011.
func (f *Forum) Name() string { return f.root + "/" + strconv.Itoa(f.area) }

func (f *Forum) scheduleURL(date time.Time) string {
	q := url.Values{}
	q.Set("dt", utils.FormatForumDate(date, f.loc))
	q.Set("area", strconv.Itoa(f.area))
	return f.baseURL + "/xml/Schedule?" + q.Encode()
}

// Fetch requests the schedule for date.  A body that is not valid JSON fails
// the whole call rather than yielding partial data.
func (f *Forum) Fetch(ctx context.Context, date time.Time) ([]model.Show, error) {
	body, err := f.client.Get(ctx, f.scheduleURL(date))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	var payload forumSchedule
	if err := decodeJSON(body, &payload); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", f.Name(), ErrDecode, err)
	}

	out := make([]model.Show, 0, len(payload.Shows))
	for _, s := range payload.Shows {
		start, ok := parseLocalTime(s.ShowStart, f.loc)
		if !ok {
			continue
		}
		out = append(out, model.Show{
			Title:         s.Title,
			OriginalTitle: s.OriginalTitle,
			Time:          start,
			Cinema:        s.Theatre,
			URL:           s.ShowURL,
			Poster:        s.Images.poster(),
		})
	}
	return out, nil
}

// poster prefers the medium portrait and falls back to the small one.
func (im *forumImages) poster() string {
	if im == nil {
		return ""
	}
	if im.MediumPortrait != "" {
		return im.MediumPortrait
	}
	return im.SmallPortrait
}
