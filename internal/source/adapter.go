// Package source holds the Source Adapters: one per upstream feed family,
// each translating a native payload into canonical model.Show records.
//
// Adapters do not filter by "now"; the aggregator applies the future-only
// rule once per batch.  Missing optional fields are defaulted here so nothing
// upstream-specific leaks past this package.
package source

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/iliyamo/cinema-showtimes/internal/model"
)

// Adapter fetches one upstream feed for a calendar date.  date is any instant
// on the wanted day; adapters interpret it in their configured location.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, date time.Time) ([]model.Show, error)
}

// localLayouts are the wall-clock formats seen in upstream feeds, tried after
// RFC 3339.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseLocalTime parses an upstream timestamp.  Strings carrying an offset
// are taken as is; bare wall-clock strings are interpreted in loc.  ok is
// false for anything unparseable, so callers can drop the record.
func parseLocalTime(s string, loc *time.Location) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeJSON decodes body regardless of the content label it was served
// with.  A leading byte order mark is tolerated.
func decodeJSON(body []byte, v any) error {
	body = bytes.TrimPrefix(body, utf8BOM)
	return json.Unmarshal(body, v)
}

// flexID accepts identifiers encoded either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(strings.TrimSpace(string(b)))
	return nil
}

// flexUnix accepts Unix seconds encoded as a JSON number or numeric string.
// Unparseable values decode to zero, which callers treat as missing.
type flexUnix int64

func (f *flexUnix) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexUnix(n)
		return nil
	}
	if fl, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexUnix(int64(fl))
		return nil
	}
	*f = 0
	return nil
}
