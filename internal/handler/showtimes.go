// Package handler exposes the HTTP API over the aggregator, the prefetch
// cache, the index engine and browsing sessions.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-showtimes/internal/index"
	"github.com/iliyamo/cinema-showtimes/internal/logging"
	"github.com/iliyamo/cinema-showtimes/internal/model"
	"github.com/iliyamo/cinema-showtimes/internal/session"
	"github.com/iliyamo/cinema-showtimes/internal/utils"
)

// Aggregator loads one day from every source.
type Aggregator interface {
	GetAllMovies(ctx context.Context, date time.Time) ([]model.Show, error)
	GetAllMoviesBestEffort(ctx context.Context, date time.Time) ([]model.Show, error)
}

// Catalog is the prefetch cache as seen by the API.
type Catalog interface {
	EnsureTitlesPrefetched(ctx context.Context) error
	Ready() bool
	Observe(date time.Time, shows []model.Show)
	AllShows() []model.Show
	Titles() []string
	Cinemas() []string
}

// ShowtimeHandler serves the stateless schedule endpoints.
type ShowtimeHandler struct {
	Aggregator Aggregator
	Catalog    Catalog
	Notifier   session.Notifier // optional
	Location   *time.Location
	Now        func() time.Time
}

// ShowtimesResponse is the body of GET /v1/showtimes.
type ShowtimesResponse struct {
	Date    string       `json:"date"`
	Label   string       `json:"label"`
	Partial bool         `json:"partial"`
	Count   int          `json:"count"`
	Items   []model.Show `json:"items"`
}

// GetShowtimes returns the future shows of ?date (today by default) from
// every source.  A single failed source fails the request with 502 unless
// best_effort=true, in which case the shows that did load are returned.
func (h *ShowtimeHandler) GetShowtimes(c echo.Context) error {
	date, err := h.dateParam(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	bestEffort, _ := strconv.ParseBool(c.QueryParam("best_effort"))
	ctx := c.Request().Context()

	var (
		shows   []model.Show
		partial bool
	)
	if bestEffort {
		shows, err = h.Aggregator.GetAllMoviesBestEffort(ctx, date)
		partial = err != nil
		if err != nil {
			logging.Warn().Err(err).Str("date", h.dateKey(date)).Msg("partial schedule served")
		}
	} else {
		shows, err = h.load(ctx, date)
		if err != nil {
			return upstreamFailed(c, err, nil)
		}
	}
	if shows == nil {
		shows = []model.Show{}
	}

	return c.JSON(http.StatusOK, ShowtimesResponse{
		Date:    h.dateKey(date),
		Label:   utils.LabelForDate(date, h.now(), h.Location),
		Partial: partial,
		Count:   len(shows),
		Items:   index.SortByTime(shows),
	})
}

// GetListings returns the grouped view of ?date filtered by the repeated
// title and cinema parameters, q and mode.  With q set the search runs over
// every prefetched or browsed day instead.
func (h *ShowtimeHandler) GetListings(c echo.Context) error {
	date, err := h.dateParam(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	mode := model.Mode(c.QueryParam("mode"))
	if mode == "" {
		mode = model.ModeStandard
	}
	if !mode.Valid() {
		return badRequest(c, "mode must be standard, compact or picks")
	}

	ctx := c.Request().Context()
	day, err := h.load(ctx, date)
	if err != nil {
		return upstreamFailed(c, err, echo.Map{"date": h.dateKey(date)})
	}

	sel := model.Selection{
		Titles:  nonNil(c.QueryParams()["title"]),
		Cinemas: nonNil(c.QueryParams()["cinema"]),
		Query:   strings.TrimSpace(c.QueryParam("q")),
	}
	in := index.Input{Day: day, Selection: sel, Mode: mode}
	if sel.Query != "" {
		if err := h.Catalog.EnsureTitlesPrefetched(ctx); err != nil {
			logging.Warn().Err(err).Msg("search served before prefetch finished")
		}
		in.All = model.FutureOnly(h.Catalog.AllShows(), h.now())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"date":      h.dateKey(date),
		"label":     utils.LabelForDate(date, h.now(), h.Location),
		"selection": sel,
		"view":      index.Build(in),
	})
}

// GetUniverse returns the filter menus built from every title and cinema seen
// so far, waiting for the prefetch pass when it has not finished yet.
func (h *ShowtimeHandler) GetUniverse(c echo.Context) error {
	listMode := index.ListMode(c.QueryParam("list_mode"))
	if listMode == "" {
		listMode = index.AllWithSelectedFirst
	}
	if !listMode.Valid() {
		return badRequest(c, "list_mode must be all-with-selected-first or selected-only-default")
	}
	if err := h.Catalog.EnsureTitlesPrefetched(c.Request().Context()); err != nil {
		logging.Warn().Err(err).Msg("universe served before prefetch finished")
	}

	q := c.QueryParam("q")
	return c.JSON(http.StatusOK, echo.Map{
		"ready":   h.Catalog.Ready(),
		"titles":  index.Options(h.Catalog.Titles(), c.QueryParams()["title"], listMode, q),
		"cinemas": index.Options(h.Catalog.Cinemas(), c.QueryParams()["cinema"], listMode, q),
	})
}

// load runs the strict aggregation and feeds the result to the catalog and
// the notifier.
func (h *ShowtimeHandler) load(ctx context.Context, date time.Time) ([]model.Show, error) {
	shows, err := h.Aggregator.GetAllMovies(ctx, date)
	if err != nil {
		return nil, err
	}
	h.Catalog.Observe(date, shows)
	if h.Notifier != nil {
		h.Notifier.ScheduleAggregated(ctx, date, shows)
	}
	return shows, nil
}

func (h *ShowtimeHandler) dateParam(c echo.Context) (time.Time, error) {
	return parseDate(c.QueryParam("date"), h.now(), h.Location)
}

func (h *ShowtimeHandler) dateKey(t time.Time) string {
	return utils.FormatISODate(t, h.Location)
}

func (h *ShowtimeHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// parseDate reads a YYYY-MM-DD value in loc; empty means the day of now.
func parseDate(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return utils.DayStart(now, loc), nil
	}
	d, err := utils.ParseISODate(raw, loc)
	if err != nil {
		return time.Time{}, err
	}
	return d, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
