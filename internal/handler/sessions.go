package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-showtimes/internal/logging"
	"github.com/iliyamo/cinema-showtimes/internal/model"
	"github.com/iliyamo/cinema-showtimes/internal/repository"
	"github.com/iliyamo/cinema-showtimes/internal/session"
)

// SessionHandler serves the stateful browsing API.
type SessionHandler struct {
	Repo     *repository.SessionRepo
	Source   session.MovieSource
	Catalog  Catalog
	Notifier session.Notifier // optional
	Location *time.Location
	Now      func() time.Time
}

type createSessionRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Mode string `json:"mode" validate:"mode"`
}

type selectDateRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

type filtersRequest struct {
	Titles  []string `json:"titles" validate:"dive,required"`
	Cinemas []string `json:"cinemas" validate:"dive,required"`
	Query   string   `json:"query" validate:"max=200"`
	Mode    string   `json:"mode" validate:"mode"`
}

type queryRequest struct {
	Query string `json:"query" validate:"max=200"`
}

type toggleRequest struct {
	Value string `json:"value" validate:"required"`
}

type hideRequest struct {
	Kind  string `json:"kind" validate:"required,oneof=title cinema"`
	Value string `json:"value" validate:"required"`
}

// CreateSession starts a session on ?date (today by default) and kicks off
// the prefetch pass.  The session is created even when the day fails to
// load; its state then reads "unavailable".
func (h *SessionHandler) CreateSession(c echo.Context) error {
	var req createSessionRequest
	if c.Request().ContentLength != 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return badRequest(c, err.Error())
		}
	}
	date, err := parseDate(req.Date, h.now(), h.Location)
	if err != nil {
		return badRequest(c, err.Error())
	}

	s := session.New(uuid.NewString(), session.Deps{
		Source:   h.Source,
		Catalog:  h.Catalog,
		Notifier: h.Notifier,
		Location: h.Location,
		Now:      h.Now,
	})
	if req.Mode != "" {
		_ = s.SetMode(model.Mode(req.Mode))
	}
	s.OnChange(func(snap session.Snapshot) {
		logging.Debug().
			Str("session", snap.ID).
			Str("date", snap.Date).
			Str("state", string(snap.State)).
			Int("groups", len(snap.View.Groups)).
			Msg("session view updated")
	})
	if err := h.Repo.Create(s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": err.Error()})
	}

	go func(ctx context.Context) {
		if err := h.Catalog.EnsureTitlesPrefetched(ctx); err != nil {
			logging.Warn().Err(err).Msg("prefetch wait aborted")
		}
	}(context.WithoutCancel(c.Request().Context()))

	_ = s.SelectDate(c.Request().Context(), date)
	return c.JSON(http.StatusCreated, s.Snapshot())
}

// GetSession returns the current snapshot.
func (h *SessionHandler) GetSession(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return notFound(c, err.Error())
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

// SelectDate switches the active date, clearing hidden entries.  A day that
// fails to load answers 502 with the session snapshot attached.
func (h *SessionHandler) SelectDate(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return notFound(c, err.Error())
	}
	var req selectDateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	date, err := parseDate(req.Date, h.now(), h.Location)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := s.SelectDate(c.Request().Context(), date); err != nil {
		if errors.Is(err, session.ErrUnavailable) {
			return upstreamFailed(c, err, echo.Map{"session": s.Snapshot()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": err.Error()})
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

// SetFilters replaces the selection and, when given, the mode.
func (h *SessionHandler) SetFilters(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return notFound(c, err.Error())
	}
	var req filtersRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.Mode != "" {
		if err := s.SetMode(model.Mode(req.Mode)); err != nil {
			return badRequest(c, err.Error())
		}
	}
	s.SetSelection(model.Selection{Titles: req.Titles, Cinemas: req.Cinemas, Query: req.Query})
	return c.JSON(http.StatusOK, s.Snapshot())
}

// SetQuery changes only the free-text query.  A non-empty query searches the
// archive, so it waits for the prefetch pass like the filter menus do.
func (h *SessionHandler) SetQuery(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return notFound(c, err.Error())
	}
	var req queryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	q := strings.TrimSpace(req.Query)
	if q != "" {
		if err := h.Catalog.EnsureTitlesPrefetched(c.Request().Context()); err != nil {
			logging.Warn().Err(err).Str("session", s.ID()).Msg("search served before prefetch finished")
		}
	}
	s.SetQuery(q)
	return c.JSON(http.StatusOK, s.Snapshot())
}

// ToggleTitle flips one title in the selection.
func (h *SessionHandler) ToggleTitle(c echo.Context) error {
	return h.toggle(c, (*session.Session).ToggleTitle)
}

// ToggleCinema flips one cinema in the selection.
func (h *SessionHandler) ToggleCinema(c echo.Context) error {
	return h.toggle(c, (*session.Session).ToggleCinema)
}

func (h *SessionHandler) toggle(c echo.Context, fn func(*session.Session, string)) error {
	s, err := h.lookup(c)
	if err != nil {
		return notFound(c, err.Error())
	}
	var req toggleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	fn(s, req.Value)
	return c.JSON(http.StatusOK, s.Snapshot())
}

// Hide removes a title or cinema from the view until the date changes.
func (h *SessionHandler) Hide(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return notFound(c, err.Error())
	}
	var req hideRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.Kind == "title" {
		s.HideTitle(req.Value)
	} else {
		s.HideCinema(req.Value)
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

// DeleteSession ends a session.
func (h *SessionHandler) DeleteSession(c echo.Context) error {
	if err := h.Repo.Delete(c.Param("id")); err != nil {
		return notFound(c, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SessionHandler) lookup(c echo.Context) (*session.Session, error) {
	return h.Repo.Get(c.Param("id"))
}

func (h *SessionHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
