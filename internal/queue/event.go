// Package queue defines the message payloads exchanged over the broker and
// the background consumer that records them.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-showtimes/internal/model"
	"github.com/iliyamo/cinema-showtimes/internal/utils"
)

// ScheduleAggregatedQueue is the durable queue aggregation events go to.
const ScheduleAggregatedQueue = "schedule.aggregated"

// ScheduleAggregatedEvent is published after a day's schedule was loaded in
// full.  It carries counts only, never the shows themselves.
type ScheduleAggregatedEvent struct {
	EventID      string `json:"event_id"`
	Date         string `json:"date"`
	ShowCount    int    `json:"show_count"`
	TitleCount   int    `json:"title_count"`
	CinemaCount  int    `json:"cinema_count"`
	AggregatedAt string `json:"aggregated_at"`
}

// NewScheduleAggregatedEvent summarizes shows loaded for date.
func NewScheduleAggregatedEvent(date time.Time, shows []model.Show, at time.Time, loc *time.Location) ScheduleAggregatedEvent {
	titles := make(map[string]struct{})
	cinemas := make(map[string]struct{})
	for _, s := range shows {
		titles[s.Title] = struct{}{}
		cinemas[s.Cinema] = struct{}{}
	}
	return ScheduleAggregatedEvent{
		EventID:      uuid.NewString(),
		Date:         utils.FormatISODate(date, loc),
		ShowCount:    len(shows),
		TitleCount:   len(titles),
		CinemaCount:  len(cinemas),
		AggregatedAt: at.UTC().Format(time.RFC3339),
	}
}
