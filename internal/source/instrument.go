package source

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-showtimes/internal/logging"
	"github.com/iliyamo/cinema-showtimes/internal/metrics"
	"github.com/iliyamo/cinema-showtimes/internal/model"
)

// instrumented records fetch metrics and a debug log line per call.
type instrumented struct {
	next Adapter
}

// Instrument wraps a with prometheus metrics and structured logging.
func Instrument(a Adapter) Adapter {
	return &instrumented{next: a}
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Fetch(ctx context.Context, date time.Time) ([]model.Show, error) {
	name := i.next.Name()
	started := time.Now()
	shows, err := i.next.Fetch(ctx, date)
	elapsed := time.Since(started)

	metrics.SourceFetchDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		metrics.SourceFetches.WithLabelValues(name, "failure").Inc()
		logging.Warn().Str("source", name).Str("date", date.Format("2006-01-02")).Dur("took", elapsed).Err(err).Msg("source fetch failed")
		return nil, err
	}
	metrics.SourceFetches.WithLabelValues(name, "success").Inc()
	metrics.SourceShows.WithLabelValues(name).Add(float64(len(shows)))
	logging.Debug().Str("source", name).Str("date", date.Format("2006-01-02")).Int("shows", len(shows)).Dur("took", elapsed).Msg("source fetched")
	return shows, nil
}
