package queue_publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iliyamo/cinema-showtimes/internal/metrics"
	"github.com/iliyamo/cinema-showtimes/internal/model"
	q "github.com/iliyamo/cinema-showtimes/internal/queue"
)

func TestScheduleAggregatedPublishesInBackground(t *testing.T) {
	p := NewPublisher(true, "", time.UTC)
	got := make(chan []byte, 1)
	p.send = func(_ context.Context, body []byte) error {
		got <- body
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	day := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	p.ScheduleAggregated(ctx, day, []model.Show{{Title: "Dune", Cinema: "Skalvija"}})
	cancel()

	select {
	case body := <-got:
		var ev q.ScheduleAggregatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Date != "2026-10-16" || ev.ShowCount != 1 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}
}

func TestDisabledPublisherNeverSends(t *testing.T) {
	p := NewPublisher(false, "", time.UTC)
	p.send = func(context.Context, []byte) error {
		t.Error("disabled publisher sent an event")
		return nil
	}
	p.ScheduleAggregated(context.Background(), time.Now(), nil)

	var nilPub *Publisher
	nilPub.ScheduleAggregated(context.Background(), time.Now(), nil)
}

func TestPublishCountsFailures(t *testing.T) {
	p := NewPublisher(true, "", time.UTC)
	p.send = func(context.Context, []byte) error { return errors.New("broker down") }

	before := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("failure"))
	if err := p.Publish(context.Background(), q.ScheduleAggregatedEvent{EventID: "x"}); err == nil {
		t.Fatal("expected error")
	}
	if after := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("failure")); after != before+1 {
		t.Fatalf("failure counter: before %v after %v", before, after)
	}
}
