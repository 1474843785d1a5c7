// Package queue_publisher publishes domain events to RabbitMQ.  Publishing is
// best effort: failures are logged and counted, never surfaced to the request
// that triggered them.
package queue_publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinema-showtimes/internal/logging"
	"github.com/iliyamo/cinema-showtimes/internal/metrics"
	"github.com/iliyamo/cinema-showtimes/internal/model"
	q "github.com/iliyamo/cinema-showtimes/internal/queue"
)

const publishTimeout = 5 * time.Second

// Publisher sends ScheduleAggregatedEvents.  A disabled Publisher drops every
// event without dialing.
type Publisher struct {
	enabled bool
	url     string
	loc     *time.Location
	now     func() time.Time
	send    func(ctx context.Context, body []byte) error
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(enabled bool, url string, loc *time.Location) *Publisher {
	p := &Publisher{enabled: enabled, url: url, loc: loc, now: time.Now}
	p.send = p.dialAndPublish
	return p
}

// ScheduleAggregated summarizes shows and publishes the event in the
// background.  It returns immediately.
func (p *Publisher) ScheduleAggregated(ctx context.Context, date time.Time, shows []model.Show) {
	if p == nil || !p.enabled {
		return
	}
	ev := q.NewScheduleAggregatedEvent(date, shows, p.now(), p.loc)
	// the request may finish before the broker answers
	bg := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(bg, publishTimeout)
		defer cancel()
		_ = p.Publish(ctx, ev)
	}()
}

// Publish sends ev synchronously.  Errors are logged and returned so callers
// can choose to ignore them.
func (p *Publisher) Publish(ctx context.Context, ev q.ScheduleAggregatedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		metrics.EventsPublished.WithLabelValues("failure").Inc()
		logging.Error().Err(err).Msg("rabbitmq: marshal event failed")
		return err
	}
	if err := p.send(ctx, body); err != nil {
		metrics.EventsPublished.WithLabelValues("failure").Inc()
		logging.Warn().Err(err).Str("event_id", ev.EventID).Str("date", ev.Date).Msg("rabbitmq: publish failed")
		return err
	}
	metrics.EventsPublished.WithLabelValues("success").Inc()
	logging.Debug().Str("event_id", ev.EventID).Str("date", ev.Date).Msg("schedule.aggregated published")
	return nil
}

func (p *Publisher) dialAndPublish(ctx context.Context, body []byte) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		q.ScheduleAggregatedQueue, // name
		true,                      // durable
		false,                     // autoDelete
		false,                     // exclusive
		false,                     // noWait
		nil,                       // args
	); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",                        // default exchange
		q.ScheduleAggregatedQueue, // routing key = queue name
		false,                     // mandatory
		false,                     // immediate
		pub,
	); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
