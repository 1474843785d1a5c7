package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iliyamo/cinema-showtimes/internal/logging"
)

// Consumer listens to the schedule.aggregated queue and appends one line per
// event to an audit log.
type Consumer struct {
	url string
	out io.Writer
}

// NewConsumer returns a Consumer writing to a size-rotated file at path.
func NewConsumer(url, path string) *Consumer {
	return NewConsumerWithWriter(url, &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	})
}

// NewConsumerWithWriter returns a Consumer writing lines to out.
func NewConsumerWithWriter(url string, out io.Writer) *Consumer {
	return &Consumer{url: url, out: out}
}

// Run connects to the broker, declares the queue and consumes until ctx is
// cancelled, reconnecting with backoff whenever the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			logging.Warn().Err(err).Dur("retry_in", backoff).Msg("aggregation consumer: dial failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Warn().Err(err).Msg("aggregation consumer: loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logging.Warn().Err(err).Msg("aggregation consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(ScheduleAggregatedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, ScheduleAggregatedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.handleMessage(d.Body); err != nil {
			logging.Error().Err(err).Msg("aggregation consumer: handle message failed")
			_ = d.Nack(false, false) // no requeue, avoids a poison loop
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *Consumer) handleMessage(body []byte) error {
	var ev ScheduleAggregatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Schedule aggregated | event_id=%s | date=%s | shows=%d | titles=%d | cinemas=%d\n",
		ev.AggregatedAt, ev.EventID, ev.Date, ev.ShowCount, ev.TitleCount, ev.CinemaCount)
	if _, err := io.WriteString(c.out, line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
