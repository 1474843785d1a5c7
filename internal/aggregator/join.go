package aggregator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/iliyamo/cinema-showtimes/internal/metrics"
)

// ErrAggregation reports that a strict join had at least one failed branch.
var ErrAggregation = errors.New("aggregation failed")

// Task is one branch of a fan-out.
type Task[T any] func(ctx context.Context) (T, error)

// JoinStrict launches every task at once, waits for all of them to settle
// and fails as a whole if any branch failed.  Completion time is that of the
// slowest branch; in-flight branches are never cancelled by a sibling's
// failure.
func JoinStrict[T any](ctx context.Context, tasks []Task[T]) ([]T, error) {
	results, err := join(ctx, tasks)
	if err != nil {
		metrics.Joins.WithLabelValues("strict", "failure").Inc()
		return nil, fmt.Errorf("%w: %w", ErrAggregation, err)
	}
	metrics.Joins.WithLabelValues("strict", "success").Inc()
	return results, nil
}

// JoinTolerant launches every task at once and returns the results of the
// branches that succeeded.  The returned error, when non-nil, describes the
// discarded failures and is informational only.
func JoinTolerant[T any](ctx context.Context, tasks []Task[T]) ([]T, error) {
	results, err := join(ctx, tasks)
	switch {
	case err == nil:
		metrics.Joins.WithLabelValues("tolerant", "success").Inc()
	case len(results) == 0:
		metrics.Joins.WithLabelValues("tolerant", "failure").Inc()
	default:
		metrics.Joins.WithLabelValues("tolerant", "partial").Inc()
	}
	return results, err
}

func join[T any](ctx context.Context, tasks []Task[T]) ([]T, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	p := pool.NewWithResults[T]().WithErrors()
	for _, task := range tasks {
		p.Go(func() (T, error) {
			return task(ctx)
		})
	}
	return p.Wait()
}
