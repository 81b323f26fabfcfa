package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wrapregistry_events_published_total",
		Help: "Mint notifications delivered to the sink.",
	})
	publishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wrapregistry_event_publish_failures_total",
		Help: "Outbox drain attempts that failed and will retry.",
	})
)

const (
	defaultInterval  = 500 * time.Millisecond
	defaultBatchSize = 100
)

// Worker drains the outbox into a sink on an interval. Failures are
// logged and retried on the next tick; entries are only marked
// published after the sink accepted them, so delivery is at-least-once
// and ordered per commit.
type Worker struct {
	outbox   Outbox
	sink     Sink
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

// WorkerOption customizes a Worker.
type WorkerOption func(*Worker)

// WithInterval overrides the polling interval.
func WithInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithBatchSize overrides how many events one drain pass lists.
func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batch = n
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func NewWorker(outbox Outbox, sink Sink, opts ...WorkerOption) *Worker {
	w := &Worker{
		outbox:   outbox,
		sink:     sink,
		interval: defaultInterval,
		batch:    defaultBatchSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled. One failed pass never stops the
// worker; the outbox preserves the events for the next tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				publishFailures.Inc()
				w.logger.Error("outbox drain failed", "error", err)
			}
		}
	}
}

// Drain publishes every staged event. Also called once at shutdown to
// flush without waiting for a tick.
func (w *Worker) Drain(ctx context.Context) error {
	for {
		batch, err := w.outbox.ListUnpublishedEvents(ctx, w.batch)
		if err != nil {
			return fmt.Errorf("list unpublished events: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		if err := w.sink.Publish(ctx, batch); err != nil {
			return fmt.Errorf("publish events: %w", err)
		}

		ids := make([]uuid.UUID, len(batch))
		for i, event := range batch {
			ids[i] = event.ID
		}
		if err := w.outbox.MarkEventsPublished(ctx, ids); err != nil {
			return fmt.Errorf("mark events published: %w", err)
		}
		publishedTotal.Add(float64(len(batch)))

		if len(batch) < w.batch {
			return nil
		}
	}
}
