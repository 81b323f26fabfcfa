package events

import (
	"context"
	"log/slog"
)

// LogSink writes mint notifications to the structured log. It is the
// sink of last resort for deployments without brokers; nothing
// downstream consumes it programmatically.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, batch []Event) error {
	for _, event := range batch {
		s.logger.Info("wrap minted",
			"event_id", event.ID,
			"instance", event.Instance,
			"user", event.User,
			"period", event.Period,
			"archetype", event.Archetype,
			"minted_at", event.MintedAt,
		)
	}
	return nil
}
