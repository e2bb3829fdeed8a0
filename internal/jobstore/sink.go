package jobstore

import (
	"context"
	"log/slog"

	"github.com/basinlabs/pgbridge/internal/model"
)

// SlogSink bridges a model.LogEvent stream to a *slog.Logger, for local/CLI
// runs that don't persist against a migration_logs table at all. There is
// no separate Postgres sink type: the Coordinator adapts any Store's
// AppendLog (Postgres included) to model.Sink.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink wraps logger. A nil logger falls back to slog.Default().
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Append(ctx context.Context, event model.LogEvent) error {
	attrs := []any{"job_id", event.JobID, "table", event.TableName}
	switch event.Level {
	case model.LogWarning:
		s.logger.Warn(event.Message, attrs...)
	case model.LogError:
		s.logger.Error(event.Message, attrs...)
	default:
		s.logger.Info(event.Message, attrs...)
	}
	return nil
}
