package notify

import (
	"context"
	"log/slog"

	"github.com/tiback/tiback-client/internal/core/domain"
	"github.com/tiback/tiback-client/internal/core/ports"
)

// LogSink is a secondary adapter that writes every notification to the log.
// It implements the ports.NotificationSink interface.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink creates a sink that logs at info level.
func NewLogSink(logger *slog.Logger) ports.NotificationSink {
	return NewLogSinkWithLevel(logger, slog.LevelInfo)
}

// NewLogSinkWithLevel creates a sink that logs at the given level.
func NewLogSinkWithLevel(logger *slog.Logger, level slog.Level) ports.NotificationSink {
	return &LogSink{
		logger: logger.With("component", "notification_log"),
		level:  level,
	}
}

// Publish logs the notification. It never fails.
func (s *LogSink) Publish(ctx context.Context, n domain.Notification) error {
	attrs := []any{
		"notification_id", n.ID,
		"type", string(n.Type),
		"timestamp", n.Timestamp,
	}
	if n.EntityID != nil {
		attrs = append(attrs, "ticket_id", *n.EntityID)
	}
	s.logger.Log(ctx, s.level, "notification received", attrs...)
	return nil
}
