package notify

import (
	"context"
	"log/slog"
)

// Log writes notifications to a structured logger. It is the sink used when
// no chat is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Send(_ context.Context, n Notification) error {
	l.logger.Info(n.Title, "task_id", n.TaskID, "body", n.Body)
	return nil
}
