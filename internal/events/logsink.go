package events

import (
	"io"

	"github.com/charmbracelet/log"
)

// LogSink renders events as structured log lines.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a sink logging to w at the given level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func NewLogSink(w io.Writer, level log.Level) *LogSink {
	return &LogSink{logger: log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})}
}

// Emit implements Sink.
func (s *LogSink) Emit(e Event) {
	switch e.Type {
	case TypeStrategyAttempted:
		s.logger.Info("attempting install method", "strategy", e.Strategy)
	case TypeStrategySkipped:
		s.logger.Info("skipping install method", "strategy", e.Strategy, "reason", e.Reason)
	case TypeStrategySucceeded:
		s.logger.Info("install method succeeded", "strategy", e.Strategy, "path", e.Path)
	case TypeStrategyFailed:
		s.logger.Warn("install method failed", "strategy", e.Strategy, "err", e.Err)
	case TypeRollbackFailed:
		s.logger.Warn("rollback failed", "strategy", e.Strategy, "err", e.Err)
	case TypeAllFailed:
		s.logger.Error("all install methods failed", "err", e.Err)
	case TypeResolutionDone:
		s.logger.Debug("resolution finished", "strategy", e.Strategy, "path", e.Path)
	}
}
