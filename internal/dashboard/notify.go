package dashboard

import (
	"log/slog"
	"time"
)

// Level grades a user-facing notification.
type Level string

// Notification levels.
const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier surfaces transient messages to whoever watches the dashboard.
type Notifier interface {
	Notify(level Level, message string)
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(level Level, message string) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch level {
	case LevelError:
		logger.Error(message, slog.String("component", "notify"))
	case LevelWarning:
		logger.Warn(message, slog.String("component", "notify"))
	default:
		logger.Info(message, slog.String("component", "notify"))
	}
}

// Fetch outcomes reported to a Recorder.
const (
	OutcomeApplied   = "applied"
	OutcomeUnchanged = "unchanged"
	OutcomeBlocked   = "blocked"
	OutcomeStale     = "stale"
	OutcomeError     = "error"
	OutcomeRejected  = "rejected"
)

// Redraw groups reported to a Recorder.
const (
	GroupMetrics = "metrics"
	GroupSeries  = "series"
	GroupRanking = "ranking"
	GroupPanels  = "panels"
	GroupPodium  = "podium"
)

// Recorder receives poller telemetry.
type Recorder interface {
	ObserveFetch(variant, outcome string, elapsed time.Duration)
	ObserveRedraw(variant, group string)
	ObserveRotation(variant, rotator string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(string, string, time.Duration) {}
func (nopRecorder) ObserveRedraw(string, string)               {}
func (nopRecorder) ObserveRotation(string, string)             {}
