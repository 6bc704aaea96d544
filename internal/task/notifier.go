package task

import (
	"context"
	"log/slog"

	"github.com/keepstone/keepstone/internal/domain"
	"github.com/keepstone/keepstone/internal/platform/logger"
)

// Notifier delivers a warning about an artifact that expires soon.
type Notifier interface {
	NotifyExpiring(ctx context.Context, artifact *domain.Artifact, daysLeft int) error
}

// LogNotifier writes expiry warnings to the log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With(slog.String("component", "log_notifier"))}
}

// NotifyExpiring implements Notifier.
func (n *LogNotifier) NotifyExpiring(ctx context.Context, artifact *domain.Artifact, daysLeft int) error {
	logger.FromContextOrDefault(ctx, n.logger).Warn("artifact expires soon",
		slog.Int64("artifact_id", artifact.ID),
		slog.Int64("project_id", artifact.ProjectID),
		slog.String("name", artifact.Name),
		slog.String("used_for", artifact.UsedFor),
		slog.Int("days_left", daysLeft))
	return nil
}
