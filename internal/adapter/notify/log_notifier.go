package notify

import (
	"context"
	"log/slog"

	"github.com/rl1809/storefront/internal/core/domain"
)

// LogNotifier writes notifications to the log. Used when no broker is
// configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Send(ctx context.Context, n domain.Notification) error {
	l.log.InfoContext(ctx, "notification",
		slog.String("recipient", n.Recipient),
		slog.String("subject", n.Subject),
		slog.String("body", n.Body))
	return nil
}
