// Package notification delivers operational alerts to tenants, currently
// low-credit warnings.
package notification

import (
	"context"
	"log/slog"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// LogNotifier records notifications in the application log. It stands in
// until an email or SMS channel is wired up.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Notification",
		slog.String("recipient", recipient),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
