// Package notify surfaces user-facing notices. Ledger mutation failures
// and targeted insight errors must reach the user; capability and
// bulk-insight failures never go through here.
package notify

import (
	"context"
	"log/slog"
)

// Level classifies a notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notifier delivers a notice to the user.
type Notifier interface {
	Notify(ctx context.Context, level Level, msg string)
}

// LogNotifier writes notices to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, level Level, msg string) {
	if level == LevelError {
		slog.Error("Notice", "msg", msg)
		return
	}
	slog.Info("Notice", "msg", msg)
}

type multiNotifier []Notifier

func (m multiNotifier) Notify(ctx context.Context, level Level, msg string) {
	for _, n := range m {
		n.Notify(ctx, level, msg)
	}
}

// Multi fans a notice out to several notifiers.
func Multi(notifiers ...Notifier) Notifier {
	return multiNotifier(notifiers)
}
