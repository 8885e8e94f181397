// Package service holds the business rules that sit between HTTP handlers
// and repositories.
package service

import (
	"context"
	"log/slog"

	"blogspace/internal/middleware"
	"blogspace/internal/notifications"
)

// Publisher emits domain events. *notifications.Notifier satisfies it.
type Publisher interface {
	Publish(ctx context.Context, ev notifications.Event) error
}

// publish emits ev without failing the caller; events are best effort.
func publish(ctx context.Context, p Publisher, ev notifications.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish event",
			slog.String("event", ev.Type),
			slog.String("post_id", ev.PostID),
			slog.String("error", err.Error()),
		)
	}
}
