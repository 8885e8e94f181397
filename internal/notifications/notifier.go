// Package notifications publishes domain events onto Redis pub/sub for
// downstream consumers. Delivering them to end users happens elsewhere.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"blogspace/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// EventsChannel is the pub/sub channel every domain event is published on.
const EventsChannel = "blogspace:events"

// Event types.
const (
	EventPostCreated    = "post.created"
	EventPostUpdated    = "post.updated"
	EventPostPublished  = "post.published"
	EventPostDeleted    = "post.deleted"
	EventLikeToggled    = "like.toggled"
	EventCommentCreated = "comment.created"
	EventCommentDeleted = "comment.deleted"
)

// Event is the JSON envelope published for every domain change.
type Event struct {
	Type       string         `json:"type"`
	PostID     string         `json:"post_id,omitempty"`
	ActorID    string         `json:"actor_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Notifier provides helpers to publish events into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client yields a Notifier that drops every event.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends ev on EventsChannel.
func (n *Notifier) Publish(ctx context.Context, ev Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, EventsChannel, payload).Err()
}

// Subscribe calls onEvent for every event published until ctx is done. The
// subscription is confirmed before Subscribe returns.
func (n *Notifier) Subscribe(ctx context.Context, onEvent func(Event)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, EventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", EventsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					middleware.Logger.Warn("dropping malformed event", slog.String("error", err.Error()))
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in event subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onEvent(ev)
				}()
			}
		}
	}()

	return nil
}
