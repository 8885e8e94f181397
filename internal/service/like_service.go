package service

import (
	"context"
	"log/slog"
	"time"

	"blogspace/internal/cache"
	"blogspace/internal/middleware"
	"blogspace/internal/models"
	"blogspace/internal/notifications"
	"blogspace/internal/observability"
	"blogspace/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// LikeState is a viewer's like on a post together with the post's counter.
type LikeState struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

type LikeService struct {
	posts      repository.PostRepository
	likes      repository.LikeRepository
	reconciler *Reconciler
	events     Publisher

	// how long a toggle queues behind another toggle of the same pair
	lockWait time.Duration
}

func NewLikeService(posts repository.PostRepository, likes repository.LikeRepository, reconciler *Reconciler, events Publisher) *LikeService {
	if reconciler == nil {
		reconciler = NewReconciler(posts, likes)
	}
	return &LikeService{posts: posts, likes: likes, reconciler: reconciler, events: events, lockWait: cache.LikeLockTTL}
}

// Toggle flips the viewer's like on a post. Concurrent toggles for the same
// pair queue behind a short Redis lock when Redis is configured. The ledger's
// primary key keeps the pair unique either way.
func (s *LikeService) Toggle(ctx context.Context, postID string, viewer *models.Viewer) (_ *LikeState, err error) {
	ctx, span := observability.StartSpan(ctx, "LikeService.Toggle", attribute.String("post.id", postID))
	defer func() { observability.EndSpan(span, err) }()

	if viewer == nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	post, err := visiblePost(ctx, s.posts, postID, viewer)
	if err != nil {
		return nil, err
	}

	release, err := cache.WaitLock(ctx, cache.LikeLockKey(postID, viewer.ID), cache.LikeLockTTL, s.lockWait)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		// the reconciler repairs any counter drift from an unserialized toggle
		middleware.Logger.WarnContext(ctx, "like lock unavailable, relying on ledger constraint",
			slog.String("post_id", postID), slog.String("error", err.Error()))
	}
	defer release()

	removed, err := s.likes.Delete(ctx, postID, viewer.ID)
	if err != nil {
		return nil, err
	}

	var (
		liked  bool
		delta  int
		result string
	)
	if removed {
		delta, result = -1, "unliked"
	} else {
		inserted, err := s.likes.Insert(ctx, postID, viewer.ID)
		if err != nil {
			return nil, err
		}
		liked = true
		if inserted {
			delta, result = 1, "liked"
		} else {
			// a concurrent toggle inserted the entry and already counted it
			result = "raced"
		}
	}
	observability.LikeToggles.WithLabelValues(result).Inc()

	if delta != 0 {
		if err := s.posts.AdjustLikeCount(ctx, postID, delta); err != nil {
			s.reconciler.repairAfter(ctx, postID, err)
		}
	}

	likes, err := s.posts.LikeCount(ctx, postID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to read like counter", slog.String("post_id", postID), slog.String("error", err.Error()))
		likes = max(post.Likes+int64(delta), 0)
	}

	cache.InvalidatePost(ctx, post.Slug)
	publish(ctx, s.events, notifications.Event{
		Type:    notifications.EventLikeToggled,
		PostID:  postID,
		ActorID: viewer.ID,
		Data:    map[string]any{"liked": liked, "likes": likes},
	})
	return &LikeState{Liked: liked, Likes: likes}, nil
}

// Status reports whether viewer likes the post and its current counter.
func (s *LikeService) Status(ctx context.Context, postID string, viewer *models.Viewer) (*LikeState, error) {
	post, err := visiblePost(ctx, s.posts, postID, viewer)
	if err != nil {
		return nil, err
	}
	state := &LikeState{Likes: post.Likes}
	if viewer == nil {
		return state, nil
	}
	state.Liked, err = s.likes.Exists(ctx, postID, viewer.ID)
	if err != nil {
		return nil, err
	}
	return state, nil
}
