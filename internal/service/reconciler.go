package service

import (
	"context"
	"log/slog"
	"time"

	"blogspace/internal/middleware"
	"blogspace/internal/models"
	"blogspace/internal/observability"
	"blogspace/internal/repository"
)

const driftBatchSize = 500

// Reconciler recomputes cached like counters from the like ledger, the
// authoritative source. It is safe to run at any time, concurrently with
// toggles.
type Reconciler struct {
	posts repository.PostRepository
	likes repository.LikeRepository
}

type ReconcileResult struct {
	PostID  string `json:"post_id"`
	Cached  int64  `json:"cached"`
	Actual  int64  `json:"actual"`
	Drifted bool   `json:"drifted"`
}

type ReconcileSummary struct {
	Drifted  int               `json:"drifted"`
	Repaired int               `json:"repaired"`
	Posts    []ReconcileResult `json:"posts"`
}

func NewReconciler(posts repository.PostRepository, likes repository.LikeRepository) *Reconciler {
	return &Reconciler{posts: posts, likes: likes}
}

// ReconcilePost compares one post's counter with its ledger and repairs it
// when they differ.
func (r *Reconciler) ReconcilePost(ctx context.Context, postID string) (_ *ReconcileResult, err error) {
	ctx, span := observability.StartSpan(ctx, "Reconciler.ReconcilePost")
	defer func() { observability.EndSpan(span, err) }()
	observability.ReconcileRuns.WithLabelValues("post").Inc()

	post, err := r.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	actual, err := r.likes.CountForPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	res := &ReconcileResult{PostID: postID, Cached: post.Likes, Actual: actual}
	if post.Likes == actual {
		return res, nil
	}

	res.Drifted = true
	reportDrift(ctx, postID, post.Likes, actual)
	recounted, err := r.posts.RecountLikes(ctx, postID)
	if err != nil {
		return nil, err
	}
	res.Actual = recounted
	return res, nil
}

// ReconcileAll repairs every drifted post.
func (r *Reconciler) ReconcileAll(ctx context.Context) (*ReconcileSummary, error) {
	return r.reconcileAll(ctx, "all")
}

func (r *Reconciler) reconcileAll(ctx context.Context, trigger string) (_ *ReconcileSummary, err error) {
	ctx, span := observability.StartSpan(ctx, "Reconciler.ReconcileAll")
	defer func() { observability.EndSpan(span, err) }()
	observability.ReconcileRuns.WithLabelValues(trigger).Inc()

	summary := &ReconcileSummary{Posts: []ReconcileResult{}}
	for {
		drift, err := r.posts.FindLikeDrift(ctx, driftBatchSize)
		if err != nil {
			return summary, err
		}

		repaired := 0
		for _, d := range drift {
			summary.Drifted++
			reportDrift(ctx, d.PostID, d.Cached, d.Actual)

			actual, err := r.posts.RecountLikes(ctx, d.PostID)
			if err != nil {
				// deleted since the scan, or the store is failing; the next pass retries
				middleware.Logger.WarnContext(ctx, "like recount failed",
					slog.String("post_id", d.PostID), slog.String("error", err.Error()))
				continue
			}
			repaired++
			summary.Posts = append(summary.Posts, ReconcileResult{PostID: d.PostID, Cached: d.Cached, Actual: actual, Drifted: true})
		}
		summary.Repaired += repaired

		// a short batch means the scan is exhausted; a batch with no repairs would repeat forever
		if len(drift) < driftBatchSize || repaired == 0 {
			return summary, nil
		}
	}
}

// Run reconciles on every tick of interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary, err := r.reconcileAll(ctx, "sweep")
			if err != nil {
				middleware.Logger.ErrorContext(ctx, "drift sweep failed", slog.String("error", err.Error()))
				continue
			}
			if summary.Drifted > 0 {
				middleware.Logger.InfoContext(ctx, "drift sweep repaired counters",
					slog.Int("drifted", summary.Drifted), slog.Int("repaired", summary.Repaired))
			}
		}
	}
}

// repairAfter handles a counter adjustment that failed after its ledger
// write succeeded. The toggle itself has already happened, so the only
// recovery is recomputing the counter.
func (r *Reconciler) repairAfter(ctx context.Context, postID string, cause error) {
	middleware.Logger.WarnContext(ctx, "like counter adjustment failed, reconciling post",
		slog.String("post_id", postID), slog.String("error", cause.Error()))

	if _, err := r.ReconcilePost(ctx, postID); err != nil {
		middleware.Logger.ErrorContext(ctx, "post reconciliation failed, leaving it to the drift sweeper",
			slog.String("post_id", postID), slog.String("error", err.Error()))
	}
}

// reportDrift logs counter drift. It is never returned to a caller.
func reportDrift(ctx context.Context, postID string, cached, actual int64) {
	observability.LikeCounterDrift.Inc()
	err := models.NewConsistencyError(postID, cached, actual)
	middleware.Logger.WarnContext(ctx, err.Error(),
		slog.String("code", err.Code),
		slog.String("post_id", postID),
		slog.Int64("cached", cached),
		slog.Int64("actual", actual),
	)
}
