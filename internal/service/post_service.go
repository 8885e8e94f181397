package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"blogspace/internal/cache"
	"blogspace/internal/featureflags"
	"blogspace/internal/middleware"
	"blogspace/internal/models"
	"blogspace/internal/notifications"
	"blogspace/internal/observability"
	"blogspace/internal/policy"
	"blogspace/internal/repository"
	"blogspace/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// numbered suffixes -2 through -5, then one random suffix
	maxSlugAttempts    = 6
	defaultViewTimeout = 5 * time.Second
)

type PostService struct {
	posts    repository.PostRepository
	likes    repository.LikeRepository
	comments repository.CommentRepository
	users    repository.UserRepository
	events   Publisher
	flags    *featureflags.Manager

	viewTimeout time.Duration
	views       sync.WaitGroup
}

type CreatePostInput struct {
	AuthorID      string            `json:"-"`
	Title         string            `json:"title" validate:"required,max=200"`
	Content       string            `json:"content" validate:"required"`
	Excerpt       string            `json:"excerpt" validate:"required,max=500"`
	Category      string            `json:"category" validate:"required,max=100"`
	Tags          []string          `json:"tags" validate:"max=20,dive,max=50"`
	Status        models.PostStatus `json:"status" validate:"omitempty,oneof=draft published"`
	FeaturedImage string            `json:"featured_image" validate:"omitempty,url,max=2048"`
}

func (in *CreatePostInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.Category = strings.TrimSpace(in.Category)
	in.FeaturedImage = strings.TrimSpace(in.FeaturedImage)
	in.Tags = normalizeTags(in.Tags)
	if in.Status == "" {
		in.Status = models.PostStatusDraft
	}
}

// UpdatePostInput is a partial update. Nil fields are left unchanged.
type UpdatePostInput struct {
	Title         *string            `json:"title" validate:"omitnil,required,max=200"`
	Content       *string            `json:"content" validate:"omitnil,required"`
	Excerpt       *string            `json:"excerpt" validate:"omitnil,required,max=500"`
	Category      *string            `json:"category" validate:"omitnil,required,max=100"`
	Tags          *[]string          `json:"tags" validate:"omitnil,max=20,dive,max=50"`
	Status        *models.PostStatus `json:"status" validate:"omitnil,oneof=draft published"`
	FeaturedImage *string            `json:"featured_image" validate:"omitnil,optional_url,max=2048"`
}

func (in *UpdatePostInput) normalize() {
	for _, f := range []*string{in.Title, in.Content, in.Excerpt, in.Category, in.FeaturedImage} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	if in.Tags != nil {
		tags := normalizeTags(*in.Tags)
		in.Tags = &tags
	}
}

func (in *UpdatePostInput) patch() repository.PostPatch {
	return repository.PostPatch{
		Title:         in.Title,
		Content:       in.Content,
		Excerpt:       in.Excerpt,
		Category:      in.Category,
		Tags:          in.Tags,
		FeaturedImage: in.FeaturedImage,
		Status:        in.Status,
	}
}

type ListPostsInput struct {
	Category string
	Status   models.PostStatus
	Search   string
	AuthorID string
	Limit    int
	Offset   int
}

// PostPage is one page of a post listing.
type PostPage struct {
	Posts  []*models.Post `json:"posts"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func NewPostService(
	posts repository.PostRepository,
	likes repository.LikeRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	events Publisher,
	flags *featureflags.Manager,
	viewTimeout time.Duration,
) *PostService {
	if viewTimeout <= 0 {
		viewTimeout = defaultViewTimeout
	}
	return &PostService{
		posts:       posts,
		likes:       likes,
		comments:    comments,
		users:       users,
		events:      events,
		flags:       flags,
		viewTimeout: viewTimeout,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (_ *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.CreatePost")
	defer func() { observability.EndSpan(span, err) }()

	if in.AuthorID == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	author, err := s.users.GetByID(ctx, in.AuthorID)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:         in.Title,
		Content:       in.Content,
		Excerpt:       in.Excerpt,
		Category:      in.Category,
		Tags:          in.Tags,
		FeaturedImage: in.FeaturedImage,
		Status:        in.Status,
		AuthorID:      author.ID,
		AuthorName:    author.DisplayName,
		AuthorAvatar:  author.AvatarURL,
	}

	base := validation.Slugify(in.Title)
	if base == "" {
		base = "post"
	}
	for attempt := 0; ; attempt++ {
		post.Slug = slugCandidate(base, attempt)
		err = s.posts.Create(ctx, post)
		if err == nil {
			break
		}
		if !models.HasCode(err, models.CodeConflict) || attempt == maxSlugAttempts-1 {
			return nil, err
		}
		middleware.Logger.DebugContext(ctx, "slug taken, retrying", slog.String("slug", post.Slug))
	}
	span.SetAttributes(attribute.String("post.id", post.ID), attribute.String("post.slug", post.Slug))

	cache.InvalidatePost(ctx, post.Slug)
	publish(ctx, s.events, notifications.Event{Type: notifications.EventPostCreated, PostID: post.ID, ActorID: author.ID})
	if post.IsPublished() {
		publish(ctx, s.events, notifications.Event{Type: notifications.EventPostPublished, PostID: post.ID, ActorID: author.ID})
	}

	return s.posts.GetByID(ctx, post.ID)
}

// slugCandidate returns the slug to try on the given zero-based attempt.
func slugCandidate(base string, attempt int) string {
	switch {
	case attempt == 0:
		return base
	case attempt < maxSlugAttempts-1:
		return fmt.Sprintf("%s-%d", base, attempt+1)
	default:
		return base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
}

// GetPost returns the post behind slug if viewer may see it. Fetching a
// published post records one view in the background.
func (s *PostService) GetPost(ctx context.Context, slug string, viewer *models.Viewer) (_ *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.GetPost", attribute.String("post.slug", slug))
	defer func() { observability.EndSpan(span, err) }()

	var post *models.Post
	if viewer == nil && s.flags.On(featureflags.PostCache) {
		post, err = cache.AsideVersioned(ctx, cache.PostSlugKey(slug), cache.PostVersionKey(slug), cache.PostTTL, func(ctx context.Context) (*models.Post, error) {
			p, err := s.posts.GetBySlug(ctx, slug)
			if err != nil {
				return nil, err
			}
			if !p.IsPublished() {
				// drafts are never cached
				return nil, models.NewNotFoundError("Post", slug)
			}
			return p, nil
		})
	} else {
		post, err = s.posts.GetBySlug(ctx, slug)
	}
	if err != nil {
		return nil, err
	}
	if !policy.CanView(post, viewer) {
		return nil, models.NewNotFoundError("Post", slug)
	}

	if post.IsPublished() {
		s.recordView(ctx, post.ID)
	}
	return post, nil
}

// recordView increments the view counter without holding up the read.
func (s *PostService) recordView(ctx context.Context, postID string) {
	s.views.Add(1)
	go func() {
		defer s.views.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.viewTimeout)
		defer cancel()

		if err := s.posts.IncrementViews(ctx, postID); err != nil {
			observability.PostViews.WithLabelValues("failed").Inc()
			middleware.Logger.WarnContext(ctx, "failed to record post view",
				slog.String("post_id", postID),
				slog.String("error", err.Error()),
			)
			return
		}
		observability.PostViews.WithLabelValues("recorded").Inc()
	}()
}

// Wait blocks until every in-flight view write has finished.
func (s *PostService) Wait() {
	s.views.Wait()
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput, viewer *models.Viewer) (_ *PostPage, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.ListPosts")
	defer func() { observability.EndSpan(span, err) }()

	if in.Status != "" && !in.Status.Valid() {
		return nil, models.NewFieldValidationError(map[string]string{"status": "must be one of: draft, published"})
	}
	limit, offset := repository.NormalizePage(in.Limit, in.Offset)
	all, ownerID := policy.ListScope(viewer)

	posts, total, err := s.posts.List(ctx, repository.PostFilter{
		Category: strings.TrimSpace(in.Category),
		Status:   in.Status,
		Search:   strings.TrimSpace(in.Search),
		AuthorID: in.AuthorID,
		Scope:    repository.Scope{All: all, ViewerID: ownerID},
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return &PostPage{Posts: posts, Total: total, Limit: limit, Offset: offset}, nil
}

// loadForChange fetches a post the viewer intends to modify. Posts the
// viewer cannot see are reported as missing.
func (s *PostService) loadForChange(ctx context.Context, id string, viewer *models.Viewer) (*models.Post, error) {
	if viewer == nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(post, viewer) {
		return nil, models.NewNotFoundError("Post", id)
	}
	if !policy.CanModifyPost(post, viewer) {
		return nil, models.NewForbiddenError()
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, id string, in UpdatePostInput, viewer *models.Viewer) (_ *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.UpdatePost", attribute.String("post.id", id))
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.loadForChange(ctx, id, viewer)
	if err != nil {
		return nil, err
	}

	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	patch := in.patch()
	if patch.IsEmpty() {
		return post, nil
	}
	if err := s.posts.Update(ctx, id, patch); err != nil {
		return nil, err
	}

	updated, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	cache.InvalidatePost(ctx, post.Slug)
	publish(ctx, s.events, notifications.Event{Type: notifications.EventPostUpdated, PostID: id, ActorID: viewer.ID})
	if !post.IsPublished() && updated.IsPublished() {
		publish(ctx, s.events, notifications.Event{Type: notifications.EventPostPublished, PostID: id, ActorID: viewer.ID})
	}
	return updated, nil
}

// DeletePost removes a post with its like entries and comments, children
// first. Every step is idempotent, so a delete that failed partway can be
// retried; deleting a post that no longer exists succeeds.
func (s *PostService) DeletePost(ctx context.Context, id string, viewer *models.Viewer) (err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.DeletePost", attribute.String("post.id", id))
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.loadForChange(ctx, id, viewer)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil
		}
		return err
	}

	likes, err := s.likes.DeleteForPost(ctx, id)
	if err != nil {
		return fmt.Errorf("delete likes of post %s: %w", id, err)
	}
	comments, err := s.comments.DeleteForPost(ctx, id)
	if err != nil {
		return fmt.Errorf("delete comments of post %s: %w", id, err)
	}
	if _, err := s.posts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}

	middleware.Logger.InfoContext(ctx, "post deleted",
		slog.String("post_id", id),
		slog.Int64("likes_removed", likes),
		slog.Int64("comments_removed", comments),
	)
	cache.InvalidatePost(ctx, post.Slug)
	publish(ctx, s.events, notifications.Event{Type: notifications.EventPostDeleted, PostID: id, ActorID: viewer.ID})
	return nil
}

// normalizeTags trims tags and drops blanks and repeats, keeping order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// visiblePost loads a post by id and hides it from viewers who may not see it.
func visiblePost(ctx context.Context, posts repository.PostRepository, id string, viewer *models.Viewer) (*models.Post, error) {
	post, err := posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(post, viewer) {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}
