package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"blogspace/internal/cache"
	"blogspace/internal/models"
	"blogspace/internal/notifications"
	"blogspace/internal/observability"
	"blogspace/internal/policy"
	"blogspace/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultCommentMaxLength matches the comment form's character counter.
const DefaultCommentMaxLength = 500

type CommentService struct {
	posts     repository.PostRepository
	comments  repository.CommentRepository
	users     repository.UserRepository
	events    Publisher
	maxLength int
}

type CreateCommentInput struct {
	PostID  string
	Content string
}

func NewCommentService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	events Publisher,
	maxLength int,
) *CommentService {
	if maxLength <= 0 {
		maxLength = DefaultCommentMaxLength
	}
	return &CommentService{
		posts:     posts,
		comments:  comments,
		users:     users,
		events:    events,
		maxLength: maxLength,
	}
}

// validateContent trims content and checks it against the length limit in
// characters, not bytes.
func (s *CommentService) validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	switch {
	case content == "":
		return "", models.NewFieldValidationError(map[string]string{"content": "is required"})
	case utf8.RuneCountInString(content) > s.maxLength:
		return "", models.NewFieldValidationError(map[string]string{
			"content": fmt.Sprintf("must be at most %d characters", s.maxLength),
		})
	}
	return content, nil
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput, viewer *models.Viewer) (_ *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService.CreateComment", attribute.String("post.id", in.PostID))
	defer func() { observability.EndSpan(span, err) }()

	if viewer == nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	post, err := visiblePost(ctx, s.posts, in.PostID, viewer)
	if err != nil {
		return nil, err
	}
	content, err := s.validateContent(in.Content)
	if err != nil {
		return nil, err
	}
	author, err := s.users.GetByID(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:       post.ID,
		AuthorID:     author.ID,
		AuthorName:   author.DisplayName,
		AuthorAvatar: author.AvatarURL,
		Content:      content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	cache.InvalidatePost(ctx, post.Slug)
	publish(ctx, s.events, notifications.Event{
		Type:    notifications.EventCommentCreated,
		PostID:  post.ID,
		ActorID: author.ID,
		Data:    map[string]any{"comment_id": comment.ID},
	})
	return comment, nil
}

// ListComments returns a post's comments newest first, provided the viewer
// can see the post.
func (s *CommentService) ListComments(ctx context.Context, postID string, viewer *models.Viewer, limit, offset int) ([]*models.Comment, error) {
	if _, err := visiblePost(ctx, s.posts, postID, viewer); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListForPost(ctx, postID, limit, offset)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return comments, nil
}

// UpdateComment rewrites a comment's body. Only its author may do this.
func (s *CommentService) UpdateComment(ctx context.Context, id, content string, viewer *models.Viewer) (*models.Comment, error) {
	if viewer == nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	post, err := visiblePost(ctx, s.posts, comment.PostID, viewer)
	if models.HasCode(err, models.CodeNotFound) {
		return nil, models.NewNotFoundError("Comment", id)
	}
	if err != nil {
		return nil, err
	}
	if !policy.CanEditComment(comment, viewer) {
		return nil, models.NewForbiddenError()
	}
	content, err = s.validateContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.comments.UpdateContent(ctx, id, content); err != nil {
		return nil, err
	}
	cache.InvalidatePost(ctx, post.Slug)
	return s.comments.GetByID(ctx, id)
}

// DeleteComment removes a comment. Its author and admins may do this;
// deleting a comment that no longer exists succeeds.
func (s *CommentService) DeleteComment(ctx context.Context, id string, viewer *models.Viewer) error {
	if viewer == nil {
		return models.NewUnauthorizedError("Authentication required")
	}
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil
		}
		return err
	}
	if !policy.CanDeleteComment(comment, viewer) {
		return models.NewForbiddenError()
	}
	if _, err := s.comments.Delete(ctx, id); err != nil {
		return err
	}

	if post, err := s.posts.GetByID(ctx, comment.PostID); err == nil {
		cache.InvalidatePost(ctx, post.Slug)
	}
	publish(ctx, s.events, notifications.Event{
		Type:    notifications.EventCommentDeleted,
		PostID:  comment.PostID,
		ActorID: viewer.ID,
		Data:    map[string]any{"comment_id": id},
	})
	return nil
}
