package repository

import (
	"context"

	"blogspace/internal/models"
	"blogspace/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	// ListForPost returns comments newest first. Callers check the post's
	// visibility before listing.
	ListForPost(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) (bool, error)
	DeleteForPost(ctx context.Context, postID string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("create", "comments")()
	return translateError(r.db.WithContext(ctx).Create(comment).Error, "Comment", comment.ID)
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, translateError(err, "Comment", id)
	}
	return &comment, nil
}

func (r *commentRepository) ListForPost(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error) {
	defer observability.TrackQuery("list", "comments")()
	q := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	var comments []*models.Comment
	if err := q.Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) UpdateContent(ctx context.Context, id, content string) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{})
	return res.RowsAffected > 0, res.Error
}

func (r *commentRepository) DeleteForPost(ctx context.Context, postID string) (int64, error) {
	defer observability.TrackQuery("delete_for_post", "comments")()
	res := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Comment{})
	return res.RowsAffected, res.Error
}

func (r *commentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Count(&n).Error
	return n, err
}
