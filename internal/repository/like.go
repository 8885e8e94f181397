package repository

import (
	"context"

	"blogspace/internal/models"
	"blogspace/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository stores the like ledger. The composite primary key is what
// keeps a (post, user) pair to one entry; these methods never check first.
type LikeRepository interface {
	// Insert adds the entry and reports whether a row was written. A false
	// result means the pair was already liked.
	Insert(ctx context.Context, postID, userID string) (bool, error)
	// Delete removes the entry and reports whether a row was removed.
	Delete(ctx context.Context, postID, userID string) (bool, error)
	Exists(ctx context.Context, postID, userID string) (bool, error)
	CountForPost(ctx context.Context, postID string) (int64, error)
	DeleteForPost(ctx context.Context, postID string) (int64, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new like ledger repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Insert(ctx context.Context, postID, userID string) (bool, error) {
	defer observability.TrackQuery("insert", "post_likes")()
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{PostID: postID, UserID: userID})
	if res.Error != nil {
		return false, translateError(res.Error, "Post", postID)
	}
	return res.RowsAffected > 0, nil
}

func (r *likeRepository) Delete(ctx context.Context, postID, userID string) (bool, error) {
	defer observability.TrackQuery("delete", "post_likes")()
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Like{})
	return res.RowsAffected > 0, res.Error
}

func (r *likeRepository) Exists(ctx context.Context, postID, userID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *likeRepository) CountForPost(ctx context.Context, postID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

func (r *likeRepository) DeleteForPost(ctx context.Context, postID string) (int64, error) {
	defer observability.TrackQuery("delete_for_post", "post_likes")()
	res := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Like{})
	return res.RowsAffected, res.Error
}
