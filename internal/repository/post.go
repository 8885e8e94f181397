package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"blogspace/internal/models"
	"blogspace/internal/observability"

	"gorm.io/gorm"
)

// postColumns selects a post with its comment count computed from the
// comments table, so the count can never drift.
const postColumns = "posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count"

// Scope restricts which posts a listing may return.
type Scope struct {
	// All lifts every visibility restriction (admins).
	All bool
	// ViewerID additionally admits drafts authored by this user.
	ViewerID string
}

// PostFilter narrows a post listing.
type PostFilter struct {
	Category string
	Status   models.PostStatus
	Search   string
	AuthorID string
	Scope    Scope
	Limit    int
	Offset   int
}

// LikeDrift is a post whose cached like counter disagrees with the ledger.
type LikeDrift struct {
	PostID string
	Cached int64
	Actual int64
}

// PostStats aggregates post counters for the admin dashboard.
type PostStats struct {
	Total      int64
	Published  int64
	Drafts     int64
	TotalViews int64
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	List(ctx context.Context, filter PostFilter) ([]*models.Post, int64, error)
	Update(ctx context.Context, id string, patch PostPatch) error
	Delete(ctx context.Context, id string) (bool, error)
	IncrementViews(ctx context.Context, id string) error
	AdjustLikeCount(ctx context.Context, id string, delta int) error
	LikeCount(ctx context.Context, id string) (int64, error)
	RecountLikes(ctx context.Context, id string) (int64, error)
	FindLikeDrift(ctx context.Context, limit int) ([]LikeDrift, error)
	Stats(ctx context.Context) (*PostStats, error)
}

// PostPatch carries the mutable post fields. Nil fields are left unchanged.
type PostPatch struct {
	Title         *string
	Content       *string
	Excerpt       *string
	Category      *string
	Tags          *[]string
	FeaturedImage *string
	Status        *models.PostStatus
}

// IsEmpty reports whether the patch would change nothing.
func (p PostPatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Excerpt == nil && p.Category == nil &&
		p.Tags == nil && p.FeaturedImage == nil && p.Status == nil
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	return translateError(r.db.WithContext(ctx).Create(post).Error, "Post", post.Slug)
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	defer observability.TrackQuery("get", "posts")()
	var post models.Post
	err := r.db.WithContext(ctx).Select(postColumns).Where("posts.id = ?", id).First(&post).Error
	if err != nil {
		return nil, translateError(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	defer observability.TrackQuery("get", "posts")()
	var post models.Post
	err := r.db.WithContext(ctx).Select(postColumns).Where("posts.slug = ?", slug).First(&post).Error
	if err != nil {
		return nil, translateError(err, "Post", slug)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]*models.Post, int64, error) {
	defer observability.TrackQuery("list", "posts")()
	limit, offset := NormalizePage(filter.Limit, filter.Offset)

	var total int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(filterPosts(filter)).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var posts []*models.Post
	err = r.db.WithContext(ctx).
		Scopes(filterPosts(filter)).
		Select(postColumns).
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// filterPosts applies visibility first, then the caller's filters.
func filterPosts(filter PostFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if !filter.Scope.All {
			if filter.Scope.ViewerID == "" {
				q = q.Where("posts.status = ?", models.PostStatusPublished)
			} else {
				q = q.Where("(posts.status = ? OR posts.author_id = ?)", models.PostStatusPublished, filter.Scope.ViewerID)
			}
		}
		if filter.Category != "" {
			q = q.Where("posts.category = ?", filter.Category)
		}
		if filter.Status != "" {
			q = q.Where("posts.status = ?", filter.Status)
		}
		if filter.AuthorID != "" {
			q = q.Where("posts.author_id = ?", filter.AuthorID)
		}
		if filter.Search != "" {
			pattern := containsPattern(filter.Search)
			q = q.Where(`(LOWER(posts.title) LIKE ? ESCAPE '\' OR LOWER(posts.content) LIKE ? ESCAPE '\')`, pattern, pattern)
		}
		return q
	}
}

// Update writes only the patched columns so concurrent counter updates are
// never overwritten. Concurrent patches resolve last-writer-wins per column.
func (r *postRepository) Update(ctx context.Context, id string, patch PostPatch) error {
	defer observability.TrackQuery("update", "posts")()

	fields := map[string]any{}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Content != nil {
		fields["content"] = *patch.Content
	}
	if patch.Excerpt != nil {
		fields["excerpt"] = *patch.Excerpt
	}
	if patch.Category != nil {
		fields["category"] = *patch.Category
	}
	if patch.Tags != nil {
		// map updates bypass the json serializer
		encoded, err := json.Marshal(*patch.Tags)
		if err != nil {
			return fmt.Errorf("encode tags: %w", err)
		}
		fields["tags"] = string(encoded)
	}
	if patch.FeaturedImage != nil {
		fields["featured_image"] = *patch.FeaturedImage
	}
	if patch.Status != nil {
		fields["status"] = *patch.Status
	}

	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translateError(res.Error, "Post", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// Delete removes the post row only; callers delete its children first.
// Deleting a missing post reports false without error.
func (r *postRepository) Delete(ctx context.Context, id string) (bool, error) {
	defer observability.TrackQuery("delete", "posts")()
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	return res.RowsAffected > 0, res.Error
}

func (r *postRepository) IncrementViews(ctx context.Context, id string) error {
	defer observability.TrackQuery("increment_views", "posts")()
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}

// AdjustLikeCount applies delta to the cached like counter, clamped at zero.
func (r *postRepository) AdjustLikeCount(ctx context.Context, id string, delta int) error {
	defer observability.TrackQuery("adjust_likes", "posts")()
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("CASE WHEN likes + ? < 0 THEN 0 ELSE likes + ? END", delta, delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) LikeCount(ctx context.Context, id string) (int64, error) {
	var likes int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Pluck("likes", &likes).Error
	return likes, err
}

// RecountLikes sets the cached counter to the ledger cardinality in a single
// statement and returns the new value.
func (r *postRepository) RecountLikes(ctx context.Context, id string) (int64, error) {
	defer observability.TrackQuery("recount_likes", "posts")()
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("(SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id)"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, models.NewNotFoundError("Post", id)
	}
	return r.LikeCount(ctx, id)
}

func (r *postRepository) FindLikeDrift(ctx context.Context, limit int) ([]LikeDrift, error) {
	defer observability.TrackQuery("find_drift", "posts")()
	if limit <= 0 {
		limit = 500
	}
	var drift []LikeDrift
	err := r.db.WithContext(ctx).Raw(`
SELECT posts.id AS post_id, posts.likes AS cached, COUNT(post_likes.user_id) AS actual
FROM posts
LEFT JOIN post_likes ON post_likes.post_id = posts.id
GROUP BY posts.id, posts.likes
HAVING posts.likes <> COUNT(post_likes.user_id)
ORDER BY posts.id
LIMIT ?`, limit).Scan(&drift).Error
	return drift, err
}

func (r *postRepository) Stats(ctx context.Context) (*PostStats, error) {
	var stats PostStats
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Select(`COUNT(*) AS total,
COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS published,
COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS drafts,
COALESCE(SUM(views), 0) AS total_views`, models.PostStatusPublished, models.PostStatusDraft).
		Scan(&stats).Error
	return &stats, err
}
