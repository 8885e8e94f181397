package repository

import (
	"context"

	"blogspace/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CategoryRepository defines the interface for category data operations
type CategoryRepository interface {
	// Summaries lists every category with its number of published posts.
	Summaries(ctx context.Context) ([]models.CategorySummary, error)
	// Upsert inserts categories, refreshing name and description by slug.
	Upsert(ctx context.Context, categories []models.Category) error
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Summaries(ctx context.Context) ([]models.CategorySummary, error) {
	var out []models.CategorySummary
	err := r.db.WithContext(ctx).Raw(`
SELECT categories.id, categories.name, categories.slug, categories.description, categories.created_at,
       COUNT(posts.id) AS post_count
FROM categories
LEFT JOIN posts ON posts.category = categories.name AND posts.status = ?
GROUP BY categories.id, categories.name, categories.slug, categories.description, categories.created_at
ORDER BY categories.name`, models.PostStatusPublished).Scan(&out).Error
	return out, err
}

func (r *categoryRepository) Upsert(ctx context.Context, categories []models.Category) error {
	if len(categories) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description"}),
		}).
		Create(&categories).Error
}
