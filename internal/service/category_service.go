package service

import (
	"context"

	"blogspace/internal/cache"
	"blogspace/internal/models"
	"blogspace/internal/repository"
)

type CategoryService struct {
	categories repository.CategoryRepository
}

func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// List returns every category with its published post count.
func (s *CategoryService) List(ctx context.Context) ([]models.CategorySummary, error) {
	return cache.Aside(ctx, cache.CategoriesKey, cache.CategoriesTTL, func(ctx context.Context) ([]models.CategorySummary, error) {
		out, err := s.categories.Summaries(ctx)
		if out == nil && err == nil {
			out = []models.CategorySummary{}
		}
		return out, err
	})
}

// Seed inserts or refreshes categories by slug.
func (s *CategoryService) Seed(ctx context.Context, categories []models.Category) error {
	if err := s.categories.Upsert(ctx, categories); err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.CategoriesKey)
	return nil
}
