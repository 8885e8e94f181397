package seed

import (
	"context"
	"fmt"
	"log/slog"

	"blogspace/internal/middleware"
	"blogspace/internal/models"
	"blogspace/internal/repository"

	"gorm.io/gorm"
)

// Options configuration for the demo seeder
type Options struct {
	NumUsers       int
	NumPosts       int
	MaxLikes       int
	MaxComments    int
	MaxDays        int
	RandomSeed     int64
	ShouldClean    bool
	CategoriesFile string
}

// Result counts what a seeding run wrote.
type Result struct {
	Categories int
	Users      int
	Posts      int
	Likes      int
	Comments   int
}

// Seeder writes default and demo data through the repositories so counters
// and the like ledger stay consistent.
type Seeder struct {
	db         *gorm.DB
	users      repository.UserRepository
	posts      repository.PostRepository
	likes      repository.LikeRepository
	comments   repository.CommentRepository
	categories repository.CategoryRepository
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{
		db:         db,
		users:      repository.NewUserRepository(db),
		posts:      repository.NewPostRepository(db),
		likes:      repository.NewLikeRepository(db),
		comments:   repository.NewCommentRepository(db),
		categories: repository.NewCategoryRepository(db),
	}
}

// Categories upserts the category list from path, or the built-in list.
func (s *Seeder) Categories(ctx context.Context, path string) ([]models.Category, error) {
	categories, err := LoadCategories(path)
	if err != nil {
		return nil, err
	}
	if err := s.categories.Upsert(ctx, categories); err != nil {
		return nil, fmt.Errorf("upsert categories: %w", err)
	}
	return categories, nil
}

// ClearContent removes every post, comment and like. Profiles and
// categories are kept.
func (s *Seeder) ClearContent(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{&models.Like{}, &models.Comment{}, &models.Post{}} {
			if err := all.Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// Demo seeds categories and then fake users, posts, likes and comments.
func (s *Seeder) Demo(ctx context.Context, opts Options) (*Result, error) {
	if opts.ShouldClean {
		if err := s.ClearContent(ctx); err != nil {
			return nil, err
		}
	}

	categories, err := s.Categories(ctx, opts.CategoriesFile)
	if err != nil {
		return nil, err
	}
	result := &Result{Categories: len(categories)}

	f := NewFactory(opts.RandomSeed, categories, opts.MaxDays)

	users := make([]*models.User, 0, opts.NumUsers)
	for range opts.NumUsers {
		u := f.User()
		if _, err := s.users.Provision(ctx, u); err != nil {
			return result, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	result.Users = len(users)
	if len(users) == 0 {
		return result, nil
	}

	for range opts.NumPosts {
		author := users[f.Intn(0, len(users)-1)]
		post := f.Post(author)
		if err := s.posts.Create(ctx, post); err != nil {
			return result, fmt.Errorf("create post: %w", err)
		}
		result.Posts++

		if post.Status != models.PostStatusPublished {
			continue
		}

		likes, err := s.like(ctx, post, f.Pick(users, f.Intn(0, opts.MaxLikes)))
		result.Likes += likes
		if err != nil {
			return result, err
		}

		for _, commenter := range f.Pick(users, f.Intn(0, opts.MaxComments)) {
			if err := s.comments.Create(ctx, f.Comment(post, commenter)); err != nil {
				return result, fmt.Errorf("create comment: %w", err)
			}
			result.Comments++
		}
	}

	middleware.Logger.InfoContext(ctx, "demo data seeded",
		slog.Int("categories", result.Categories),
		slog.Int("users", result.Users),
		slog.Int("posts", result.Posts),
		slog.Int("likes", result.Likes),
		slog.Int("comments", result.Comments))
	return result, nil
}

// like writes ledger entries and derives the counter from them.
func (s *Seeder) like(ctx context.Context, post *models.Post, users []*models.User) (int, error) {
	n := 0
	for _, u := range users {
		inserted, err := s.likes.Insert(ctx, post.ID, u.ID)
		if err != nil {
			return n, fmt.Errorf("create like: %w", err)
		}
		if inserted {
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	if _, err := s.posts.RecountLikes(ctx, post.ID); err != nil {
		return n, fmt.Errorf("recount likes: %w", err)
	}
	return n, nil
}
