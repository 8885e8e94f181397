package service

import (
	"context"

	"blogspace/internal/repository"

	"golang.org/x/sync/errgroup"
)

// Stats is the admin dashboard summary.
type Stats struct {
	TotalPosts     int64 `json:"total_posts"`
	PublishedPosts int64 `json:"published_posts"`
	DraftPosts     int64 `json:"draft_posts"`
	TotalComments  int64 `json:"total_comments"`
	TotalUsers     int64 `json:"total_users"`
	TotalViews     int64 `json:"total_views"`
}

type AdminService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	users    repository.UserRepository
}

func NewAdminService(posts repository.PostRepository, comments repository.CommentRepository, users repository.UserRepository) *AdminService {
	return &AdminService{posts: posts, comments: comments, users: users}
}

// Stats gathers the dashboard counts concurrently.
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	var (
		out   Stats
		posts *repository.PostStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		posts, err = s.posts.Stats(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.TotalComments, err = s.comments.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.TotalUsers, err = s.users.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.TotalPosts = posts.Total
	out.PublishedPosts = posts.Published
	out.DraftPosts = posts.Drafts
	out.TotalViews = posts.TotalViews
	return &out, nil
}
