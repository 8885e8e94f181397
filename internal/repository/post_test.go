package repository

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"blogspace/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_IncrementViews_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "views"=views + $1 WHERE id = $2`)).
		WithArgs(1, "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.IncrementViews(context.Background(), "p1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_AdjustLikeCount_SQL(t *testing.T) {
	tests := []struct {
		name    string
		delta   int
		rows    int64
		wantErr string
	}{
		{name: "increment", delta: 1, rows: 1},
		{name: "decrement", delta: -1, rows: 1},
		{name: "missing post", delta: 1, rows: 0, wantErr: models.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewPostRepository(db)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "likes"=CASE WHEN likes + $1 < 0 THEN 0 ELSE likes + $2 END WHERE id = $3`)).
				WithArgs(tt.delta, tt.delta, "p1").
				WillReturnResult(sqlmock.NewResult(0, tt.rows))
			mock.ExpectCommit()

			err := repo.AdjustLikeCount(context.Background(), "p1", tt.delta)
			if tt.wantErr != "" {
				assert.True(t, models.HasCode(err, tt.wantErr))
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := createPost(t, db, func(p *models.Post) {
		p.Tags = []string{"go", "sql"}
		p.Status = ""
	})
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, models.PostStatusDraft, post.Status)

	got, err := repo.GetBySlug(ctx, post.Slug)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)
	assert.Equal(t, []string{"go", "sql"}, got.Tags)
	assert.Zero(t, got.Views)
	assert.Zero(t, got.Likes)

	_, err = repo.GetBySlug(ctx, "missing")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_DuplicateSlugIsConflict(t *testing.T) {
	db := setupTestDB(t)
	first := createPost(t, db, nil)

	err := NewPostRepository(db).Create(context.Background(), &models.Post{
		Slug: first.Slug, Title: "t", Content: "c", Excerpt: "e", Category: "x", AuthorID: "a",
	})
	assert.True(t, models.HasCode(err, models.CodeConflict), "got %v", err)
}

func TestPostRepository_CommentsCountIsComputed(t *testing.T) {
	db := setupTestDB(t)
	post := createPost(t, db, nil)
	comments := NewCommentRepository(db)
	for i := 0; i < 3; i++ {
		require.NoError(t, comments.Create(context.Background(), &models.Comment{PostID: post.ID, AuthorID: "u", Content: "hi"}))
	}

	got, err := NewPostRepository(db).GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.CommentsCount)
}

func TestPostRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	published := createPost(t, db, func(p *models.Post) { p.Title = "Learning Go"; p.Content = "100% coverage" })
	draft := createPost(t, db, func(p *models.Post) { p.Status = models.PostStatusDraft; p.AuthorID = "writer" })
	otherDraft := createPost(t, db, func(p *models.Post) { p.Status = models.PostStatusDraft })
	design := createPost(t, db, func(p *models.Post) { p.Category = "Design"; p.Content = "under_score" })

	ids := func(posts []*models.Post) []string {
		out := make([]string, 0, len(posts))
		for _, p := range posts {
			out = append(out, p.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter PostFilter
		want   []string
	}{
		{"anonymous sees published newest first", PostFilter{}, []string{design.ID, published.ID}},
		{"viewer also sees own drafts", PostFilter{Scope: Scope{ViewerID: "writer"}}, []string{design.ID, draft.ID, published.ID}},
		{"admin sees everything", PostFilter{Scope: Scope{All: true}}, []string{design.ID, otherDraft.ID, draft.ID, published.ID}},
		{"category", PostFilter{Category: "Design"}, []string{design.ID}},
		{"status draft for admin", PostFilter{Status: models.PostStatusDraft, Scope: Scope{All: true}}, []string{otherDraft.ID, draft.ID}},
		{"status draft for anonymous", PostFilter{Status: models.PostStatusDraft}, []string{}},
		{"search is case-insensitive", PostFilter{Search: "LEARNING"}, []string{published.ID}},
		{"search treats percent literally", PostFilter{Search: "100%"}, []string{published.ID}},
		{"search treats underscore literally", PostFilter{Search: "under_"}, []string{design.ID}},
		{"pagination", PostFilter{Limit: 1, Offset: 1}, []string{published.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(posts))
			if tt.filter.Limit == 0 {
				assert.EqualValues(t, len(tt.want), total)
			}
		})
	}

	_, total, err := repo.List(ctx, PostFilter{Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestPostRepository_UpdateWritesOnlyPatchedColumns(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	post := createPost(t, db, nil)

	require.NoError(t, repo.IncrementViews(ctx, post.ID))
	require.NoError(t, repo.AdjustLikeCount(ctx, post.ID, 1))

	title := "New title"
	tags := []string{"a", "b"}
	status := models.PostStatusDraft
	require.NoError(t, repo.Update(ctx, post.ID, PostPatch{Title: &title, Tags: &tags, Status: &status}))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
	assert.Equal(t, post.Slug, got.Slug)
	assert.Equal(t, post.Content, got.Content)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.Equal(t, models.PostStatusDraft, got.Status)
	assert.EqualValues(t, 1, got.Views)
	assert.EqualValues(t, 1, got.Likes)
	assert.True(t, got.UpdatedAt.After(post.UpdatedAt) || got.UpdatedAt.Equal(post.UpdatedAt))

	err = repo.Update(ctx, "missing", PostPatch{Title: &title})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_ConcurrentViewsAreNotLost(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	post := createPost(t, db, nil)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.IncrementViews(context.Background(), post.ID))
		}()
	}
	wg.Wait()

	got, err := repo.GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, n, got.Views)
}

func TestPostRepository_AdjustLikeCountClampsAtZero(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	post := createPost(t, db, nil)

	require.NoError(t, repo.AdjustLikeCount(ctx, post.ID, -1))
	likes, err := repo.LikeCount(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, likes)

	require.NoError(t, repo.AdjustLikeCount(ctx, post.ID, 2))
	require.NoError(t, repo.AdjustLikeCount(ctx, post.ID, -5))
	likes, err = repo.LikeCount(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, likes)
}

func TestPostRepository_DriftAndRecount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	likes := NewLikeRepository(db)
	ctx := context.Background()

	healthy := createPost(t, db, nil)
	drifted := createPost(t, db, nil)

	for _, u := range []string{"u1", "u2"} {
		_, err := likes.Insert(ctx, drifted.ID, u)
		require.NoError(t, err)
	}
	require.NoError(t, repo.AdjustLikeCount(ctx, drifted.ID, 5))
	_, err := likes.Insert(ctx, healthy.ID, "u1")
	require.NoError(t, err)
	require.NoError(t, repo.AdjustLikeCount(ctx, healthy.ID, 1))

	drift, err := repo.FindLikeDrift(ctx, 0)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, LikeDrift{PostID: drifted.ID, Cached: 5, Actual: 2}, drift[0])

	actual, err := repo.RecountLikes(ctx, drifted.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, actual)

	drift, err = repo.FindLikeDrift(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, drift)

	_, err = repo.RecountLikes(ctx, "missing")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_DeleteIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	post := createPost(t, db, nil)

	removed, err := repo.Delete(context.Background(), post.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(context.Background(), post.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestPostRepository_Stats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	p := createPost(t, db, nil)
	createPost(t, db, func(p *models.Post) { p.Status = models.PostStatusDraft })
	require.NoError(t, repo.IncrementViews(ctx, p.ID))
	require.NoError(t, repo.IncrementViews(ctx, p.ID))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, PostStats{Total: 2, Published: 1, Drafts: 1, TotalViews: 2}, *stats)
}
