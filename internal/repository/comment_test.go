package repository

import (
	"context"
	"testing"
	"time"

	"blogspace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	post := createPost(t, db, nil)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		c := &models.Comment{PostID: post.ID, AuthorID: "u1", Content: "comment", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Create(ctx, c))
		ids = append(ids, c.ID)
	}

	list, err := repo.ListForPost(ctx, post.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID, "newest first")
	assert.Equal(t, ids[0], list[2].ID)

	page, err := repo.ListForPost(ctx, post.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)

	require.NoError(t, repo.UpdateContent(ctx, ids[0], "edited"))
	got, err := repo.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)

	err = repo.UpdateContent(ctx, "missing", "x")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	removed, err := repo.Delete(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.Delete(ctx, ids[0])
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = repo.GetByID(ctx, ids[0])
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	n, err := repo.DeleteForPost(ctx, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}
