package repository

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeRepository_Insert_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLikeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "post_likes" .* ON CONFLICT DO NOTHING`).
		WithArgs("p1", "u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	inserted, err := repo.Insert(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeRepository_Delete_SQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLikeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "post_likes" WHERE post_id = $1 AND user_id = $2`)).
		WithArgs("p1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := repo.Delete(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeRepository_PairIsUnique(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()
	post := createPost(t, db, nil)

	inserted, err := repo.Insert(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.False(t, inserted, "second insert of the same pair is absorbed")

	n, err := repo.CountForPost(ctx, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	exists, err := repo.Exists(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.True(t, exists)

	removed, err := repo.Delete(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLikeRepository_ConcurrentInsertsWriteOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLikeRepository(db)
	post := createPost(t, db, nil)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := repo.Insert(context.Background(), post.ID, "u1")
			assert.NoError(t, err)
			if inserted {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
	n, err := repo.CountForPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestLikeRepository_DeleteForPost(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()
	post := createPost(t, db, nil)
	other := createPost(t, db, nil)

	for _, u := range []string{"u1", "u2", "u3"} {
		_, err := repo.Insert(ctx, post.ID, u)
		require.NoError(t, err)
	}
	_, err := repo.Insert(ctx, other.ID, "u1")
	require.NoError(t, err)

	removed, err := repo.DeleteForPost(ctx, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)

	n, err := repo.CountForPost(ctx, other.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
