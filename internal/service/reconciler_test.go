package service

import (
	"context"
	"testing"
	"time"

	"blogspace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// corrupt forces a post's cached counter away from its ledger.
func corrupt(t *testing.T, env *testEnv, postID string, likes int64) {
	t.Helper()
	require.NoError(t, env.db.Model(&models.Post{}).Where("id = ?", postID).UpdateColumn("likes", likes).Error)
}

func TestReconcilePost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.createPost(t, env.alice, "Drifting", models.PostStatusPublished)
	_, err := env.likeSvc.Toggle(ctx, post.ID, env.bob)
	require.NoError(t, err)

	res, err := env.reconciler.ReconcilePost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, &ReconcileResult{PostID: post.ID, Cached: 1, Actual: 1}, res)

	corrupt(t, env, post.ID, 7)
	res, err = env.reconciler.ReconcilePost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, &ReconcileResult{PostID: post.ID, Cached: 7, Actual: 1, Drifted: true}, res)
	assertCounterMatchesLedger(t, env, post.ID)

	_, err = env.reconciler.ReconcilePost(ctx, "missing")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestReconcileAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.createPost(t, env.alice, "A", models.PostStatusPublished)
	b := env.createPost(t, env.alice, "B", models.PostStatusPublished)
	c := env.createPost(t, env.alice, "C", models.PostStatusPublished)
	_, err := env.likeSvc.Toggle(ctx, a.ID, env.bob)
	require.NoError(t, err)

	corrupt(t, env, a.ID, 0)
	corrupt(t, env, b.ID, 3)

	summary, err := env.reconciler.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Drifted)
	assert.Equal(t, 2, summary.Repaired)
	for _, id := range []string{a.ID, b.ID, c.ID} {
		assertCounterMatchesLedger(t, env, id)
	}

	summary, err = env.reconciler.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Drifted)
	assert.Empty(t, summary.Posts)
}

func TestReconcilerRun_SweepsUntilCancelled(t *testing.T) {
	env := newTestEnv(t)
	post := env.createPost(t, env.alice, "Swept", models.PostStatusPublished)
	corrupt(t, env, post.ID, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.reconciler.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		likes, err := env.posts.LikeCount(context.Background(), post.ID)
		return err == nil && likes == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestReconcilerRun_DisabledInterval(t *testing.T) {
	env := newTestEnv(t)
	// returns immediately
	env.reconciler.Run(context.Background(), 0)
}
