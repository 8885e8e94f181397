package service

import (
	"context"
	"strings"
	"testing"

	"blogspace/internal/models"
	"blogspace/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.createPost(t, env.alice, "Discussed", models.PostStatusPublished)

	comment, err := env.commentSvc.CreateComment(ctx, CreateCommentInput{PostID: post.ID, Content: "  Great read  "}, env.bob)
	require.NoError(t, err)
	assert.Equal(t, "Great read", comment.Content)
	assert.Equal(t, "bob", comment.AuthorID)
	assert.Equal(t, "Bob", comment.AuthorName)
	assert.Contains(t, env.events.types(), notifications.EventCommentCreated)

	got, err := env.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.CommentsCount)
}

func TestCreateComment_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.createPost(t, env.alice, "Strict", models.PostStatusPublished)

	tests := []struct {
		name    string
		content string
		ok      bool
	}{
		{"empty", "", false},
		{"blank", "   \n\t", false},
		{"at limit", strings.Repeat("a", DefaultCommentMaxLength), true},
		{"over limit", strings.Repeat("a", DefaultCommentMaxLength+1), false},
		{"multibyte at limit", strings.Repeat("é", DefaultCommentMaxLength), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.commentSvc.CreateComment(ctx, CreateCommentInput{PostID: post.ID, Content: tt.content}, env.bob)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, models.CodeValidation, appErr.Code)
			assert.Contains(t, appErr.Fields, "content")
		})
	}

	short := NewCommentService(env.posts, env.comments, env.usersRepo, nil, 5)
	_, err := short.CreateComment(ctx, CreateCommentInput{PostID: post.ID, Content: "123456"}, env.bob)
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestCreateComment_Visibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	draft := env.createPost(t, env.alice, "Draft", models.PostStatusDraft)

	_, err := env.commentSvc.CreateComment(ctx, CreateCommentInput{PostID: draft.ID, Content: "hi"}, env.bob)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = env.commentSvc.CreateComment(ctx, CreateCommentInput{PostID: draft.ID, Content: "note to self"}, env.alice)
	assert.NoError(t, err, "authors may comment on their own drafts")

	_, err = env.commentSvc.CreateComment(ctx, CreateCommentInput{PostID: draft.ID, Content: "hi"}, nil)
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))

	_, err = env.commentSvc.ListComments(ctx, draft.ID, env.bob, 0, 0)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	list, err := env.commentSvc.ListComments(ctx, draft.ID, env.alice, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdateComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.createPost(t, env.alice, "Editable", models.PostStatusPublished)
	comment, err := env.commentSvc.CreateComment(ctx, CreateCommentInput{PostID: post.ID, Content: "typo"}, env.bob)
	require.NoError(t, err)

	_, err = env.commentSvc.UpdateComment(ctx, comment.ID, "hijack", env.alice)
	assert.True(t, models.HasCode(err, models.CodeForbidden))
	_, err = env.commentSvc.UpdateComment(ctx, comment.ID, "moderated", env.admin)
	assert.True(t, models.HasCode(err, models.CodeForbidden), "admins delete, they do not edit")
	_, err = env.commentSvc.UpdateComment(ctx, comment.ID, "", env.bob)
	assert.True(t, models.HasCode(err, models.CodeValidation))

	updated, err := env.commentSvc.UpdateComment(ctx, comment.ID, "fixed", env.bob)
	require.NoError(t, err)
	assert.Equal(t, "fixed", updated.Content)

	_, err = env.commentSvc.UpdateComment(ctx, "missing", "x", env.bob)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestDeleteComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.createPost(t, env.alice, "Moderated", models.PostStatusPublished)

	mine, err := env.commentSvc.CreateComment(ctx, CreateCommentInput{PostID: post.ID, Content: "mine"}, env.bob)
	require.NoError(t, err)
	spam, err := env.commentSvc.CreateComment(ctx, CreateCommentInput{PostID: post.ID, Content: "spam"}, env.bob)
	require.NoError(t, err)

	assert.True(t, models.HasCode(env.commentSvc.DeleteComment(ctx, mine.ID, env.alice), models.CodeForbidden),
		"post authors do not moderate comments")
	assert.True(t, models.HasCode(env.commentSvc.DeleteComment(ctx, mine.ID, nil), models.CodeUnauthorized))

	require.NoError(t, env.commentSvc.DeleteComment(ctx, mine.ID, env.bob))
	require.NoError(t, env.commentSvc.DeleteComment(ctx, spam.ID, env.admin))
	require.NoError(t, env.commentSvc.DeleteComment(ctx, spam.ID, env.admin), "deleting twice is a no-op")

	list, err := env.commentSvc.ListComments(ctx, post.ID, nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Contains(t, env.events.types(), notifications.EventCommentDeleted)
}
