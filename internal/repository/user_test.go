package repository

import (
	"context"
	"regexp"
	"testing"

	"blogspace/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name          string
		userID        string
		mockBehavior  func()
		expectedEmail string
		expectedCode  string
	}{
		{
			name:   "Success",
			userID: "u1",
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "email", "display_name", "role"}).
					AddRow("u1", "reader@example.com", "Reader", "user")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs("u1", 1).
					WillReturnRows(rows)
			},
			expectedEmail: "reader@example.com",
		},
		{
			name:   "Not Found",
			userID: "u2",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs("u2", 1).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			expectedCode: models.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()

			user, err := repo.GetByID(ctx, tt.userID)

			if tt.expectedCode != "" {
				assert.True(t, models.HasCode(err, tt.expectedCode))
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedEmail, user.Email)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_ProvisionIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	created, err := repo.Provision(ctx, &models.User{ID: "u1", Email: "a@example.com", DisplayName: "A", Role: models.RoleUser})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Provision(ctx, &models.User{ID: "u1", Email: "a@example.com", DisplayName: "Changed", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "A", got.DisplayName)
	assert.Equal(t, models.RoleUser, got.Role)
}

func TestUserRepository_ProfileAndRole(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	for _, id := range []string{"u1", "u2"} {
		_, err := repo.Provision(ctx, &models.User{ID: id, Email: id + "@example.com", Role: models.RoleUser})
		require.NoError(t, err)
	}

	name := "New Name"
	require.NoError(t, repo.UpdateProfile(ctx, "u1", &name, nil))
	require.NoError(t, repo.UpdateProfile(ctx, "u1", nil, nil))
	require.NoError(t, repo.SetRole(ctx, "u2", models.RoleAdmin))

	u1, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "New Name", u1.DisplayName)
	u2, err := repo.GetByID(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, u2.IsAdmin())

	assert.True(t, models.HasCode(repo.SetRole(ctx, "ghost", models.RoleAdmin), models.CodeNotFound))
	assert.True(t, models.HasCode(repo.UpdateProfile(ctx, "ghost", &name, nil), models.CodeNotFound))

	users, total, err := repo.List(ctx, 1, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 1)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
