package repository

import (
	"context"

	"blogspace/internal/models"
	"blogspace/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines the interface for profile data operations
type UserRepository interface {
	// Provision inserts the profile unless one with the same id exists.
	Provision(ctx context.Context, user *models.User) (bool, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, displayName, avatarURL *string) error
	SetRole(ctx context.Context, id string, role models.Role) error
	List(ctx context.Context, limit, offset int) ([]*models.User, int64, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Provision(ctx context.Context, user *models.User) (bool, error) {
	defer observability.TrackQuery("provision", "users")()
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(user)
	if res.Error != nil {
		return false, translateError(res.Error, "User", user.Email)
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	defer observability.TrackQuery("get", "users")()
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translateError(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, displayName, avatarURL *string) error {
	fields := map[string]any{}
	if displayName != nil {
		fields["display_name"] = *displayName
	}
	if avatarURL != nil {
		fields["avatar_url"] = *avatarURL
	}
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) SetRole(ctx context.Context, id string, role models.Role) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]*models.User, int64, error) {
	limit, offset = NormalizePage(limit, offset)
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []*models.User
	err := r.db.WithContext(ctx).Order("created_at ASC").Limit(limit).Offset(offset).Find(&users).Error
	return users, total, err
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}
