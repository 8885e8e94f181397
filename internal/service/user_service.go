package service

import (
	"context"
	"log/slog"
	"strings"

	"blogspace/internal/cache"
	"blogspace/internal/middleware"
	"blogspace/internal/models"
	"blogspace/internal/repository"
	"blogspace/internal/validation"
)

type UserService struct {
	users       repository.UserRepository
	adminEmails map[string]struct{}
}

type UpdateProfileInput struct {
	DisplayName *string `json:"display_name" validate:"omitnil,required,max=100"`
	AvatarURL   *string `json:"avatar_url" validate:"omitnil,optional_url,max=2048"`
}

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users  []*models.User `json:"users"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// NewUserService creates a user service. Identities whose email appears in
// adminEmails are provisioned as admins.
func NewUserService(users repository.UserRepository, adminEmails []string) *UserService {
	set := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			set[e] = struct{}{}
		}
	}
	return &UserService{users: users, adminEmails: set}
}

// EnsureProfile returns the profile for an identity, creating it the first
// time the identity is seen. Concurrent first requests create it once.
func (s *UserService) EnsureProfile(ctx context.Context, id models.Identity) (*models.User, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return nil, models.NewUnauthorizedError("Identity has no subject")
	}
	return cache.Aside(ctx, cache.UserKey(id.UserID), cache.UserTTL, func(ctx context.Context) (*models.User, error) {
		user, err := s.users.GetByID(ctx, id.UserID)
		if err == nil {
			return user, nil
		}
		if !models.HasCode(err, models.CodeNotFound) {
			return nil, err
		}

		profile := &models.User{
			ID:          id.UserID,
			Email:       strings.TrimSpace(id.Email),
			DisplayName: displayNameFor(id),
			AvatarURL:   strings.TrimSpace(id.AvatarURL),
			Role:        models.RoleUser,
		}
		if _, ok := s.adminEmails[strings.ToLower(profile.Email)]; ok && profile.Email != "" {
			profile.Role = models.RoleAdmin
		}
		created, err := s.users.Provision(ctx, profile)
		if err != nil {
			return nil, err
		}
		if created {
			middleware.Logger.InfoContext(ctx, "profile provisioned",
				slog.String("user_id", profile.ID), slog.String("role", string(profile.Role)))
		}
		return s.users.GetByID(ctx, id.UserID)
	})
}

// displayNameFor falls back to the local part of the email.
func displayNameFor(id models.Identity) string {
	if name := strings.TrimSpace(id.DisplayName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(id.Email, "@")
	return local
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return cache.Aside(ctx, cache.UserKey(userID), cache.UserTTL, func(ctx context.Context) (*models.User, error) {
		return s.users.GetByID(ctx, userID)
	})
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*models.User, error) {
	if in.DisplayName != nil {
		trimmed := strings.TrimSpace(*in.DisplayName)
		in.DisplayName = &trimmed
	}
	if in.AvatarURL != nil {
		trimmed := strings.TrimSpace(*in.AvatarURL)
		in.AvatarURL = &trimmed
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfile(ctx, userID, in.DisplayName, in.AvatarURL); err != nil {
		return nil, err
	}
	cache.InvalidateUser(ctx, userID)
	return s.users.GetByID(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) (*UserPage, error) {
	limit, offset = repository.NormalizePage(limit, offset)
	users, total, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*models.User{}
	}
	return &UserPage{Users: users, Total: total, Limit: limit, Offset: offset}, nil
}

// SetRole changes a user's role. Admins cannot change their own role, so
// the last admin cannot lock everyone out.
func (s *UserService) SetRole(ctx context.Context, actor *models.Viewer, userID string, role models.Role) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, models.NewForbiddenError()
	}
	if !role.Valid() {
		return nil, models.NewFieldValidationError(map[string]string{"role": "must be one of: user, admin"})
	}
	if actor.ID == userID {
		return nil, models.NewValidationError("You cannot change your own role")
	}
	if err := s.users.SetRole(ctx, userID, role); err != nil {
		return nil, err
	}
	cache.InvalidateUser(ctx, userID)
	return s.users.GetByID(ctx, userID)
}

func (s *UserService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}
