package models

import "time"

// Role grants (or withholds) moderation privileges.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the local profile of an identity issued by the external identity
// provider. ID is the provider's subject.
type User struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Email       string    `gorm:"size:255;index;not null" json:"email"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	AvatarURL   string    `gorm:"size:2048" json:"avatar_url,omitempty"`
	Role        Role      `gorm:"size:16;not null;default:user" json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsAdmin reports whether the profile carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Viewer returns the policy view of this profile.
func (u *User) Viewer() *Viewer {
	if u == nil {
		return nil
	}
	return &Viewer{ID: u.ID, Role: u.Role}
}

// Identity is the tuple supplied by the identity provider on each
// authenticated request. It is trusted as-is.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
	AvatarURL   string
}

// Viewer is whoever is making a request. A nil *Viewer is an anonymous reader.
type Viewer struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the viewer is an administrator.
func (v *Viewer) IsAdmin() bool {
	return v != nil && v.Role == RoleAdmin
}
