// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostStatus is the lifecycle state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// Valid reports whether s is a known lifecycle state.
func (s PostStatus) Valid() bool {
	return s == PostStatusDraft || s == PostStatusPublished
}

// Post represents a blog post. Views and Likes are counters owned by the
// post repository; Likes is a cached projection of the like ledger.
type Post struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Slug          string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	Content       string     `gorm:"type:text;not null" json:"content"`
	Excerpt       string     `gorm:"type:text;not null" json:"excerpt"`
	Category      string     `gorm:"size:100;not null;index" json:"category"`
	Tags          []string   `gorm:"type:text;serializer:json" json:"tags"`
	FeaturedImage string     `gorm:"size:2048" json:"featured_image,omitempty"`
	Status        PostStatus `gorm:"size:16;not null;default:draft;index" json:"status"`
	AuthorID      string     `gorm:"size:36;not null;index" json:"author_id"`
	AuthorName    string     `gorm:"size:255" json:"author_name"`
	AuthorAvatar  string     `gorm:"size:2048" json:"author_avatar,omitempty"`
	Views         int64      `gorm:"not null;default:0" json:"views"`
	Likes         int64      `gorm:"not null;default:0" json:"likes"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int64     `gorm:"->;-:migration" json:"comments_count"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = PostStatusDraft
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return nil
}

// IsPublished reports whether the post is publicly visible.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}
