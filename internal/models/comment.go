package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a reader response attached to a post.
type Comment struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	PostID       string    `gorm:"size:36;not null;index" json:"post_id"`
	AuthorID     string    `gorm:"size:36;not null;index" json:"author_id"`
	AuthorName   string    `gorm:"size:255" json:"author_name"`
	AuthorAvatar string    `gorm:"size:2048" json:"author_avatar,omitempty"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
