package models

import "time"

// Category is a named bucket posts are filed under.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name" yaml:"name"`
	Slug        string    `gorm:"size:100;uniqueIndex;not null" json:"slug" yaml:"slug"`
	Description string    `gorm:"type:text" json:"description" yaml:"description"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
}

// CategorySummary pairs a category with its number of published posts.
type CategorySummary struct {
	Category
	PostCount int64 `json:"post_count"`
}
