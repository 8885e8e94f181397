package models

import "time"

// Like is one entry of the like ledger. The composite primary key keeps at
// most one entry per (post, user) pair.
type Like struct {
	PostID    string    `gorm:"primaryKey;size:36" json:"post_id"`
	UserID    string    `gorm:"primaryKey;size:36;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Like.
func (Like) TableName() string {
	return "post_likes"
}
