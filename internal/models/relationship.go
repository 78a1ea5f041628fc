package models

import "time"

// UserFollow is a directed follow edge between two users.
type UserFollow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_user_follows_pair;index" json:"follower_id"`
	FollowedID uint      `gorm:"not null;uniqueIndex:idx_user_follows_pair;index" json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// PostWatch is a directed edge from a user to a post they want activity updates for.
type PostWatch struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_watches_pair;index" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_watches_pair;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
