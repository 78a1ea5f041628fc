package models

import "time"

// NotificationKind separates notifications about the recipient's own content
// from notifications caused by follow and watch edges.
type NotificationKind string

const (
	NotificationDirect   NotificationKind = "DIRECT"
	NotificationFollower NotificationKind = "FOLLOWER"
)

// NotificationType tags what happened.
type NotificationType string

const (
	NotificationComment    NotificationType = "COMMENT"
	NotificationUpvote     NotificationType = "UPVOTE"
	NotificationBestAnswer NotificationType = "BEST_ANSWER"
	NotificationReport     NotificationType = "REPORT"

	NotificationFollowedUserPostCreated NotificationType = "FOLLOWED_USER_POST_CREATED"
	NotificationPostUpvoted             NotificationType = "POST_UPVOTED"
	NotificationPostDownvoted           NotificationType = "POST_DOWNVOTED"
	NotificationPostCommented           NotificationType = "POST_COMMENTED"
	NotificationPostResolved            NotificationType = "POST_RESOLVED"
)

// Notification is a message addressed to a single user.
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"`
	ActorID   *uint            `gorm:"index" json:"actor_id"`
	PostID    *uint            `gorm:"index" json:"post_id"`
	CommentID *uint            `gorm:"index" json:"comment_id"`
	Kind      NotificationKind `gorm:"size:16;not null;index" json:"kind"`
	Type      NotificationType `gorm:"size:64;not null" json:"type"`
	Message   string           `gorm:"size:500;not null" json:"message"`
	Read      bool             `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
