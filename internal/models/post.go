package models

import (
	"time"

	"gorm.io/datatypes"
)

// Post is a request to identify a mystery object.
type Post struct {
	ID                    uint                        `gorm:"primaryKey" json:"id"`
	Title                 string                      `gorm:"size:255;not null" json:"title"`
	Description           string                      `gorm:"type:text" json:"description"`
	AuthorID              uint                        `gorm:"not null;index" json:"author_id"`
	Tags                  datatypes.JSONSlice[string] `gorm:"type:json" json:"tags"`
	UpvotesCount          int                         `gorm:"not null;default:0" json:"upvotes_count"`
	DownvotesCount        int                         `gorm:"not null;default:0" json:"downvotes_count"`
	Solved                bool                        `gorm:"not null;default:false" json:"solved"`
	ResolutionDescription *string                     `gorm:"type:text" json:"resolution_description"`
	ResolvedAt            *time.Time                  `json:"resolved_at"`
	CreatedAt             time.Time                   `json:"created_at"`
	UpdatedAt             time.Time                   `json:"updated_at"`
}

// PostContributingComment links a post to a comment that contributed to its resolution.
type PostContributingComment struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	CommentID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentType classifies the intent of a comment.
type CommentType string

const (
	CommentTypeSuggestion CommentType = "SUGGESTION"
	CommentTypeStory      CommentType = "STORY"
	CommentTypeQuestion   CommentType = "QUESTION"
)

// Comment is a reply on a post, optionally nested under another comment via ParentID.
type Comment struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	PostID         uint        `gorm:"not null;index" json:"post_id"`
	AuthorID       uint        `gorm:"not null;index" json:"author_id"`
	ParentID       *uint       `gorm:"index" json:"parent_id"`
	Content        string      `gorm:"type:text;not null" json:"content"`
	CommentType    CommentType `gorm:"size:16;not null;default:QUESTION" json:"comment_type"`
	UpvotesCount   int         `gorm:"not null;default:0" json:"upvotes_count"`
	DownvotesCount int         `gorm:"not null;default:0" json:"downvotes_count"`
	IsBestAnswer   bool        `gorm:"not null;default:false" json:"is_best_answer"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// MysteryObject describes the object (or one of its sub-parts) a post asks about.
// Sub-parts are flat rows pointing at their parent.
type MysteryObject struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	PostID      uint              `gorm:"not null;index" json:"post_id"`
	ParentID    *uint             `gorm:"index" json:"parent_id"`
	Name        string            `gorm:"size:255" json:"name"`
	Description string            `gorm:"type:text" json:"description"`
	Attributes  datatypes.JSONMap `gorm:"type:json" json:"attributes"`
	CreatedAt   time.Time         `json:"created_at"`
}

// MediaFile references a blob stored outside the database.
type MediaFile struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	MysteryObjectID *uint     `gorm:"index" json:"mystery_object_id"`
	CommentID       *uint     `gorm:"index" json:"comment_id"`
	FileName        string    `gorm:"size:255" json:"file_name"`
	FileType        string    `gorm:"size:128" json:"file_type"`
	PublicID        string    `gorm:"size:255" json:"public_id"`
	URL             string    `gorm:"size:512" json:"url"`
	CreatedAt       time.Time `json:"created_at"`
}
