package models

import "time"

// SubjectType identifies the kind of content a vote targets.
type SubjectType string

const (
	SubjectPost    SubjectType = "POST"
	SubjectComment SubjectType = "COMMENT"
)

// VoteDirection is either an upvote or a downvote.
type VoteDirection string

const (
	VoteUp   VoteDirection = "UP"
	VoteDown VoteDirection = "DOWN"
)

// Opposite returns the other direction.
func (d VoteDirection) Opposite() VoteDirection {
	if d == VoteUp {
		return VoteDown
	}
	return VoteUp
}

// Vote records a single voter's membership on a subject. The unique index
// keeps a voter in at most one direction per subject.
type Vote struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	SubjectType SubjectType   `gorm:"size:16;not null;uniqueIndex:idx_votes_subject_user" json:"subject_type"`
	SubjectID   uint          `gorm:"not null;uniqueIndex:idx_votes_subject_user" json:"subject_id"`
	UserID      uint          `gorm:"not null;uniqueIndex:idx_votes_subject_user;index" json:"user_id"`
	Direction   VoteDirection `gorm:"size:8;not null" json:"direction"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
