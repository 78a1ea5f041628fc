package dto

import "github.com/mysteryforum/forum-api/internal/models"

// VoteResponse reports a subject's counters and the caller's membership after a toggle.
type VoteResponse struct {
	SubjectType   models.SubjectType `json:"subject_type"`
	SubjectID     uint               `json:"subject_id"`
	Upvotes       int                `json:"upvotes"`
	Downvotes     int                `json:"downvotes"`
	UserUpvoted   bool               `json:"user_upvoted"`
	UserDownvoted bool               `json:"user_downvoted"`
}
