package dto

import (
	"time"

	"github.com/mysteryforum/forum-api/internal/models"
)

// CommentCreateRequest is the payload to create a comment or reply.
type CommentCreateRequest struct {
	PostID          uint   `json:"post_id" validate:"required"`
	ParentCommentID *uint  `json:"parent_comment_id" validate:"omitempty,gt=0"`
	Content         string `json:"content" validate:"required,min=1,max=10000"`
	CommentType     string `json:"comment_type" validate:"omitempty,oneof=SUGGESTION STORY QUESTION"`
}

// CommentResponse represents a comment with its nested replies.
type CommentResponse struct {
	ID            uint               `json:"id"`
	PostID        uint               `json:"post_id"`
	AuthorID      uint               `json:"author_id"`
	ParentID      *uint              `json:"parent_id"`
	Content       string             `json:"content"`
	CommentType   models.CommentType `json:"comment_type"`
	Upvotes       int                `json:"upvotes"`
	Downvotes     int                `json:"downvotes"`
	IsBestAnswer  bool               `json:"is_best_answer"`
	UserUpvoted   bool               `json:"user_upvoted"`
	UserDownvoted bool               `json:"user_downvoted"`
	Replies       []CommentResponse  `json:"replies"`
	CreatedAt     time.Time          `json:"created_at"`
}

// NewCommentResponse converts a comment model to DTO.
func NewCommentResponse(model models.Comment) CommentResponse {
	return CommentResponse{
		ID:           model.ID,
		PostID:       model.PostID,
		AuthorID:     model.AuthorID,
		ParentID:     model.ParentID,
		Content:      model.Content,
		CommentType:  model.CommentType,
		Upvotes:      model.UpvotesCount,
		Downvotes:    model.DownvotesCount,
		IsBestAnswer: model.IsBestAnswer,
		Replies:      []CommentResponse{},
		CreatedAt:    model.CreatedAt,
	}
}

// BuildCommentTree arranges flat comments into reply trees ordered as given.
// votes maps comment id to the viewer's direction.
func BuildCommentTree(comments []models.Comment, votes map[uint]models.VoteDirection) []CommentResponse {
	children := make(map[uint][]models.Comment, len(comments))
	present := make(map[uint]struct{}, len(comments))
	for _, comment := range comments {
		present[comment.ID] = struct{}{}
	}

	var roots []models.Comment
	for _, comment := range comments {
		if comment.ParentID != nil {
			if _, ok := present[*comment.ParentID]; ok {
				children[*comment.ParentID] = append(children[*comment.ParentID], comment)
				continue
			}
		}
		roots = append(roots, comment)
	}

	var build func(comment models.Comment) CommentResponse
	build = func(comment models.Comment) CommentResponse {
		node := NewCommentResponse(comment)
		switch votes[comment.ID] {
		case models.VoteUp:
			node.UserUpvoted = true
		case models.VoteDown:
			node.UserDownvoted = true
		}
		for _, child := range children[comment.ID] {
			node.Replies = append(node.Replies, build(child))
		}
		return node
	}

	out := make([]CommentResponse, 0, len(roots))
	for _, root := range roots {
		out = append(out, build(root))
	}
	return out
}
