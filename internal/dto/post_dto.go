package dto

import (
	"time"

	"github.com/mysteryforum/forum-api/internal/models"
)

// MysteryObjectRequest describes an object and its nested sub-parts.
type MysteryObjectRequest struct {
	Name        string                 `json:"name" validate:"required,min=1,max=255"`
	Description string                 `json:"description" validate:"max=5000"`
	Attributes  map[string]interface{} `json:"attributes"`
	Parts       []MysteryObjectRequest `json:"parts" validate:"omitempty,max=50,dive"`
}

// PostCreateRequest is the payload to create a post.
type PostCreateRequest struct {
	Title         string                `json:"title" validate:"required,min=3,max=255"`
	Description   string                `json:"description" validate:"max=10000"`
	Tags          []string              `json:"tags" validate:"omitempty,max=20,dive,min=1,max=64"`
	MysteryObject *MysteryObjectRequest `json:"mystery_object" validate:"omitempty"`
}

// ResolvePostRequest attaches a resolution to a post.
type ResolvePostRequest struct {
	ResolutionDescription  string `json:"resolution_description" validate:"required,min=1,max=5000"`
	ContributingCommentIDs []uint `json:"contributing_comment_ids" validate:"omitempty,max=100"`
}

// MysteryObjectResponse is a node of the rebuilt sub-part tree.
type MysteryObjectResponse struct {
	ID          uint                    `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Attributes  map[string]interface{}  `json:"attributes,omitempty"`
	Parts       []MysteryObjectResponse `json:"parts,omitempty"`
}

// PostResponse represents a post returned to clients.
type PostResponse struct {
	ID                     uint                   `json:"id"`
	Title                  string                 `json:"title"`
	Description            string                 `json:"description"`
	AuthorID               uint                   `json:"author_id"`
	Tags                   []string               `json:"tags"`
	Upvotes                int                    `json:"upvotes"`
	Downvotes              int                    `json:"downvotes"`
	Solved                 bool                   `json:"solved"`
	ResolutionDescription  *string                `json:"resolution_description"`
	ResolvedAt             *time.Time             `json:"resolved_at"`
	ContributingCommentIDs []uint                 `json:"contributing_comment_ids"`
	UserUpvoted            bool                   `json:"user_upvoted"`
	UserDownvoted          bool                   `json:"user_downvoted"`
	Watchers               int64                  `json:"watchers"`
	MysteryObject          *MysteryObjectResponse `json:"mystery_object,omitempty"`
	CreatedAt              time.Time              `json:"created_at"`
}

// ResolutionResponse reports the resolution state of a post.
type ResolutionResponse struct {
	PostID                 uint       `json:"post_id"`
	Solved                 bool       `json:"solved"`
	ResolutionDescription  *string    `json:"resolution_description"`
	ResolvedAt             *time.Time `json:"resolved_at"`
	ContributingCommentIDs []uint     `json:"contributing_comment_ids"`
}

// NewPostResponse converts a post model to DTO without viewer-specific fields.
func NewPostResponse(model models.Post, contributing []uint) PostResponse {
	tags := []string(model.Tags)
	if tags == nil {
		tags = []string{}
	}
	if contributing == nil {
		contributing = []uint{}
	}
	return PostResponse{
		ID:                     model.ID,
		Title:                  model.Title,
		Description:            model.Description,
		AuthorID:               model.AuthorID,
		Tags:                   tags,
		Upvotes:                model.UpvotesCount,
		Downvotes:              model.DownvotesCount,
		Solved:                 model.Solved,
		ResolutionDescription:  model.ResolutionDescription,
		ResolvedAt:             model.ResolvedAt,
		ContributingCommentIDs: contributing,
		CreatedAt:              model.CreatedAt,
	}
}

// NewResolutionResponse converts a post model to a resolution payload.
func NewResolutionResponse(model models.Post, contributing []uint) ResolutionResponse {
	if contributing == nil {
		contributing = []uint{}
	}
	return ResolutionResponse{
		PostID:                 model.ID,
		Solved:                 model.Solved,
		ResolutionDescription:  model.ResolutionDescription,
		ResolvedAt:             model.ResolvedAt,
		ContributingCommentIDs: contributing,
	}
}

// BuildMysteryObjectTree rebuilds the sub-part tree from flat rows.
// Rows whose parent is missing are dropped; the first root is returned.
func BuildMysteryObjectTree(objects []models.MysteryObject) *MysteryObjectResponse {
	children := make(map[uint][]models.MysteryObject, len(objects))
	var roots []models.MysteryObject
	for _, object := range objects {
		if object.ParentID == nil {
			roots = append(roots, object)
			continue
		}
		children[*object.ParentID] = append(children[*object.ParentID], object)
	}
	if len(roots) == 0 {
		return nil
	}

	var build func(object models.MysteryObject, depth int) MysteryObjectResponse
	build = func(object models.MysteryObject, depth int) MysteryObjectResponse {
		node := MysteryObjectResponse{
			ID:          object.ID,
			Name:        object.Name,
			Description: object.Description,
			Attributes:  map[string]interface{}(object.Attributes),
		}
		if depth > len(objects) {
			return node
		}
		for _, child := range children[object.ID] {
			node.Parts = append(node.Parts, build(child, depth+1))
		}
		return node
	}

	root := build(roots[0], 0)
	return &root
}
