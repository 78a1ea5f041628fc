package dto

import (
	"time"

	"github.com/mysteryforum/forum-api/internal/models"
)

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint                    `json:"id"`
	UserID    uint                    `json:"user_id"`
	ActorID   *uint                   `json:"actor_id,omitempty"`
	PostID    *uint                   `json:"post_id,omitempty"`
	CommentID *uint                   `json:"comment_id,omitempty"`
	Kind      models.NotificationKind `json:"kind"`
	Type      models.NotificationType `json:"type"`
	Message   string                  `json:"message"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"created_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		ActorID:   model.ActorID,
		PostID:    model.PostID,
		CommentID: model.CommentID,
		Kind:      model.Kind,
		Type:      model.Type,
		Message:   model.Message,
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}
