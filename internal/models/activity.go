package models

import (
	"time"

	"gorm.io/datatypes"
)

// Activity entity types.
const (
	EntityReport = "report"
	EntityUser   = "user"
)

// ActivityLog is one audit entry written by moderation and role changes.
// ActorRole is the role held at the time of the action, not the current one.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:64;not null;index:idx_activity_logs_entity,priority:1" json:"entity_type"`
	EntityID   *uint             `gorm:"index:idx_activity_logs_entity,priority:2" json:"entity_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}
