package models

import (
	"strings"
	"time"
)

// ReportTargetType names what a report points at. The target id is not a foreign key.
type ReportTargetType string

const (
	ReportTargetPost    ReportTargetType = "POST"
	ReportTargetComment ReportTargetType = "COMMENT"
	ReportTargetProfile ReportTargetType = "PROFILE"
)

// ParseReportTargetType normalises a target type string.
func ParseReportTargetType(value string) (ReportTargetType, bool) {
	switch target := ReportTargetType(strings.ToUpper(strings.TrimSpace(value))); target {
	case ReportTargetPost, ReportTargetComment, ReportTargetProfile:
		return target, true
	default:
		return "", false
	}
}

// ReportReason categorises why content was reported.
type ReportReason string

const (
	ReportReasonSpam           ReportReason = "SPAM"
	ReportReasonHarassment     ReportReason = "HARASSMENT"
	ReportReasonInappropriate  ReportReason = "INAPPROPRIATE"
	ReportReasonMisinformation ReportReason = "MISINFORMATION"
	ReportReasonOffTopic       ReportReason = "OFF_TOPIC"
	ReportReasonOther          ReportReason = "OTHER"
)

// ReportStatus is OPEN until an admin resolves or dismisses the report.
type ReportStatus string

const (
	ReportStatusOpen      ReportStatus = "OPEN"
	ReportStatusResolved  ReportStatus = "RESOLVED"
	ReportStatusDismissed ReportStatus = "DISMISSED"
)

// Terminal reports whether the status can no longer change.
func (s ReportStatus) Terminal() bool {
	return s == ReportStatusResolved || s == ReportStatusDismissed
}

// Report is an abuse report raised by a user.
type Report struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	ReporterID    uint             `gorm:"not null;index" json:"reporter_id"`
	TargetType    ReportTargetType `gorm:"size:16;not null;index:idx_reports_target" json:"target_type"`
	TargetID      uint             `gorm:"not null;index:idx_reports_target" json:"target_id"`
	Reason        ReportReason     `gorm:"size:32;not null" json:"reason"`
	Notes         string           `gorm:"type:text" json:"notes"`
	Status        ReportStatus     `gorm:"size:16;not null;default:OPEN;index" json:"status"`
	ResolvedByID  *uint            `json:"resolved_by_id"`
	ResolvedAt    *time.Time       `json:"resolved_at"`
	RemoveContent bool             `gorm:"not null;default:false" json:"remove_content"`
	BanUser       bool             `gorm:"not null;default:false" json:"ban_user"`
	SendWarning   bool             `gorm:"not null;default:false" json:"send_warning"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
