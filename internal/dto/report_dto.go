package dto

import (
	"time"

	"github.com/mysteryforum/forum-api/internal/models"
)

// ReportSubmitRequest is the payload a user sends to report content.
type ReportSubmitRequest struct {
	TargetType string `json:"target_type" validate:"required,oneof=POST COMMENT PROFILE"`
	TargetID   uint   `json:"target_id" validate:"required"`
	Reason     string `json:"reason" validate:"required,oneof=SPAM HARASSMENT INAPPROPRIATE MISINFORMATION OFF_TOPIC OTHER"`
	Notes      string `json:"notes" validate:"max=2000"`
}

// ReportResolveRequest is the payload an admin sends to close a report.
type ReportResolveRequest struct {
	Action        string `json:"action"`
	Note          string `json:"note" validate:"max=2000"`
	RemoveContent bool   `json:"remove_content"`
	BanUser       bool   `json:"ban_user"`
	SendWarning   bool   `json:"send_warning"`
}

// ReportListRequest defines filters for listing reports.
type ReportListRequest struct {
	Page     int
	PageSize int
	Status   string
}

// ReportResponse represents a report returned to clients.
type ReportResponse struct {
	ID            uint                    `json:"id"`
	ReporterID    uint                    `json:"reporter_id"`
	TargetType    models.ReportTargetType `json:"target_type"`
	TargetID      uint                    `json:"target_id"`
	Reason        models.ReportReason     `json:"reason"`
	Notes         string                  `json:"notes"`
	Status        models.ReportStatus     `json:"status"`
	ResolvedByID  *uint                   `json:"resolved_by_id"`
	ResolvedAt    *time.Time              `json:"resolved_at"`
	RemoveContent bool                    `json:"remove_content"`
	BanUser       bool                    `json:"ban_user"`
	SendWarning   bool                    `json:"send_warning"`
	CreatedAt     time.Time               `json:"created_at"`
}

// ReportListResponse wraps a page of reports.
type ReportListResponse struct {
	Items      []ReportResponse `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}

// NewReportResponse converts a report model to DTO.
func NewReportResponse(model models.Report) ReportResponse {
	return ReportResponse{
		ID:            model.ID,
		ReporterID:    model.ReporterID,
		TargetType:    model.TargetType,
		TargetID:      model.TargetID,
		Reason:        model.Reason,
		Notes:         model.Notes,
		Status:        model.Status,
		ResolvedByID:  model.ResolvedByID,
		ResolvedAt:    model.ResolvedAt,
		RemoveContent: model.RemoveContent,
		BanUser:       model.BanUser,
		SendWarning:   model.SendWarning,
		CreatedAt:     model.CreatedAt,
	}
}

// NewReportResponseSlice converts a slice to DTOs.
func NewReportResponseSlice(items []models.Report) []ReportResponse {
	out := make([]ReportResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewReportResponse(item))
	}
	return out
}
