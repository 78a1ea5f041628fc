package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mysteryforum/forum-api/internal/dto"
	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/observability"
	"github.com/mysteryforum/forum-api/internal/repository"
)

const resolutionNoteSeparator = "\n[RESOLUTION] "

// BlobStore deletes stored media by reference.
type BlobStore interface {
	Destroy(ctx context.Context, publicID string) error
}

// ReportService records abuse reports and applies moderation decisions.
type ReportService interface {
	Submit(ctx context.Context, reporterID uint, payload dto.ReportSubmitRequest) (dto.ReportResponse, error)
	List(ctx context.Context, req dto.ReportListRequest) (dto.ReportListResponse, error)
	ListByTarget(ctx context.Context, targetType string, targetID uint) ([]dto.ReportResponse, error)
	Resolve(ctx context.Context, reportID uint, admin ActivityActor, payload dto.ReportResolveRequest) (dto.ReportResponse, error)
}

type reportService struct {
	store     repository.Store
	fanout    *Fanout
	notifier  NotificationDeliverer
	blobs     BlobStore
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewReportService constructs the report and moderation service. blobs may be nil.
func NewReportService(store repository.Store, fanout *Fanout, notifier NotificationDeliverer, blobs BlobStore, validate *validator.Validate, logger zerolog.Logger) ReportService {
	return &reportService{
		store:     store,
		fanout:    fanout,
		notifier:  notifier,
		blobs:     blobs,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "report_service").Logger(),
		tracer:    otel.Tracer("github.com/mysteryforum/forum-api/internal/service/report"),
		now:       time.Now,
	}
}

func (s *reportService) Submit(ctx context.Context, reporterID uint, payload dto.ReportSubmitRequest) (dto.ReportResponse, error) {
	payload.TargetType = strings.ToUpper(strings.TrimSpace(payload.TargetType))
	payload.Reason = strings.ToUpper(strings.TrimSpace(payload.Reason))
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReportResponse{}, err
	}
	targetType, _ := models.ParseReportTargetType(payload.TargetType)

	attrs := []attribute.KeyValue{
		attribute.String("report.target_type", string(targetType)),
		attribute.Int64("report.target_id", int64(payload.TargetID)),
	}
	spanCtx, span := s.tracer.Start(ctx, "reports.submit", trace.WithAttributes(attrs...))
	defer span.End()

	var (
		report  models.Report
		created []models.Notification
	)

	err := s.store.Atomic(spanCtx, func(repos repository.Repositories) error {
		if _, err := repos.Users.FindByID(spanCtx, reporterID); err != nil {
			return notFound("user", reporterID, err)
		}
		if _, err := s.findTarget(spanCtx, repos, targetType, payload.TargetID); err != nil {
			return err
		}

		report = models.Report{
			ReporterID: reporterID,
			TargetType: targetType,
			TargetID:   payload.TargetID,
			Reason:     models.ReportReason(payload.Reason),
			Notes:      strings.TrimSpace(s.sanitizer.Sanitize(payload.Notes)),
			Status:     models.ReportStatusOpen,
		}
		if err := repos.Reports.Create(spanCtx, &report); err != nil {
			return err
		}

		admins, err := repos.Users.ListIDsByRole(spanCtx, models.RoleAdmin)
		if err != nil {
			return err
		}
		for _, adminID := range admins {
			created = append(created, s.fanout.Direct(spanCtx, repos, adminID, models.Notification{
				ActorID: uintPtr(reporterID),
				Type:    models.NotificationReport,
				Message: messageReportSubmitted,
			})...)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return dto.ReportResponse{}, err
	}

	s.logger.Info().
		Uint("report_id", report.ID).
		Str("target_type", string(report.TargetType)).
		Uint("target_id", report.TargetID).
		Msg("report submitted")

	s.notifier.Deliver(ctx, created)
	return dto.NewReportResponse(report), nil
}

func (s *reportService) List(ctx context.Context, req dto.ReportListRequest) (dto.ReportListResponse, error) {
	filter := repository.ReportFilter{Page: req.Page, PageSize: req.PageSize}
	if status := strings.ToUpper(strings.TrimSpace(req.Status)); status != "" {
		switch models.ReportStatus(status) {
		case models.ReportStatusOpen, models.ReportStatusResolved, models.ReportStatusDismissed:
			filter.Status = models.ReportStatus(status)
		default:
			return dto.ReportListResponse{}, invalidArgument("unknown report status")
		}
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	reports, total, err := s.store.Repositories().Reports.List(ctx, filter)
	if err != nil {
		return dto.ReportListResponse{}, err
	}

	return dto.ReportListResponse{
		Items:      dto.NewReportResponseSlice(reports),
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *reportService) ListByTarget(ctx context.Context, targetType string, targetID uint) ([]dto.ReportResponse, error) {
	target, ok := models.ParseReportTargetType(targetType)
	if !ok {
		return nil, invalidArgument("unknown report target type")
	}

	reports, err := s.store.Repositories().Reports.ListByTarget(ctx, target, targetID)
	if err != nil {
		return nil, err
	}
	return dto.NewReportResponseSlice(reports), nil
}

// reportTarget is the owner and surviving references of a reported entity.
type reportTarget struct {
	ownerID   *uint
	postID    *uint
	commentID *uint
}

func (s *reportService) Resolve(ctx context.Context, reportID uint, admin ActivityActor, payload dto.ReportResolveRequest) (dto.ReportResponse, error) {
	status, err := parseReportAction(payload.Action)
	if err != nil {
		return dto.ReportResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReportResponse{}, err
	}
	note := strings.TrimSpace(s.sanitizer.Sanitize(payload.Note))

	attrs := []attribute.KeyValue{
		attribute.Int64("report.id", int64(reportID)),
		attribute.String("report.action", string(status)),
		attribute.Bool("report.remove_content", payload.RemoveContent),
		attribute.Bool("report.ban_user", payload.BanUser),
		attribute.Bool("report.send_warning", payload.SendWarning),
	}
	spanCtx, span := s.tracer.Start(ctx, "reports.resolve", trace.WithAttributes(attrs...))
	defer span.End()

	var (
		report  models.Report
		removed removal
		created []models.Notification
		actions []string
	)

	err = s.store.Atomic(spanCtx, func(repos repository.Repositories) error {
		var err error
		report, err = repos.Reports.FindByIDForUpdate(spanCtx, reportID)
		if err != nil {
			return notFound("report", reportID, err)
		}
		if report.Status.Terminal() {
			s.logger.Warn().
				Uint("report_id", report.ID).
				Str("status", string(report.Status)).
				Msg("re-resolving a closed report re-runs its moderation actions")
		}

		target, err := s.captureTarget(spanCtx, repos, report)
		if err != nil {
			return err
		}

		if payload.RemoveContent && target.ownerID != nil {
			removed, err = s.removeTarget(spanCtx, repos, report, &target)
			if err != nil {
				return err
			}
			actions = append(actions, "remove_content")
		}

		if payload.BanUser && target.ownerID != nil {
			if err := repos.Users.UpdateRole(spanCtx, *target.ownerID, models.RoleBanned); err != nil {
				return notFound("user", *target.ownerID, err)
			}
			actions = append(actions, "ban_user")
		}

		if payload.SendWarning && target.ownerID != nil {
			warning := models.Notification{
				UserID:    *target.ownerID,
				ActorID:   uintPtr(admin.ID),
				PostID:    target.postID,
				CommentID: target.commentID,
				Kind:      models.NotificationDirect,
				Type:      models.NotificationReport,
				Message:   messageWarning,
			}
			if err := repos.Notifications.Create(spanCtx, &warning); err != nil {
				return fmt.Errorf("create warning notification: %w", err)
			}
			created = append(created, warning)
			actions = append(actions, "send_warning")
		}

		resolvedAt := s.now().UTC()
		report.Status = status
		report.ResolvedByID = uintPtr(admin.ID)
		report.ResolvedAt = &resolvedAt
		report.Notes = appendResolutionNote(report.Notes, note)
		report.RemoveContent = payload.RemoveContent
		report.BanUser = payload.BanUser
		report.SendWarning = payload.SendWarning
		if err := repos.Reports.Save(spanCtx, &report); err != nil {
			return err
		}

		entry := newActivityLog(ActivityEntry{
			ActorID:    admin.ID,
			ActorRole:  admin.Role,
			Action:     "report." + strings.ToLower(string(status)),
			EntityType: models.EntityReport,
			EntityID:   uintPtr(report.ID),
			Metadata: map[string]interface{}{
				"target_type":      string(report.TargetType),
				"target_id":        report.TargetID,
				"remove_content":   payload.RemoveContent,
				"ban_user":         payload.BanUser,
				"send_warning":     payload.SendWarning,
				"unresolved_posts": removed.unresolved,
				"applied":          actions,
			},
		})
		return repos.Activity.Create(spanCtx, &entry)
	})
	if err != nil {
		span.RecordError(err)
		return dto.ReportResponse{}, err
	}

	for _, action := range actions {
		observability.ModerationActions().WithLabelValues(action).Inc()
	}
	s.logger.Info().
		Uint("report_id", report.ID).
		Str("status", string(report.Status)).
		Strs("actions", actions).
		Int("comments_removed", removed.comments).
		Int("posts_removed", removed.posts).
		Msg("report resolved")

	s.destroyBlobs(ctx, removed.blobs)
	s.notifier.Deliver(ctx, created)
	return dto.NewReportResponse(report), nil
}

// captureTarget resolves the reported user before anything is deleted. A
// target that no longer exists yields no owner, so no action applies.
func (s *reportService) captureTarget(ctx context.Context, repos repository.Repositories, report models.Report) (reportTarget, error) {
	owner, err := s.findTarget(ctx, repos, report.TargetType, report.TargetID)
	if err != nil {
		if isNotFound(err) {
			s.logger.Warn().
				Uint("report_id", report.ID).
				Str("target_type", string(report.TargetType)).
				Uint("target_id", report.TargetID).
				Msg("reported target no longer exists")
			return reportTarget{}, nil
		}
		return reportTarget{}, err
	}
	return owner, nil
}

func (s *reportService) findTarget(ctx context.Context, repos repository.Repositories, targetType models.ReportTargetType, targetID uint) (reportTarget, error) {
	switch targetType {
	case models.ReportTargetPost:
		post, err := repos.Posts.FindByID(ctx, targetID)
		if err != nil {
			return reportTarget{}, notFound("post", targetID, err)
		}
		return reportTarget{ownerID: uintPtr(post.AuthorID), postID: uintPtr(post.ID)}, nil
	case models.ReportTargetComment:
		comment, err := repos.Comments.FindByID(ctx, targetID)
		if err != nil {
			return reportTarget{}, notFound("comment", targetID, err)
		}
		return reportTarget{ownerID: uintPtr(comment.AuthorID), postID: uintPtr(comment.PostID), commentID: uintPtr(comment.ID)}, nil
	case models.ReportTargetProfile:
		user, err := repos.Users.FindByID(ctx, targetID)
		if err != nil {
			return reportTarget{}, notFound("user", targetID, err)
		}
		return reportTarget{ownerID: uintPtr(user.ID)}, nil
	default:
		return reportTarget{}, invalidArgument("unknown report target type")
	}
}

// removeTarget deletes the reported content and drops references to it from target.
func (s *reportService) removeTarget(ctx context.Context, repos repository.Repositories, report models.Report, target *reportTarget) (removal, error) {
	switch report.TargetType {
	case models.ReportTargetPost:
		result, err := removePosts(ctx, repos, []uint{report.TargetID})
		target.postID = nil
		return result, err
	case models.ReportTargetComment:
		result, err := removeComment(ctx, repos, report.TargetID)
		target.commentID = nil
		return result, err
	case models.ReportTargetProfile:
		result, err := removeUser(ctx, repos, report.TargetID)
		target.ownerID = nil
		return result, err
	default:
		return removal{}, invalidArgument("unknown report target type")
	}
}

func (s *reportService) destroyBlobs(ctx context.Context, publicIDs []string) {
	if s.blobs == nil {
		return
	}
	for _, publicID := range publicIDs {
		if err := s.blobs.Destroy(ctx, publicID); err != nil {
			observability.BlobDestroyFailures().Inc()
			s.logger.Warn().Err(err).Str("public_id", publicID).Msg("failed to destroy blob")
		}
	}
}

func parseReportAction(action string) (models.ReportStatus, error) {
	switch status := models.ReportStatus(strings.ToUpper(strings.TrimSpace(action))); status {
	case models.ReportStatusResolved, models.ReportStatusDismissed:
		return status, nil
	default:
		return "", ErrInvalidReportAction
	}
}

func appendResolutionNote(existing, note string) string {
	if note == "" {
		return existing
	}
	if strings.TrimSpace(existing) == "" {
		return note
	}
	return existing + resolutionNoteSeparator + note
}
