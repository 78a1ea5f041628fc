package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/mysteryforum/forum-api/internal/dto"
	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/repository"
)

const (
	defaultActivityPageSize = 20
	maxActivityPageSize     = 100
	systemActorRole         = "system"
	redactedValue           = "***"
)

// redactedKeyParts marks metadata keys whose values never reach the audit table.
var redactedKeyParts = []string{"email", "token", "password", "secret"}

// ActivityActor is the authenticated caller a moderation decision is attributed to.
type ActivityActor struct {
	ID   uint
	Role string
}

// ActivityEntry is the input for one audit record.
type ActivityEntry struct {
	ActorID    uint
	ActorRole  string
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// ActivityService writes and pages the audit trail.
type ActivityService interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error)
	List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService wires the audit trail service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	model := newActivityLog(entry)
	switch {
	case model.Action == "":
		return dto.ActivityResponse{}, fmt.Errorf("%w: action is required", ErrInvalidArgument)
	case model.EntityType == "":
		return dto.ActivityResponse{}, fmt.Errorf("%w: entity type is required", ErrInvalidArgument)
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", model.Action).Msg("audit entry not stored")
		return dto.ActivityResponse{}, err
	}
	return dto.NewActivityResponse(model), nil
}

func (s *activityService) List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > maxActivityPageSize {
		req.PageSize = defaultActivityPageSize
	}

	filter := repository.ActivityLogFilter{
		Page:       req.Page,
		PageSize:   req.PageSize,
		Action:     normalizeToken(req.Action),
		EntityType: normalizeToken(req.EntityType),
	}
	if req.ActorID > 0 {
		filter.ActorID = uintPtr(req.ActorID)
	}
	if req.EntityID > 0 {
		filter.EntityID = uintPtr(req.EntityID)
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	items := make([]dto.ActivityResponse, len(entries))
	for i, entry := range entries {
		items[i] = dto.NewActivityResponse(entry)
	}
	return dto.ActivityListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

// newActivityLog builds the row written both here and inside moderation transactions.
func newActivityLog(entry ActivityEntry) models.ActivityLog {
	role := normalizeToken(entry.ActorRole)
	if role == "" {
		role = systemActorRole
	}
	return models.ActivityLog{
		ActorID:    entry.ActorID,
		ActorRole:  role,
		Action:     normalizeToken(entry.Action),
		EntityType: normalizeToken(entry.EntityType),
		EntityID:   entry.EntityID,
		Metadata:   redactMetadata(entry.Metadata),
	}
}

func redactMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(metadata))
	for key, value := range metadata {
		if isRedactedKey(key) {
			value = redactedValue
		}
		out[key] = value
	}
	return out
}

func isRedactedKey(key string) bool {
	lower := strings.ToLower(key)
	for _, part := range redactedKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

func normalizeToken(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
