package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mysteryforum/forum-api/internal/models"
)

// ActivityLogFilter narrows audit queries. Zero values match everything.
type ActivityLogFilter struct {
	Page       int
	PageSize   int
	ActorID    *uint
	Action     string
	EntityType string
	EntityID   *uint
}

// ActivityLogRepository stores the append-only audit trail.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository returns the GORM-backed audit store.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Scopes(filter.matching)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []models.ActivityLog{}, 0, nil
	}

	entries := make([]models.ActivityLog, 0, filter.PageSize)
	err := base.Scopes(filter.page).
		Order("created_at DESC").
		Order("id DESC").
		Find(&entries).Error
	return entries, total, err
}

func (f ActivityLogFilter) matching(db *gorm.DB) *gorm.DB {
	conds := map[string]interface{}{}
	if f.ActorID != nil {
		conds["actor_id"] = *f.ActorID
	}
	if f.Action != "" {
		conds["action"] = f.Action
	}
	if f.EntityType != "" {
		conds["entity_type"] = f.EntityType
	}
	if f.EntityID != nil {
		conds["entity_id"] = *f.EntityID
	}
	if len(conds) == 0 {
		return db
	}
	return db.Where(conds)
}

func (f ActivityLogFilter) page(db *gorm.DB) *gorm.DB {
	if f.PageSize <= 0 {
		return db
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	return db.Offset((page - 1) * f.PageSize).Limit(f.PageSize)
}
