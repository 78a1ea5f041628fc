package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mysteryforum/forum-api/internal/models"
)

// ReportFilter narrows report listings.
type ReportFilter struct {
	Page     int
	PageSize int
	Status   models.ReportStatus
}

// ReportRepository persists abuse reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	FindByIDForUpdate(ctx context.Context, id uint) (models.Report, error)
	Save(ctx context.Context, report *models.Report) error
	List(ctx context.Context, filter ReportFilter) ([]models.Report, int64, error)
	ListByTarget(ctx context.Context, targetType models.ReportTargetType, targetID uint) ([]models.Report, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository constructs a GORM-backed report repository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) FindByIDForUpdate(ctx context.Context, id uint) (models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&report, id).Error; err != nil {
		return models.Report{}, err
	}
	return report, nil
}

func (r *reportRepository) Save(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Save(report).Error
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]models.Report, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Report{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var reports []models.Report
	if err := query.Order("created_at DESC, id DESC").Find(&reports).Error; err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

func (r *reportRepository) ListByTarget(ctx context.Context, targetType models.ReportTargetType, targetID uint) ([]models.Report, error) {
	var reports []models.Report
	if err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("created_at DESC, id DESC").
		Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}
