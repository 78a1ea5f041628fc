package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mysteryforum/forum-api/internal/models"
)

// MediaRepository persists blob references attached to mystery objects and comments.
type MediaRepository interface {
	Create(ctx context.Context, media *models.MediaFile) error
	ListByMysteryObjects(ctx context.Context, objectIDs []uint) ([]models.MediaFile, error)
	ListByComments(ctx context.Context, commentIDs []uint) ([]models.MediaFile, error)
	DeleteByIDs(ctx context.Context, ids []uint) error
}

type mediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository constructs a GORM-backed media repository.
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(ctx context.Context, media *models.MediaFile) error {
	return r.db.WithContext(ctx).Create(media).Error
}

func (r *mediaRepository) ListByMysteryObjects(ctx context.Context, objectIDs []uint) ([]models.MediaFile, error) {
	if len(objectIDs) == 0 {
		return nil, nil
	}
	var files []models.MediaFile
	if err := r.db.WithContext(ctx).Where("mystery_object_id IN ?", objectIDs).Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *mediaRepository) ListByComments(ctx context.Context, commentIDs []uint) ([]models.MediaFile, error) {
	if len(commentIDs) == 0 {
		return nil, nil
	}
	var files []models.MediaFile
	if err := r.db.WithContext(ctx).Where("comment_id IN ?", commentIDs).Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *mediaRepository) DeleteByIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.MediaFile{}).Error
}
