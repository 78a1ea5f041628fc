package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mysteryforum/forum-api/internal/models"
)

// NotificationFilter narrows notification listings for a recipient.
type NotificationFilter struct {
	UserID     uint
	Kind       models.NotificationKind
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationRepository handles persistence for notification entities.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	CreateIsolated(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, filter NotificationFilter) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uint, kind models.NotificationKind) (models.Notification, error)
	FindByID(ctx context.Context, id uint) (models.Notification, error)
	DeleteByComments(ctx context.Context, commentIDs []uint) error
	DeleteByPosts(ctx context.Context, postIDs []uint) error
	DeleteByRecipient(ctx context.Context, userID uint) error
	ClearActor(ctx context.Context, actorID uint) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository constructs a repository backed by GORM.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// CreateIsolated inserts inside a nested transaction. When the repository is
// bound to an outer transaction this becomes a savepoint, so a failed insert
// rolls back alone and the outer transaction stays usable.
func (r *notificationRepository) CreateIsolated(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(notification).Error
	})
}

func (r *notificationRepository) ListByUser(ctx context.Context, filter NotificationFilter) ([]models.Notification, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).Where("user_id = ?", filter.UserID)
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.UnreadOnly {
		query = query.Where("read = ?", false)
	}

	var notifications []models.Notification
	if err := query.
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uint, kind models.NotificationKind) (models.Notification, error) {
	query := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var notification models.Notification
	if err := query.First(&notification).Error; err != nil {
		return models.Notification{}, err
	}

	if notification.Read {
		return notification, nil
	}

	notification.Read = true
	if err := r.db.WithContext(ctx).Save(&notification).Error; err != nil {
		return models.Notification{}, err
	}

	return notification, nil
}

func (r *notificationRepository) FindByID(ctx context.Context, id uint) (models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).First(&notification, id).Error; err != nil {
		return models.Notification{}, err
	}
	return notification, nil
}

func (r *notificationRepository) DeleteByComments(ctx context.Context, commentIDs []uint) error {
	if len(commentIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("comment_id IN ?", commentIDs).Delete(&models.Notification{}).Error
}

func (r *notificationRepository) DeleteByPosts(ctx context.Context, postIDs []uint) error {
	if len(postIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("post_id IN ?", postIDs).Delete(&models.Notification{}).Error
}

func (r *notificationRepository) DeleteByRecipient(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Notification{}).Error
}

func (r *notificationRepository) ClearActor(ctx context.Context, actorID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("actor_id = ?", actorID).
		Update("actor_id", nil).Error
}
