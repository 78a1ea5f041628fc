package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mysteryforum/forum-api/internal/models"
)

// FollowRepository persists user follow edges and post watch edges.
type FollowRepository interface {
	CreateFollow(ctx context.Context, followerID, followedID uint) error
	DeleteFollow(ctx context.Context, followerID, followedID uint) (bool, error)
	FollowExists(ctx context.Context, followerID, followedID uint) (bool, error)
	FollowerIDs(ctx context.Context, followedID uint) ([]uint, error)
	CountFollowers(ctx context.Context, userID uint) (int64, error)
	CountFollowing(ctx context.Context, userID uint) (int64, error)

	CreateWatch(ctx context.Context, userID, postID uint) error
	DeleteWatch(ctx context.Context, userID, postID uint) (bool, error)
	WatchExists(ctx context.Context, userID, postID uint) (bool, error)
	WatcherIDs(ctx context.Context, postID uint) ([]uint, error)
	CountWatchers(ctx context.Context, postID uint) (int64, error)

	DeleteByUser(ctx context.Context, userID uint) error
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository constructs a GORM-backed relationship repository.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) CreateFollow(ctx context.Context, followerID, followedID uint) error {
	return r.db.WithContext(ctx).Create(&models.UserFollow{FollowerID: followerID, FollowedID: followedID}).Error
}

func (r *followRepository) DeleteFollow(ctx context.Context, followerID, followedID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.UserFollow{})
	return result.RowsAffected > 0, result.Error
}

func (r *followRepository) FollowExists(ctx context.Context, followerID, followedID uint) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.UserFollow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&total).Error
	return total > 0, err
}

func (r *followRepository) FollowerIDs(ctx context.Context, followedID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.UserFollow{}).
		Where("followed_id = ?", followedID).
		Order("follower_id ASC").
		Pluck("follower_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *followRepository) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.UserFollow{}).Where("followed_id = ?", userID).Count(&total).Error
	return total, err
}

func (r *followRepository) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.UserFollow{}).Where("follower_id = ?", userID).Count(&total).Error
	return total, err
}

func (r *followRepository) CreateWatch(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).Create(&models.PostWatch{UserID: userID, PostID: postID}).Error
}

func (r *followRepository) DeleteWatch(ctx context.Context, userID, postID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.PostWatch{})
	return result.RowsAffected > 0, result.Error
}

func (r *followRepository) WatchExists(ctx context.Context, userID, postID uint) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.PostWatch{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&total).Error
	return total > 0, err
}

func (r *followRepository) WatcherIDs(ctx context.Context, postID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.PostWatch{}).
		Where("post_id = ?", postID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *followRepository) CountWatchers(ctx context.Context, postID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.PostWatch{}).Where("post_id = ?", postID).Count(&total).Error
	return total, err
}

// DeleteByUser removes every edge the user participates in on either side.
func (r *followRepository) DeleteByUser(ctx context.Context, userID uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("follower_id = ? OR followed_id = ?", userID, userID).Delete(&models.UserFollow{}).Error; err != nil {
		return err
	}
	return db.Where("user_id = ?", userID).Delete(&models.PostWatch{}).Error
}
