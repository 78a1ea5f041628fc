package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.UserRole) models.User {
	t.Helper()
	user := models.User{Username: username, Email: username + "@example.com", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createPost(t *testing.T, db *gorm.DB, authorID uint) models.Post {
	t.Helper()
	post := models.Post{Title: "Odd brass hinge with engraved numbers", AuthorID: authorID}
	require.NoError(t, db.Create(&post).Error)
	return post
}

func createComment(t *testing.T, db *gorm.DB, postID, authorID uint, parentID *uint) models.Comment {
	t.Helper()
	comment := models.Comment{PostID: postID, AuthorID: authorID, ParentID: parentID, Content: "Could be from a ship chronometer box", CommentType: models.CommentTypeSuggestion}
	require.NoError(t, db.Create(&comment).Error)
	return comment
}

func watch(t *testing.T, db *gorm.DB, userID, postID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.PostWatch{UserID: userID, PostID: postID}).Error)
}

func follow(t *testing.T, db *gorm.DB, followerID, followedID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.UserFollow{FollowerID: followerID, FollowedID: followedID}).Error)
}

func notificationsFor(t *testing.T, db *gorm.DB, userID uint) []models.Notification {
	t.Helper()
	var out []models.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Order("id").Find(&out).Error)
	return out
}

func reloadPost(t *testing.T, db *gorm.DB, id uint) models.Post {
	t.Helper()
	var post models.Post
	require.NoError(t, db.First(&post, id).Error)
	return post
}

// recordingDeliverer captures notifications handed over after commit.
type recordingDeliverer struct {
	mu        sync.Mutex
	delivered []models.Notification
}

func (r *recordingDeliverer) Deliver(ctx context.Context, notifications []models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, notifications...)
}

func (r *recordingDeliverer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.delivered)
}

var errRecipientUnavailable = errors.New("recipient mailbox unavailable")

// failingNotifications rejects isolated inserts addressed to one recipient.
type failingNotifications struct {
	repository.NotificationRepository
	failFor uint
}

func (f failingNotifications) CreateIsolated(ctx context.Context, notification *models.Notification) error {
	if notification.UserID == f.failFor {
		return errRecipientUnavailable
	}
	return f.NotificationRepository.CreateIsolated(ctx, notification)
}

// failingStore wraps a store so fan-out to one recipient always fails.
type failingStore struct {
	repository.Store
	failFor uint
}

func (s failingStore) Atomic(ctx context.Context, fn repository.UnitOfWork) error {
	return s.Store.Atomic(ctx, func(repos repository.Repositories) error {
		repos.Notifications = failingNotifications{NotificationRepository: repos.Notifications, failFor: s.failFor}
		return fn(repos)
	})
}

// recordingBlobs remembers destroyed public ids and optionally fails.
type recordingBlobs struct {
	destroyed []string
	err       error
}

func (r *recordingBlobs) Destroy(ctx context.Context, publicID string) error {
	r.destroyed = append(r.destroyed, publicID)
	return r.err
}

var errAuditUnavailable = errors.New("audit table unavailable")

// failingAudit rejects every audit insert.
type failingAudit struct {
	repository.ActivityLogRepository
}

func (failingAudit) Create(context.Context, *models.ActivityLog) error {
	return errAuditUnavailable
}

// auditFailingStore makes the last write of a report resolution fail.
type auditFailingStore struct {
	repository.Store
}

func (s auditFailingStore) Atomic(ctx context.Context, fn repository.UnitOfWork) error {
	return s.Store.Atomic(ctx, func(repos repository.Repositories) error {
		repos.Activity = failingAudit{ActivityLogRepository: repos.Activity}
		return fn(repos)
	})
}
