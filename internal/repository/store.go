package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups every repository bound to the same connection or transaction.
type Repositories struct {
	Users         UserRepository
	Posts         PostRepository
	Comments      CommentRepository
	Votes         VoteRepository
	Follows       FollowRepository
	Notifications NotificationRepository
	Reports       ReportRepository
	Media         MediaRepository
	Activity      ActivityLogRepository
}

// UnitOfWork runs a callback against repositories sharing one transaction.
type UnitOfWork func(repos Repositories) error

// Store hands out repositories and executes units of work atomically.
type Store interface {
	Repositories() Repositories
	Atomic(ctx context.Context, fn UnitOfWork) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore constructs a Store backed by GORM.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// NewRepositories binds every repository to db, which may be a transaction handle.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:         NewUserRepository(db),
		Posts:         NewPostRepository(db),
		Comments:      NewCommentRepository(db),
		Votes:         NewVoteRepository(db),
		Follows:       NewFollowRepository(db),
		Notifications: NewNotificationRepository(db),
		Reports:       NewReportRepository(db),
		Media:         NewMediaRepository(db),
		Activity:      NewActivityLogRepository(db),
	}
}

func (s *gormStore) Repositories() Repositories {
	return NewRepositories(s.db)
}

// Atomic commits every write made through the callback's repositories together,
// or rolls all of them back when the callback returns an error.
func (s *gormStore) Atomic(ctx context.Context, fn UnitOfWork) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
