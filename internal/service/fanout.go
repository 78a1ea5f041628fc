package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/observability"
	"github.com/mysteryforum/forum-api/internal/repository"
)

// Fixed notification messages.
const (
	messageFollowedUserPostCreated = "%s created a new post you might like!"
	messagePostCommented           = "%s commented on a post you follow!"
	messagePostUpvoted             = "A post you follow was upvoted!"
	messagePostDownvoted           = "A post you follow was downvoted!"
	messagePostResolved            = "A post you follow was marked as resolved!"
	messageComment                 = "You received a new comment."
	messageUpvote                  = "You received an upvote."
	messageBestAnswer              = "Your comment was marked as the best answer."
	messageReportSubmitted         = "A new report has been submitted and requires review."
	messageWarning                 = "You have received a warning due to a report. Please review your content and adhere to community guidelines."
)

// Fanout materialises notifications inside the caller's unit of work.
// Each recipient is written independently: a failed insert is logged,
// counted and skipped while the remaining recipients and the triggering
// action proceed.
type Fanout struct {
	logger zerolog.Logger
}

// NewFanout constructs the fan-out engine.
func NewFanout(logger zerolog.Logger) *Fanout {
	return &Fanout{logger: logger.With().Str("component", "fanout").Logger()}
}

// PostCreatedByFollowedUser notifies every follower of the author.
func (f *Fanout) PostCreatedByFollowedUser(ctx context.Context, repos repository.Repositories, actor models.User, post models.Post) ([]models.Notification, error) {
	recipients, err := repos.Follows.FollowerIDs(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve followers of user %d: %w", actor.ID, err)
	}

	template := models.Notification{
		ActorID: uintPtr(actor.ID),
		PostID:  uintPtr(post.ID),
		Kind:    models.NotificationFollower,
		Type:    models.NotificationFollowedUserPostCreated,
		Message: fmt.Sprintf(messageFollowedUserPostCreated, actor.Username),
	}
	return f.deliverAll(ctx, repos, recipients, actor.ID, template), nil
}

// PostCommented notifies every watcher of the post except the commenter.
func (f *Fanout) PostCommented(ctx context.Context, repos repository.Repositories, post models.Post, actor models.User, comment models.Comment) ([]models.Notification, error) {
	recipients, err := repos.Follows.WatcherIDs(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve watchers of post %d: %w", post.ID, err)
	}

	template := models.Notification{
		ActorID:   uintPtr(actor.ID),
		PostID:    uintPtr(post.ID),
		CommentID: uintPtr(comment.ID),
		Kind:      models.NotificationFollower,
		Type:      models.NotificationPostCommented,
		Message:   fmt.Sprintf(messagePostCommented, actor.Username),
	}
	return f.deliverAll(ctx, repos, recipients, actor.ID, template), nil
}

// PostVoted notifies every watcher. The recorded actor is the post author.
func (f *Fanout) PostVoted(ctx context.Context, repos repository.Repositories, post models.Post, direction models.VoteDirection) ([]models.Notification, error) {
	template := models.Notification{
		ActorID: uintPtr(post.AuthorID),
		PostID:  uintPtr(post.ID),
		Kind:    models.NotificationFollower,
		Type:    models.NotificationPostUpvoted,
		Message: messagePostUpvoted,
	}
	if direction == models.VoteDown {
		template.Type = models.NotificationPostDownvoted
		template.Message = messagePostDownvoted
	}
	return f.toWatchers(ctx, repos, post, template)
}

// PostResolved notifies every watcher. The recorded actor is the post author.
func (f *Fanout) PostResolved(ctx context.Context, repos repository.Repositories, post models.Post) ([]models.Notification, error) {
	template := models.Notification{
		ActorID: uintPtr(post.AuthorID),
		PostID:  uintPtr(post.ID),
		Kind:    models.NotificationFollower,
		Type:    models.NotificationPostResolved,
		Message: messagePostResolved,
	}
	return f.toWatchers(ctx, repos, post, template)
}

// Direct sends one notification about the recipient's own content. It is
// suppressed when the actor is the recipient.
func (f *Fanout) Direct(ctx context.Context, repos repository.Repositories, recipientID uint, notification models.Notification) []models.Notification {
	notification.Kind = models.NotificationDirect
	var actorID uint
	if notification.ActorID != nil {
		actorID = *notification.ActorID
	}
	return f.deliverAll(ctx, repos, []uint{recipientID}, actorID, notification)
}

func (f *Fanout) toWatchers(ctx context.Context, repos repository.Repositories, post models.Post, template models.Notification) ([]models.Notification, error) {
	recipients, err := repos.Follows.WatcherIDs(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve watchers of post %d: %w", post.ID, err)
	}
	// The recorded actor is the author, not the triggering user, so nobody is excluded.
	return f.deliverAll(ctx, repos, recipients, 0, template), nil
}

func (f *Fanout) deliverAll(ctx context.Context, repos repository.Repositories, recipients []uint, excluded uint, template models.Notification) []models.Notification {
	created := make([]models.Notification, 0, len(recipients))
	seen := make(map[uint]struct{}, len(recipients))

	for _, recipient := range recipients {
		if recipient == 0 || (excluded != 0 && recipient == excluded) {
			continue
		}
		if _, dup := seen[recipient]; dup {
			continue
		}
		seen[recipient] = struct{}{}

		notification := template
		notification.ID = 0
		notification.UserID = recipient
		notification.Read = false

		if err := repos.Notifications.CreateIsolated(ctx, &notification); err != nil {
			f.logger.Warn().
				Err(err).
				Uint("recipient_id", recipient).
				Str("type", string(template.Type)).
				Msg("failed to create notification")
			observability.FanoutNotifications().WithLabelValues(string(template.Type), "failed").Inc()
			continue
		}

		observability.FanoutNotifications().WithLabelValues(string(template.Type), "created").Inc()
		created = append(created, notification)
	}

	return created
}

func uintPtr(value uint) *uint {
	return &value
}
