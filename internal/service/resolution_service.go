package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mysteryforum/forum-api/internal/dto"
	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/repository"
)

// ResolutionService attaches and revokes post resolutions.
type ResolutionService interface {
	Resolve(ctx context.Context, postID, requesterID uint, payload dto.ResolvePostRequest) (dto.ResolutionResponse, error)
	Unresolve(ctx context.Context, postID, requesterID uint) (dto.ResolutionResponse, error)
}

type resolutionService struct {
	store     repository.Store
	fanout    *Fanout
	notifier  NotificationDeliverer
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewResolutionService constructs the resolution tracker.
func NewResolutionService(store repository.Store, fanout *Fanout, notifier NotificationDeliverer, logger zerolog.Logger) ResolutionService {
	return &resolutionService{
		store:     store,
		fanout:    fanout,
		notifier:  notifier,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "resolution_service").Logger(),
		tracer:    otel.Tracer("github.com/mysteryforum/forum-api/internal/service/resolution"),
		now:       time.Now,
	}
}

func (s *resolutionService) Resolve(ctx context.Context, postID, requesterID uint, payload dto.ResolvePostRequest) (dto.ResolutionResponse, error) {
	description := strings.TrimSpace(s.sanitizer.Sanitize(payload.ResolutionDescription))
	if description == "" {
		return dto.ResolutionResponse{}, invalidArgument("resolution description is required")
	}
	commentIDs := uniqueIDs(payload.ContributingCommentIDs)

	attrs := []attribute.KeyValue{
		attribute.Int64("post.id", int64(postID)),
		attribute.Int("resolution.contributing", len(commentIDs)),
	}
	spanCtx, span := s.tracer.Start(ctx, "posts.resolve", trace.WithAttributes(attrs...))
	defer span.End()

	var (
		response dto.ResolutionResponse
		created  []models.Notification
	)

	err := s.store.Atomic(spanCtx, func(repos repository.Repositories) error {
		post, err := repos.Posts.FindByIDForUpdate(spanCtx, postID)
		if err != nil {
			return notFound("post", postID, err)
		}
		if post.AuthorID != requesterID {
			return fmt.Errorf("only the author may resolve post %d: %w", postID, ErrForbidden)
		}

		comments, err := repos.Comments.FindByIDs(spanCtx, commentIDs)
		if err != nil {
			return err
		}
		if err := requireOwnComments(post.ID, commentIDs, comments); err != nil {
			return err
		}

		resolvedAt := s.now().UTC()
		if err := repos.Comments.ClearBestAnswers(spanCtx, post.ID); err != nil {
			return err
		}
		if err := repos.Posts.MarkResolved(spanCtx, post.ID, description, resolvedAt); err != nil {
			return err
		}
		if err := repos.Posts.ReplaceContributingComments(spanCtx, post.ID, commentIDs); err != nil {
			return err
		}
		if err := repos.Comments.SetBestAnswer(spanCtx, commentIDs, true); err != nil {
			return err
		}

		post.Solved = true
		post.ResolutionDescription = &description
		post.ResolvedAt = &resolvedAt

		watchers, err := s.fanout.PostResolved(spanCtx, repos, post)
		if err != nil {
			return err
		}
		created = append(created, watchers...)

		for _, comment := range comments {
			created = append(created, s.fanout.Direct(spanCtx, repos, comment.AuthorID, models.Notification{
				ActorID:   uintPtr(requesterID),
				PostID:    uintPtr(post.ID),
				CommentID: uintPtr(comment.ID),
				Type:      models.NotificationBestAnswer,
				Message:   messageBestAnswer,
			})...)
		}

		response = dto.NewResolutionResponse(post, commentIDs)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return dto.ResolutionResponse{}, err
	}

	s.logger.Info().Uint("post_id", postID).Int("contributing", len(commentIDs)).Msg("post resolved")
	s.notifier.Deliver(ctx, created)
	return response, nil
}

func (s *resolutionService) Unresolve(ctx context.Context, postID, requesterID uint) (dto.ResolutionResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "posts.unresolve", trace.WithAttributes(attribute.Int64("post.id", int64(postID))))
	defer span.End()

	var response dto.ResolutionResponse
	err := s.store.Atomic(spanCtx, func(repos repository.Repositories) error {
		post, err := repos.Posts.FindByIDForUpdate(spanCtx, postID)
		if err != nil {
			return notFound("post", postID, err)
		}
		if post.AuthorID != requesterID {
			return fmt.Errorf("only the author may unresolve post %d: %w", postID, ErrForbidden)
		}

		if err := clearResolution(spanCtx, repos, post.ID); err != nil {
			return err
		}

		post.Solved = false
		post.ResolutionDescription = nil
		post.ResolvedAt = nil
		response = dto.NewResolutionResponse(post, nil)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return dto.ResolutionResponse{}, err
	}

	s.logger.Info().Uint("post_id", postID).Msg("post unresolved")
	return response, nil
}

// releaseContributingComments strips the comments from every resolution that
// lists them. A post whose contributing set becomes empty is unresolved without
// an author check and without events. It returns the unresolved post ids.
func releaseContributingComments(ctx context.Context, repos repository.Repositories, commentIDs []uint) ([]uint, error) {
	if len(commentIDs) == 0 {
		return nil, nil
	}

	affected, err := repos.Posts.PostsContributedBy(ctx, commentIDs)
	if err != nil {
		return nil, err
	}
	if err := repos.Posts.RemoveContributingComments(ctx, commentIDs); err != nil {
		return nil, err
	}

	var unresolved []uint
	for _, postID := range affected {
		remaining, err := repos.Posts.ContributingCommentIDs(ctx, postID)
		if err != nil {
			return nil, err
		}
		if len(remaining) > 0 {
			continue
		}
		if err := clearResolution(ctx, repos, postID); err != nil {
			return nil, err
		}
		unresolved = append(unresolved, postID)
	}
	return unresolved, nil
}

func clearResolution(ctx context.Context, repos repository.Repositories, postID uint) error {
	if err := repos.Posts.ClearResolution(ctx, postID); err != nil {
		return err
	}
	if err := repos.Posts.ReplaceContributingComments(ctx, postID, nil); err != nil {
		return err
	}
	return repos.Comments.ClearBestAnswers(ctx, postID)
}

func requireOwnComments(postID uint, ids []uint, comments []models.Comment) error {
	found := make(map[uint]models.Comment, len(comments))
	for _, comment := range comments {
		found[comment.ID] = comment
	}
	for _, id := range ids {
		comment, ok := found[id]
		if !ok || comment.PostID != postID {
			return fmt.Errorf("comment %d on post %d: %w", id, postID, ErrNotFound)
		}
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
