package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mysteryforum/forum-api/internal/dto"
	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/repository"
)

// CommentService creates comments and rebuilds reply trees.
type CommentService interface {
	Create(ctx context.Context, authorID uint, payload dto.CommentCreateRequest) (dto.CommentResponse, error)
	ListByPost(ctx context.Context, postID, viewerID uint) ([]dto.CommentResponse, error)
}

type commentService struct {
	store     repository.Store
	fanout    *Fanout
	notifier  NotificationDeliverer
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewCommentService constructs the comment service.
func NewCommentService(store repository.Store, fanout *Fanout, notifier NotificationDeliverer, validate *validator.Validate, logger zerolog.Logger) CommentService {
	return &commentService{
		store:     store,
		fanout:    fanout,
		notifier:  notifier,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "comment_service").Logger(),
		tracer:    otel.Tracer("github.com/mysteryforum/forum-api/internal/service/comment"),
	}
}

func (s *commentService) Create(ctx context.Context, authorID uint, payload dto.CommentCreateRequest) (dto.CommentResponse, error) {
	payload.CommentType = strings.ToUpper(strings.TrimSpace(payload.CommentType))
	if err := s.validator.Struct(payload); err != nil {
		return dto.CommentResponse{}, err
	}
	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" {
		return dto.CommentResponse{}, invalidArgument("comment content is empty")
	}
	commentType := models.CommentType(payload.CommentType)
	if commentType == "" {
		commentType = models.CommentTypeQuestion
	}

	attrs := []attribute.KeyValue{
		attribute.Int64("comment.post_id", int64(payload.PostID)),
		attribute.Int64("comment.author_id", int64(authorID)),
	}
	spanCtx, span := s.tracer.Start(ctx, "comments.create", trace.WithAttributes(attrs...))
	defer span.End()

	var (
		comment models.Comment
		created []models.Notification
	)

	err := s.store.Atomic(spanCtx, func(repos repository.Repositories) error {
		author, err := repos.Users.FindByID(spanCtx, authorID)
		if err != nil {
			return notFound("user", authorID, err)
		}
		post, err := repos.Posts.FindByID(spanCtx, payload.PostID)
		if err != nil {
			return notFound("post", payload.PostID, err)
		}

		var parent *models.Comment
		if payload.ParentCommentID != nil {
			found, err := repos.Comments.FindByID(spanCtx, *payload.ParentCommentID)
			if err != nil {
				return notFound("comment", *payload.ParentCommentID, err)
			}
			if found.PostID != post.ID {
				return invalidArgument("parent comment belongs to another post")
			}
			parent = &found
		}

		comment = models.Comment{
			PostID:      post.ID,
			AuthorID:    author.ID,
			ParentID:    payload.ParentCommentID,
			Content:     content,
			CommentType: commentType,
		}
		if err := repos.Comments.Create(spanCtx, &comment); err != nil {
			return err
		}

		direct := models.Notification{
			ActorID:   uintPtr(author.ID),
			PostID:    uintPtr(post.ID),
			CommentID: uintPtr(comment.ID),
			Type:      models.NotificationComment,
			Message:   messageComment,
		}
		created = append(created, s.fanout.Direct(spanCtx, repos, post.AuthorID, direct)...)
		if parent != nil && parent.AuthorID != post.AuthorID {
			created = append(created, s.fanout.Direct(spanCtx, repos, parent.AuthorID, direct)...)
		}

		watchers, err := s.fanout.PostCommented(spanCtx, repos, post, author, comment)
		if err != nil {
			return err
		}
		created = append(created, watchers...)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return dto.CommentResponse{}, err
	}

	s.logger.Info().
		Uint("comment_id", comment.ID).
		Uint("post_id", comment.PostID).
		Int("notified", len(created)).
		Msg("comment created")

	s.notifier.Deliver(ctx, created)
	return dto.NewCommentResponse(comment), nil
}

func (s *commentService) ListByPost(ctx context.Context, postID, viewerID uint) ([]dto.CommentResponse, error) {
	repos := s.store.Repositories()

	if _, err := repos.Posts.FindByID(ctx, postID); err != nil {
		return nil, notFound("post", postID, err)
	}
	comments, err := repos.Comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	var votes map[uint]models.VoteDirection
	if viewerID != 0 && len(comments) > 0 {
		ids := make([]uint, 0, len(comments))
		for _, comment := range comments {
			ids = append(ids, comment.ID)
		}
		votes, err = repos.Votes.DirectionsForUser(ctx, models.SubjectComment, ids, viewerID)
		if err != nil {
			return nil, err
		}
	}

	return dto.BuildCommentTree(comments, votes), nil
}
