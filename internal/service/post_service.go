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
	"gorm.io/datatypes"

	"github.com/mysteryforum/forum-api/internal/dto"
	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/repository"
)

// PostService creates posts and assembles post details.
type PostService interface {
	Create(ctx context.Context, authorID uint, payload dto.PostCreateRequest) (dto.PostResponse, error)
	Get(ctx context.Context, postID, viewerID uint) (dto.PostResponse, error)
}

type postService struct {
	store     repository.Store
	fanout    *Fanout
	notifier  NotificationDeliverer
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewPostService constructs the post service.
func NewPostService(store repository.Store, fanout *Fanout, notifier NotificationDeliverer, validate *validator.Validate, logger zerolog.Logger) PostService {
	return &postService{
		store:     store,
		fanout:    fanout,
		notifier:  notifier,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "post_service").Logger(),
		tracer:    otel.Tracer("github.com/mysteryforum/forum-api/internal/service/post"),
	}
}

func (s *postService) Create(ctx context.Context, authorID uint, payload dto.PostCreateRequest) (dto.PostResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PostResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "posts.create", trace.WithAttributes(attribute.Int64("post.author_id", int64(authorID))))
	defer span.End()

	post := models.Post{
		Title:       strings.TrimSpace(s.sanitizer.Sanitize(payload.Title)),
		Description: strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		AuthorID:    authorID,
		Tags:        datatypes.JSONSlice[string](normalizeTags(payload.Tags)),
	}
	var objects []models.MysteryObject
	if payload.MysteryObject != nil {
		objects = s.flattenObject(*payload.MysteryObject, nil, objects)
	}

	var created []models.Notification
	err := s.store.Atomic(spanCtx, func(repos repository.Repositories) error {
		author, err := repos.Users.FindByID(spanCtx, authorID)
		if err != nil {
			return notFound("user", authorID, err)
		}
		if err := repos.Posts.Create(spanCtx, &post, objects); err != nil {
			return err
		}

		created, err = s.fanout.PostCreatedByFollowedUser(spanCtx, repos, author, post)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return dto.PostResponse{}, err
	}

	s.logger.Info().
		Uint("post_id", post.ID).
		Uint("author_id", authorID).
		Int("objects", len(objects)).
		Int("notified", len(created)).
		Msg("post created")

	s.notifier.Deliver(ctx, created)

	response := dto.NewPostResponse(post, nil)
	response.MysteryObject = dto.BuildMysteryObjectTree(objects)
	return response, nil
}

// flattenObject appends object and its parts depth-first. ParentID holds the
// index of the parent within the returned slice.
func (s *postService) flattenObject(object dto.MysteryObjectRequest, parent *uint, out []models.MysteryObject) []models.MysteryObject {
	index := uint(len(out))
	out = append(out, models.MysteryObject{
		ParentID:    parent,
		Name:        strings.TrimSpace(s.sanitizer.Sanitize(object.Name)),
		Description: strings.TrimSpace(s.sanitizer.Sanitize(object.Description)),
		Attributes:  datatypes.JSONMap(object.Attributes),
	})
	for _, part := range object.Parts {
		out = s.flattenObject(part, uintPtr(index), out)
	}
	return out
}

func (s *postService) Get(ctx context.Context, postID, viewerID uint) (dto.PostResponse, error) {
	repos := s.store.Repositories()

	post, err := repos.Posts.FindByID(ctx, postID)
	if err != nil {
		return dto.PostResponse{}, notFound("post", postID, err)
	}
	contributing, err := repos.Posts.ContributingCommentIDs(ctx, postID)
	if err != nil {
		return dto.PostResponse{}, err
	}
	objects, err := repos.Posts.ListMysteryObjects(ctx, postID)
	if err != nil {
		return dto.PostResponse{}, err
	}
	watchers, err := repos.Follows.CountWatchers(ctx, postID)
	if err != nil {
		return dto.PostResponse{}, err
	}

	response := dto.NewPostResponse(post, contributing)
	response.Watchers = watchers
	response.MysteryObject = dto.BuildMysteryObjectTree(objects)

	if viewerID != 0 {
		directions, err := repos.Votes.DirectionsForUser(ctx, models.SubjectPost, []uint{postID}, viewerID)
		if err != nil {
			return dto.PostResponse{}, err
		}
		response.UserUpvoted = directions[postID] == models.VoteUp
		response.UserDownvoted = directions[postID] == models.VoteDown
	}

	return response, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
