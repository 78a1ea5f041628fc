package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/mysteryforum/forum-api/internal/dto"
	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/observability"
	"github.com/mysteryforum/forum-api/internal/repository"
)

// VoteService toggles up/down votes on posts and comments.
type VoteService interface {
	Toggle(ctx context.Context, subjectType models.SubjectType, subjectID, voterID uint, direction models.VoteDirection) (dto.VoteResponse, error)
}

type voteService struct {
	store    repository.Store
	fanout   *Fanout
	notifier NotificationDeliverer
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewVoteService constructs the vote ledger service.
func NewVoteService(store repository.Store, fanout *Fanout, notifier NotificationDeliverer, logger zerolog.Logger) VoteService {
	return &voteService{
		store:    store,
		fanout:   fanout,
		notifier: notifier,
		logger:   logger.With().Str("component", "vote_service").Logger(),
		tracer:   otel.Tracer("github.com/mysteryforum/forum-api/internal/service/vote"),
	}
}

// voteSubject is the locked row a vote applies to.
type voteSubject struct {
	post      models.Post
	comment   models.Comment
	upvotes   int
	downvotes int
	authorID  uint
}

func (s *voteService) Toggle(ctx context.Context, subjectType models.SubjectType, subjectID, voterID uint, direction models.VoteDirection) (dto.VoteResponse, error) {
	if subjectType != models.SubjectPost && subjectType != models.SubjectComment {
		return dto.VoteResponse{}, invalidArgument("unknown vote subject")
	}
	if direction != models.VoteUp && direction != models.VoteDown {
		return dto.VoteResponse{}, invalidArgument("unknown vote direction")
	}

	attrs := []attribute.KeyValue{
		attribute.String("vote.subject_type", string(subjectType)),
		attribute.Int64("vote.subject_id", int64(subjectID)),
		attribute.String("vote.direction", string(direction)),
	}
	spanCtx, span := s.tracer.Start(ctx, "votes.toggle", trace.WithAttributes(attrs...))
	defer span.End()

	var (
		response dto.VoteResponse
		created  []models.Notification
		outcome  string
	)

	err := s.store.Atomic(spanCtx, func(repos repository.Repositories) error {
		voter, err := repos.Users.FindByID(spanCtx, voterID)
		if err != nil {
			return notFound("user", voterID, err)
		}

		subject, err := s.lockSubject(spanCtx, repos, subjectType, subjectID)
		if err != nil {
			return err
		}

		existing, err := repos.Votes.Find(spanCtx, subjectType, subjectID, voter.ID)
		hasVote := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		upDelta, downDelta := 0, 0
		var membership models.VoteDirection

		switch {
		case hasVote && existing.Direction == direction:
			if err := repos.Votes.Delete(spanCtx, existing.ID); err != nil {
				return err
			}
			upDelta, downDelta = deltaFor(direction, -1)
			outcome = "removed"
		case hasVote:
			if err := repos.Votes.UpdateDirection(spanCtx, existing.ID, direction); err != nil {
				return err
			}
			upDelta, downDelta = deltaFor(direction, 1)
			oppUp, oppDown := deltaFor(direction.Opposite(), -1)
			upDelta += oppUp
			downDelta += oppDown
			membership = direction
			outcome = "switched"
		default:
			vote := models.Vote{SubjectType: subjectType, SubjectID: subjectID, UserID: voter.ID, Direction: direction}
			if err := repos.Votes.Create(spanCtx, &vote); err != nil {
				return err
			}
			upDelta, downDelta = deltaFor(direction, 1)
			membership = direction
			outcome = "added"
		}

		if subjectType == models.SubjectPost {
			err = repos.Posts.AdjustVoteCounts(spanCtx, subjectID, upDelta, downDelta)
		} else {
			err = repos.Comments.AdjustVoteCounts(spanCtx, subjectID, upDelta, downDelta)
		}
		if err != nil {
			return err
		}

		response = dto.VoteResponse{
			SubjectType:   subjectType,
			SubjectID:     subjectID,
			Upvotes:       subject.upvotes + upDelta,
			Downvotes:     subject.downvotes + downDelta,
			UserUpvoted:   membership == models.VoteUp,
			UserDownvoted: membership == models.VoteDown,
		}

		if outcome == "removed" {
			return nil
		}

		switch subjectType {
		case models.SubjectPost:
			notifications, err := s.fanout.PostVoted(spanCtx, repos, subject.post, direction)
			if err != nil {
				return err
			}
			created = append(created, notifications...)
		case models.SubjectComment:
			if direction == models.VoteUp {
				created = append(created, s.fanout.Direct(spanCtx, repos, subject.authorID, models.Notification{
					ActorID:   uintPtr(voter.ID),
					PostID:    uintPtr(subject.comment.PostID),
					CommentID: uintPtr(subject.comment.ID),
					Type:      models.NotificationUpvote,
					Message:   messageUpvote,
				})...)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return dto.VoteResponse{}, err
	}

	observability.VotesToggled().WithLabelValues(string(subjectType), string(direction), outcome).Inc()
	s.logger.Debug().
		Str("subject_type", string(subjectType)).
		Uint("subject_id", subjectID).
		Uint("voter_id", voterID).
		Str("outcome", outcome).
		Msg("vote toggled")

	s.notifier.Deliver(ctx, created)
	return response, nil
}

func (s *voteService) lockSubject(ctx context.Context, repos repository.Repositories, subjectType models.SubjectType, subjectID uint) (voteSubject, error) {
	if subjectType == models.SubjectPost {
		post, err := repos.Posts.FindByIDForUpdate(ctx, subjectID)
		if err != nil {
			return voteSubject{}, notFound("post", subjectID, err)
		}
		return voteSubject{post: post, upvotes: post.UpvotesCount, downvotes: post.DownvotesCount, authorID: post.AuthorID}, nil
	}

	comment, err := repos.Comments.FindByIDForUpdate(ctx, subjectID)
	if err != nil {
		return voteSubject{}, notFound("comment", subjectID, err)
	}
	return voteSubject{comment: comment, upvotes: comment.UpvotesCount, downvotes: comment.DownvotesCount, authorID: comment.AuthorID}, nil
}

func deltaFor(direction models.VoteDirection, amount int) (int, int) {
	if direction == models.VoteUp {
		return amount, 0
	}
	return 0, amount
}
