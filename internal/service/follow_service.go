package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mysteryforum/forum-api/internal/dto"
	"github.com/mysteryforum/forum-api/internal/repository"
)

// FollowService manages user follow edges and post watch edges.
type FollowService interface {
	FollowUser(ctx context.Context, followerID uint, username string) error
	UnfollowUser(ctx context.Context, followerID uint, username string) error
	IsFollowingUser(ctx context.Context, followerID uint, username string) (dto.FollowStatusResponse, error)
	FollowCounts(ctx context.Context, username string) (dto.FollowCountsResponse, error)

	WatchPost(ctx context.Context, userID, postID uint) error
	UnwatchPost(ctx context.Context, userID, postID uint) error
	IsWatchingPost(ctx context.Context, userID, postID uint) (dto.FollowStatusResponse, error)
	WatcherCount(ctx context.Context, postID uint) (dto.WatcherCountResponse, error)
}

type followService struct {
	store  repository.Store
	logger zerolog.Logger
}

// NewFollowService constructs the relationship service.
func NewFollowService(store repository.Store, logger zerolog.Logger) FollowService {
	return &followService{
		store:  store,
		logger: logger.With().Str("component", "follow_service").Logger(),
	}
}

func (s *followService) FollowUser(ctx context.Context, followerID uint, username string) error {
	err := s.store.Atomic(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Users.FindByID(ctx, followerID); err != nil {
			return notFound("user", followerID, err)
		}
		followed, err := repos.Users.FindByUsername(ctx, username)
		if err != nil {
			return notFoundByName(username, err)
		}

		exists, err := repos.Follows.FollowExists(ctx, followerID, followed.ID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyFollowing
		}
		return duplicateAs(repos.Follows.CreateFollow(ctx, followerID, followed.ID), ErrAlreadyFollowing)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Uint("follower_id", followerID).Str("username", username).Msg("user followed")
	return nil
}

func (s *followService) UnfollowUser(ctx context.Context, followerID uint, username string) error {
	return s.store.Atomic(ctx, func(repos repository.Repositories) error {
		followed, err := repos.Users.FindByUsername(ctx, username)
		if err != nil {
			return notFoundByName(username, err)
		}

		removed, err := repos.Follows.DeleteFollow(ctx, followerID, followed.ID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrNotFollowing
		}
		return nil
	})
}

func (s *followService) IsFollowingUser(ctx context.Context, followerID uint, username string) (dto.FollowStatusResponse, error) {
	repos := s.store.Repositories()
	followed, err := repos.Users.FindByUsername(ctx, username)
	if err != nil {
		return dto.FollowStatusResponse{}, notFoundByName(username, err)
	}

	exists, err := repos.Follows.FollowExists(ctx, followerID, followed.ID)
	if err != nil {
		return dto.FollowStatusResponse{}, err
	}
	return dto.FollowStatusResponse{Following: exists}, nil
}

func (s *followService) FollowCounts(ctx context.Context, username string) (dto.FollowCountsResponse, error) {
	repos := s.store.Repositories()
	user, err := repos.Users.FindByUsername(ctx, username)
	if err != nil {
		return dto.FollowCountsResponse{}, notFoundByName(username, err)
	}

	followers, err := repos.Follows.CountFollowers(ctx, user.ID)
	if err != nil {
		return dto.FollowCountsResponse{}, err
	}
	following, err := repos.Follows.CountFollowing(ctx, user.ID)
	if err != nil {
		return dto.FollowCountsResponse{}, err
	}

	return dto.FollowCountsResponse{Username: user.Username, Followers: followers, Following: following}, nil
}

func (s *followService) WatchPost(ctx context.Context, userID, postID uint) error {
	return s.store.Atomic(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Users.FindByID(ctx, userID); err != nil {
			return notFound("user", userID, err)
		}
		if _, err := repos.Posts.FindByID(ctx, postID); err != nil {
			return notFound("post", postID, err)
		}

		exists, err := repos.Follows.WatchExists(ctx, userID, postID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyWatching
		}
		return duplicateAs(repos.Follows.CreateWatch(ctx, userID, postID), ErrAlreadyWatching)
	})
}

func (s *followService) UnwatchPost(ctx context.Context, userID, postID uint) error {
	return s.store.Atomic(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Posts.FindByID(ctx, postID); err != nil {
			return notFound("post", postID, err)
		}

		removed, err := repos.Follows.DeleteWatch(ctx, userID, postID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrNotWatching
		}
		return nil
	})
}

func (s *followService) IsWatchingPost(ctx context.Context, userID, postID uint) (dto.FollowStatusResponse, error) {
	repos := s.store.Repositories()
	if _, err := repos.Posts.FindByID(ctx, postID); err != nil {
		return dto.FollowStatusResponse{}, notFound("post", postID, err)
	}

	exists, err := repos.Follows.WatchExists(ctx, userID, postID)
	if err != nil {
		return dto.FollowStatusResponse{}, err
	}
	return dto.FollowStatusResponse{Following: exists}, nil
}

func (s *followService) WatcherCount(ctx context.Context, postID uint) (dto.WatcherCountResponse, error) {
	repos := s.store.Repositories()
	if _, err := repos.Posts.FindByID(ctx, postID); err != nil {
		return dto.WatcherCountResponse{}, notFound("post", postID, err)
	}

	total, err := repos.Follows.CountWatchers(ctx, postID)
	if err != nil {
		return dto.WatcherCountResponse{}, err
	}
	return dto.WatcherCountResponse{PostID: postID, Watchers: total}, nil
}
