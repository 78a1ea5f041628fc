package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/repository"
)

// RoleService changes account roles from operator tooling.
type RoleService interface {
	SetRole(ctx context.Context, username, role string) (models.User, error)
}

type roleService struct {
	store    repository.Store
	activity ActivityService
	logger   zerolog.Logger
}

// NewRoleService constructs the role administration service.
func NewRoleService(store repository.Store, activity ActivityService, logger zerolog.Logger) RoleService {
	return &roleService{
		store:    store,
		activity: activity,
		logger:   logger.With().Str("component", "role_service").Logger(),
	}
}

func (s *roleService) SetRole(ctx context.Context, username, role string) (models.User, error) {
	target, ok := models.ParseUserRole(role)
	if !ok {
		return models.User{}, invalidArgument(fmt.Sprintf("unknown role %q", role))
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return models.User{}, invalidArgument("username is required")
	}

	var (
		user     models.User
		previous models.UserRole
	)
	err := s.store.Atomic(ctx, func(repos repository.Repositories) error {
		found, err := repos.Users.FindByUsername(ctx, username)
		if err != nil {
			return notFoundByName(username, err)
		}
		previous = found.Role
		if previous == target {
			user = found
			return nil
		}
		if err := repos.Users.UpdateRole(ctx, found.ID, target); err != nil {
			return err
		}
		found.Role = target
		user = found
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	if previous == target {
		return user, nil
	}

	userID := user.ID
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorRole:  "operator",
		Action:     "user.role_changed",
		EntityType: models.EntityUser,
		EntityID:   &userID,
		Metadata: map[string]interface{}{
			"from": string(previous),
			"to":   string(target),
		},
	}); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("role changed but audit entry was not written")
	}

	s.logger.Info().Uint("user_id", userID).Str("from", string(previous)).Str("to", string(target)).Msg("user role updated")
	return user, nil
}
