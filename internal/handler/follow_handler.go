package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/mysteryforum/forum-api/internal/service"
	"github.com/mysteryforum/forum-api/internal/utils"
)

// FollowHandler serves user follow edges and post watch edges.
type FollowHandler struct {
	follows service.FollowService
	logger  zerolog.Logger
}

// NewFollowHandler constructs a follow handler.
func NewFollowHandler(follows service.FollowService, logger zerolog.Logger) *FollowHandler {
	return &FollowHandler{
		follows: follows,
		logger:  logger.With().Str("component", "follow_handler").Logger(),
	}
}

// RegisterUsers binds /follow and /unfollow under router.
func (h *FollowHandler) RegisterUsers(router fiber.Router) {
	router.Post("/follow/:username", h.followUser)
	router.Post("/unfollow/:username", h.unfollowUser)
	router.Get("/follow/:username/status", h.followStatus)
	router.Get("/follow/:username/counts", h.followCounts)
}

// RegisterPosts binds watch routes, conventionally under /followed-posts.
func (h *FollowHandler) RegisterPosts(router fiber.Router) {
	router.Post("/follow/:postId", h.watchPost)
	router.Post("/unfollow/:postId", h.unwatchPost)
	router.Get("/:postId/status", h.watchStatus)
	router.Get("/:postId/count", h.watcherCount)
}

func usernameParam(c *fiber.Ctx) (string, bool) {
	username := strings.TrimSpace(c.Params("username"))
	return username, username != ""
}

func (h *FollowHandler) followUser(c *fiber.Ctx) error {
	username, ok := usernameParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "username required")
	}
	if err := h.follows.FollowUser(withRequestContext(c), userIDFromContext(c), username); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user followed", nil)
}

func (h *FollowHandler) unfollowUser(c *fiber.Ctx) error {
	username, ok := usernameParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "username required")
	}
	if err := h.follows.UnfollowUser(withRequestContext(c), userIDFromContext(c), username); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "user unfollowed", nil)
}

func (h *FollowHandler) followStatus(c *fiber.Ctx) error {
	username, ok := usernameParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "username required")
	}
	status, err := h.follows.IsFollowingUser(withRequestContext(c), userIDFromContext(c), username)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "follow status", status)
}

func (h *FollowHandler) followCounts(c *fiber.Ctx) error {
	username, ok := usernameParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "username required")
	}
	counts, err := h.follows.FollowCounts(withRequestContext(c), username)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "follow counts", counts)
}

func (h *FollowHandler) watchPost(c *fiber.Ctx) error {
	postID, err := parseUintParamValue(c, "postId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.follows.WatchPost(withRequestContext(c), userIDFromContext(c), postID); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "post followed", nil)
}

func (h *FollowHandler) unwatchPost(c *fiber.Ctx) error {
	postID, err := parseUintParamValue(c, "postId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.follows.UnwatchPost(withRequestContext(c), userIDFromContext(c), postID); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "post unfollowed", nil)
}

func (h *FollowHandler) watchStatus(c *fiber.Ctx) error {
	postID, err := parseUintParamValue(c, "postId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	status, err := h.follows.IsWatchingPost(withRequestContext(c), userIDFromContext(c), postID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "follow status", status)
}

func (h *FollowHandler) watcherCount(c *fiber.Ctx) error {
	postID, err := parseUintParamValue(c, "postId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	count, err := h.follows.WatcherCount(withRequestContext(c), postID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "watcher count", count)
}
