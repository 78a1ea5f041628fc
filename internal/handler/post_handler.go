package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/mysteryforum/forum-api/internal/dto"
	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/service"
	"github.com/mysteryforum/forum-api/internal/utils"
)

// PostHandler serves post creation, details, votes and resolution.
type PostHandler struct {
	posts       service.PostService
	votes       service.VoteService
	resolutions service.ResolutionService
	logger      zerolog.Logger
}

// NewPostHandler constructs a post handler.
func NewPostHandler(posts service.PostService, votes service.VoteService, resolutions service.ResolutionService, logger zerolog.Logger) *PostHandler {
	return &PostHandler{
		posts:       posts,
		votes:       votes,
		resolutions: resolutions,
		logger:      logger.With().Str("component", "post_handler").Logger(),
	}
}

// Register binds post routes.
func (h *PostHandler) Register(router fiber.Router) {
	router.Post("/", h.create)
	router.Post("/upvote/:id", h.vote(models.VoteUp))
	router.Post("/downvote/:id", h.vote(models.VoteDown))
	router.Get("/:id", h.get)
	router.Put("/:id/resolve", h.resolve)
	router.Put("/:id/unresolve", h.unresolve)
}

func (h *PostHandler) create(c *fiber.Ctx) error {
	var payload dto.PostCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	post, err := h.posts.Create(withRequestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "post created", post)
}

func (h *PostHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParamValue(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	post, err := h.posts.Get(withRequestContext(c), id, userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "post retrieved", post)
}

func (h *PostHandler) vote(direction models.VoteDirection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUintParamValue(c, "id")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}

		result, err := h.votes.Toggle(withRequestContext(c), models.SubjectPost, id, userIDFromContext(c), direction)
		if err != nil {
			return respondError(c, h.logger, err)
		}
		return utils.SendSuccess(c, "vote recorded", result)
	}
}

func (h *PostHandler) resolve(c *fiber.Ctx) error {
	id, err := parseUintParamValue(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ResolvePostRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.resolutions.Resolve(withRequestContext(c), id, userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "post resolved", result)
}

func (h *PostHandler) unresolve(c *fiber.Ctx) error {
	id, err := parseUintParamValue(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.resolutions.Unresolve(withRequestContext(c), id, userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "post unresolved", result)
}
