package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/mysteryforum/forum-api/internal/dto"
	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/service"
	"github.com/mysteryforum/forum-api/internal/utils"
)

// CommentHandler serves comment creation, reply trees and comment votes.
type CommentHandler struct {
	comments service.CommentService
	votes    service.VoteService
	logger   zerolog.Logger
}

// NewCommentHandler constructs a comment handler.
func NewCommentHandler(comments service.CommentService, votes service.VoteService, logger zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		comments: comments,
		votes:    votes,
		logger:   logger.With().Str("component", "comment_handler").Logger(),
	}
}

// Register binds comment routes.
func (h *CommentHandler) Register(router fiber.Router) {
	router.Post("/", h.create)
	router.Get("/post/:postId", h.listByPost)
	router.Post("/upvote/:id", h.vote(models.VoteUp))
	router.Post("/downvote/:id", h.vote(models.VoteDown))
}

func (h *CommentHandler) create(c *fiber.Ctx) error {
	var payload dto.CommentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	comment, err := h.comments.Create(withRequestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "comment created", comment)
}

func (h *CommentHandler) listByPost(c *fiber.Ctx) error {
	postID, err := parseUintParamValue(c, "postId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	tree, err := h.comments.ListByPost(withRequestContext(c), postID, userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "comments retrieved", tree)
}

func (h *CommentHandler) vote(direction models.VoteDirection) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUintParamValue(c, "id")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}

		result, err := h.votes.Toggle(withRequestContext(c), models.SubjectComment, id, userIDFromContext(c), direction)
		if err != nil {
			return respondError(c, h.logger, err)
		}
		return utils.SendSuccess(c, "vote recorded", result)
	}
}
