package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/service"
	"github.com/mysteryforum/forum-api/internal/utils"
)

// NotificationHandler lists notifications, marks them read and streams new ones.
type NotificationHandler struct {
	service   service.NotificationService
	logger    zerolog.Logger
	keepAlive time.Duration
}

const (
	defaultKeepAlive = 30 * time.Second
	minKeepAlive     = 2 * time.Second
)

// NewNotificationHandler builds the handler. keepAlive bounds how long an idle
// stream stays silent; pings go out at half that interval. Values below
// minKeepAlive are raised to it.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger, keepAlive time.Duration) *NotificationHandler {
	switch {
	case keepAlive <= 0:
		keepAlive = defaultKeepAlive
	case keepAlive < minKeepAlive:
		keepAlive = minKeepAlive
	}
	return &NotificationHandler{
		service:   service,
		logger:    logger.With().Str("component", "notification_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// RegisterDirect binds the direct notification routes and the live streams.
func (h *NotificationHandler) RegisterDirect(router fiber.Router) {
	router.Get("/", h.list(models.NotificationDirect))
	router.Get("/stream", h.stream)
	router.Use("/ws", requireUpgrade)
	router.Get("/ws", websocket.New(h.websocketStream))
	router.Put("/:id/read", h.markRead(models.NotificationDirect))
}

// RegisterFollower binds the follower notification routes.
func (h *NotificationHandler) RegisterFollower(router fiber.Router) {
	router.Get("/", h.list(models.NotificationFollower))
	router.Put("/:id/read", h.markRead(models.NotificationFollower))
}

func (h *NotificationHandler) list(kind models.NotificationKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := userIDFromContext(c)
		if userID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
		}

		limit, err := parseQueryInt(c, "limit")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
		}
		offset, err := parseQueryInt(c, "offset")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
		}

		notifications, err := h.service.List(withRequestContext(c), service.NotificationListRequest{
			UserID:     userID,
			Kind:       kind,
			UnreadOnly: c.Query("all") != "true",
			Limit:      limit,
			Offset:     offset,
		})
		if err != nil {
			return respondError(c, h.logger, err)
		}

		return utils.SendSuccess(c, "notifications", notifications)
	}
}

func (h *NotificationHandler) markRead(kind models.NotificationKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := userIDFromContext(c)
		if userID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
		}

		id, err := parseUintParamValue(c, "id")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid notification id")
		}

		notification, err := h.service.MarkRead(withRequestContext(c), id, userID, kind)
		if err != nil {
			return respondError(c, h.logger, err)
		}

		return utils.SendSuccess(c, "notification updated", notification)
	}
}
