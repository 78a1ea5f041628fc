package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/mysteryforum/forum-api/internal/dto"
	"github.com/mysteryforum/forum-api/internal/utils"
)

const (
	requestContextLocal = "request_ctx"
	wsWriteTimeout      = 5 * time.Second
)

// pump forwards notifications from stream to send and calls ping while idle.
// It returns when the stream closes, ctx ends or a write fails.
func pump(ctx context.Context, stream <-chan dto.NotificationResponse, interval time.Duration, send func(dto.NotificationResponse) error, ping func() error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case notification, ok := <-stream:
			if !ok {
				return nil
			}
			if err := send(notification); err != nil {
				return err
			}
		case <-ticker.C:
			if err := ping(); err != nil {
				return err
			}
		}
	}
}

// stream serves Server-Sent Events. Each event carries the notification id so
// clients can dedupe after reconnecting.
func (h *NotificationHandler) stream(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithCancel(withRequestContext(c))
	notifications, unsubscribe := h.service.Subscribe(userID)
	logger := requestLogger(h.logger, c)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer unsubscribe()

		err := pump(ctx, notifications, h.keepAlive/2,
			func(n dto.NotificationResponse) error { return writeSSEEvent(w, n) },
			func() error { return writeSSEComment(w, "keep-alive") },
		)
		if err != nil {
			logger.Debug().Err(err).Uint("user_id", userID).Msg("notification stream closed")
		}
	})
	return nil
}

func requireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(requestContextLocal, withRequestContext(c))
	return c.Next()
}

func (h *NotificationHandler) websocketStream(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	userID, _ := conn.Locals("user_id").(uint)
	if userID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "user id missing"))
		return
	}

	parent, ok := conn.Locals(requestContextLocal).(context.Context)
	if !ok {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	notifications, unsubscribe := h.service.Subscribe(userID)
	defer unsubscribe()

	// Inbound frames are ignored; a read error means the peer is gone.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger := h.logger.With().Uint("user_id", userID).Logger()
	logger.Info().Msg("notification websocket connected")

	err := pump(ctx, notifications, h.keepAlive/2,
		func(n dto.NotificationResponse) error {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			return conn.WriteJSON(n)
		},
		func() error {
			return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
		},
	)
	logger.Info().AnErr("cause", err).Msg("notification websocket disconnected")
}

func writeSSEEvent(w *bufio.Writer, notification dto.NotificationResponse) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: notification\ndata: %s\n\n", notification.ID, payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeSSEComment(w *bufio.Writer, text string) error {
	if _, err := fmt.Fprintf(w, ": %s %s\n\n", text, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
