package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mysteryforum/forum-api/internal/dto"
	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/observability"
	"github.com/mysteryforum/forum-api/internal/repository"
)

// NotificationDeliverer pushes committed notifications to live subscribers.
type NotificationDeliverer interface {
	Deliver(ctx context.Context, notifications []models.Notification)
}

// NotificationListRequest filters a recipient's notifications.
type NotificationListRequest struct {
	UserID     uint
	Kind       models.NotificationKind
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationService reads notifications and streams new ones to connected users.
type NotificationService interface {
	NotificationDeliverer
	List(ctx context.Context, req NotificationListRequest) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, id, userID uint, kind models.NotificationKind) (dto.NotificationResponse, error)
	Subscribe(userID uint) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

// relayEnvelope is the cross-node wire format.
type relayEnvelope struct {
	Origin       string                   `json:"origin"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

const recentEnvelopeWindow = 512

type notificationService struct {
	repo   repository.NotificationRepository
	hub    *notificationHub
	relays []notificationRelay
	recent *recentEnvelopes
	nodeID string
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewNotificationService builds the notification service. When channelBase is
// set, events are relayed to other nodes over NATS, or Redis if NATS is nil.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) NotificationService {
	return &notificationService{
		repo:   repo,
		hub:    newNotificationHub(),
		relays: buildRelays(channelBase, redisClient, natsConn),
		recent: newRecentEnvelopes(recentEnvelopeWindow),
		nodeID: uuid.NewString(),
		logger: logger.With().Str("component", "notification_service").Logger(),
		tracer: otel.Tracer("github.com/mysteryforum/forum-api/internal/service/notification"),
	}
}

func (s *notificationService) Start(ctx context.Context) {
	for _, relay := range s.relays {
		go runRelay(ctx, relay, s.receive, s.logger)
	}
}

// Deliver must run after the transaction that stored the rows has committed.
func (s *notificationService) Deliver(ctx context.Context, notifications []models.Notification) {
	for _, notification := range notifications {
		response := dto.NewNotificationResponse(notification)
		s.hub.send(response)
		observability.NotificationsPublishedTotal().WithLabelValues(string(response.Type)).Inc()

		if err := s.relay(ctx, response); err != nil {
			s.logger.Warn().Err(err).Uint("notification_id", response.ID).Msg("notification relay failed")
		}
	}
}

func (s *notificationService) List(ctx context.Context, req NotificationListRequest) ([]dto.NotificationResponse, error) {
	if req.UserID == 0 {
		return nil, invalidArgument("user id is required")
	}

	rows, err := s.repo.ListByUser(ctx, repository.NotificationFilter{
		UserID:     req.UserID,
		Kind:       req.Kind,
		UnreadOnly: req.UnreadOnly,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
	if err != nil {
		return nil, err
	}
	return dto.NewNotificationResponseSlice(rows), nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uint, kind models.NotificationKind) (dto.NotificationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.Int64("notification.id", int64(id)),
		attribute.Int64("notification.user_id", int64(userID)),
		attribute.String("notification.kind", string(kind)),
	))
	defer span.End()

	row, err := s.repo.MarkRead(spanCtx, id, userID, kind)
	if err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, notFound("notification", id, err)
	}
	return dto.NewNotificationResponse(row), nil
}

// Subscribe opens a live stream for userID. The returned cancel func is idempotent.
func (s *notificationService) Subscribe(userID uint) (<-chan dto.NotificationResponse, func()) {
	id, ch := s.hub.open(userID)
	observability.SSEClientsActive().Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.hub.close(userID, id)
			observability.SSEClientsActive().Dec()
		})
	}
}

func (s *notificationService) relay(ctx context.Context, notification dto.NotificationResponse) error {
	if len(s.relays) == 0 {
		return nil
	}

	payload, err := json.Marshal(relayEnvelope{
		Origin:       s.nodeID,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	var errs []error
	for _, relay := range s.relays {
		if err := relay.publish(ctx, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// receive handles an envelope from another node. Echoes of our own events and
// repeats of an envelope already seen are dropped.
func (s *notificationService) receive(payload []byte) {
	var envelope relayEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("discarding malformed relay envelope")
		return
	}
	if envelope.Origin == s.nodeID {
		return
	}
	if !s.recent.firstSighting(envelope.Origin + "/" + strconv.FormatUint(uint64(envelope.Notification.ID), 10)) {
		return
	}

	observability.NotificationsPublishedTotal().WithLabelValues(string(envelope.Notification.Type)).Inc()
	s.hub.send(envelope.Notification)
}
