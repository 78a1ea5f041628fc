package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// notificationRelay carries serialized notifications between API nodes.
type notificationRelay interface {
	name() string
	publish(ctx context.Context, payload []byte) error
	// listen blocks until ctx ends or the transport fails.
	listen(ctx context.Context, handle func([]byte)) error
}

// buildRelays picks one cross-node transport. NATS wins when both are
// configured; subscribing to both would hand every event to the hub twice.
func buildRelays(channelBase string, redisClient *redis.Client, natsConn *nats.Conn) []notificationRelay {
	switch {
	case channelBase == "":
		return nil
	case natsConn != nil:
		subject := strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
		return []notificationRelay{&natsRelay{conn: natsConn, subject: subject}}
	case redisClient != nil:
		return []notificationRelay{&redisRelay{client: redisClient, channel: channelBase + ":notifications"}}
	default:
		return nil
	}
}

// recentEnvelopes remembers the last few relayed (origin, id) pairs so an
// event arriving twice reaches local streams once.
type recentEnvelopes struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
	next  int
}

func newRecentEnvelopes(size int) *recentEnvelopes {
	return &recentEnvelopes{seen: make(map[string]struct{}, size), order: make([]string, size)}
}

// firstSighting records key and reports whether it was new.
func (r *recentEnvelopes) firstSighting(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[key]; ok {
		return false
	}
	if evicted := r.order[r.next]; evicted != "" {
		delete(r.seen, evicted)
	}
	r.order[r.next] = key
	r.next = (r.next + 1) % len(r.order)
	r.seen[key] = struct{}{}
	return true
}

type redisRelay struct {
	client  *redis.Client
	channel string
}

func (r *redisRelay) name() string { return "redis" }

func (r *redisRelay) publish(ctx context.Context, payload []byte) error {
	return r.client.Publish(ctx, r.channel, payload).Err()
}

func (r *redisRelay) listen(ctx context.Context, handle func([]byte)) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer func() { _ = pubsub.Close() }()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return redis.ErrClosed
			}
			handle([]byte(msg.Payload))
		}
	}
}

// natsRelay uses a plain subscription so every node sees every event.
type natsRelay struct {
	conn    *nats.Conn
	subject string
}

func (r *natsRelay) name() string { return "nats" }

func (r *natsRelay) publish(_ context.Context, payload []byte) error {
	return r.conn.Publish(r.subject, payload)
}

func (r *natsRelay) listen(ctx context.Context, handle func([]byte)) error {
	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) {
		handle(msg.Data)
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return err
	}
	return nil
}

func runRelay(ctx context.Context, relay notificationRelay, handle func([]byte), logger zerolog.Logger) {
	if err := relay.listen(ctx, handle); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Str("relay", relay.name()).Msg("notification relay stopped")
	}
}
