package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/mysteryforum/forum-api/internal/dto"
	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/repository"
)

func TestNotificationDeliverReachesLocalSubscriber(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewNotificationService(repository.NewNotificationRepository(db), nil, "", nil, testLogger())

	stream, cancel := svc.Subscribe(5)
	defer cancel()
	other, cancelOther := svc.Subscribe(6)
	defer cancelOther()

	svc.Deliver(context.Background(), []models.Notification{{ID: 1, UserID: 5, Kind: models.NotificationDirect, Type: models.NotificationComment, Message: messageComment}})

	select {
	case got := <-stream:
		require.Equal(t, uint(1), got.ID)
		require.Equal(t, models.NotificationComment, got.Type)
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
	require.Empty(t, other)
}

func TestNotificationRelayAcrossNodesViaRedis(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	clientA := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer clientA.Close()
	clientB := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer clientB.Close()

	db := setupServiceDB(t)
	repo := repository.NewNotificationRepository(db)
	nodeA := NewNotificationService(repo, clientA, "forum:test", nil, testLogger())
	nodeB := NewNotificationService(repo, clientB, "forum:test", nil, testLogger())

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	nodeB.Start(ctx)

	stream, cancel := nodeB.Subscribe(9)
	defer cancel()

	notification := models.Notification{ID: 3, UserID: 9, Kind: models.NotificationFollower, Type: models.NotificationPostResolved, Message: messagePostResolved}
	var received dto.NotificationResponse
	require.Eventually(t, func() bool {
		nodeA.Deliver(ctx, []models.Notification{notification})
		select {
		case received = <-stream:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
	require.Equal(t, uint(3), received.ID)
	require.Equal(t, models.NotificationPostResolved, received.Type)
}

func TestNotificationListAndMarkReadByKind(t *testing.T) {
	db := setupServiceDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	stranger := createUser(t, db, "stranger", models.RoleUser)
	direct := models.Notification{UserID: owner.ID, Kind: models.NotificationDirect, Type: models.NotificationComment, Message: messageComment}
	follower := models.Notification{UserID: owner.ID, Kind: models.NotificationFollower, Type: models.NotificationPostCommented, Message: "someone commented on a post you follow!"}
	require.NoError(t, db.Create(&direct).Error)
	require.NoError(t, db.Create(&follower).Error)
	svc := NewNotificationService(repository.NewNotificationRepository(db), nil, "", nil, testLogger())
	ctx := context.Background()

	items, err := svc.List(ctx, NotificationListRequest{UserID: owner.ID, Kind: models.NotificationFollower, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, follower.ID, items[0].ID)

	_, err = svc.MarkRead(ctx, follower.ID, owner.ID, models.NotificationDirect)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.MarkRead(ctx, follower.ID, stranger.ID, models.NotificationFollower)
	require.ErrorIs(t, err, ErrNotFound)

	read, err := svc.MarkRead(ctx, follower.ID, owner.ID, models.NotificationFollower)
	require.NoError(t, err)
	require.True(t, read.Read)

	items, err = svc.List(ctx, NotificationListRequest{UserID: owner.ID, Kind: models.NotificationFollower, UnreadOnly: true})
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestNotificationHubDropsWhenBufferFull(t *testing.T) {
	hub := newNotificationHub()
	id, ch := hub.open(4)

	for i := 0; i < notificationBufferSize; i++ {
		require.Equal(t, 1, hub.send(dto.NotificationResponse{ID: uint(i + 1), UserID: 4}))
	}
	require.Zero(t, hub.send(dto.NotificationResponse{ID: 99, UserID: 4}))
	require.Zero(t, hub.send(dto.NotificationResponse{ID: 100, UserID: 5}))

	hub.close(4, id)
	hub.close(4, id)
	require.Len(t, ch, notificationBufferSize)
	require.Empty(t, hub.streams)
}

func TestNotificationReceiveIgnoresOwnEcho(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewNotificationService(repository.NewNotificationRepository(db), nil, "", nil, testLogger()).(*notificationService)
	stream, cancel := svc.Subscribe(3)
	defer cancel()

	svc.receive([]byte(`{"origin":"` + svc.nodeID + `","notification":{"id":1,"user_id":3}}`))
	svc.receive([]byte(`not json`))
	require.Empty(t, stream)

	svc.receive([]byte(`{"origin":"elsewhere","notification":{"id":2,"user_id":3}}`))
	got := <-stream
	require.Equal(t, uint(2), got.ID)
}

func TestBuildRelaysPicksOneTransport(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()
	conn := &nats.Conn{}

	cases := []struct {
		name  string
		base  string
		redis *redis.Client
		nats  *nats.Conn
		want  []string
	}{
		{name: "both prefers nats", base: "forum", redis: client, nats: conn, want: []string{"nats"}},
		{name: "redis only", base: "forum", redis: client, want: []string{"redis"}},
		{name: "nats only", base: "forum", nats: conn, want: []string{"nats"}},
		{name: "no channel", redis: client, nats: conn},
		{name: "nothing configured", base: "forum"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			for _, relay := range buildRelays(tc.base, tc.redis, tc.nats) {
				got = append(got, relay.name())
			}
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNotificationArrivingOnTwoTransportsIsDeliveredOnce(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	clientA := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer clientA.Close()
	clientB := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer clientB.Close()

	transports := func(client *redis.Client) []notificationRelay {
		return []notificationRelay{
			&redisRelay{client: client, channel: "forum:test:primary"},
			&redisRelay{client: client, channel: "forum:test:secondary"},
		}
	}

	db := setupServiceDB(t)
	repo := repository.NewNotificationRepository(db)
	nodeA := NewNotificationService(repo, nil, "", nil, testLogger()).(*notificationService)
	nodeB := NewNotificationService(repo, nil, "", nil, testLogger()).(*notificationService)
	nodeA.relays = transports(clientA)
	nodeB.relays = transports(clientB)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	nodeB.Start(ctx)
	require.Eventually(t, func() bool {
		subs := server.PubSubNumSub("forum:test:primary", "forum:test:secondary")
		return subs["forum:test:primary"] == 1 && subs["forum:test:secondary"] == 1
	}, 3*time.Second, 10*time.Millisecond)

	stream, cancel := nodeB.Subscribe(7)
	defer cancel()

	nodeA.Deliver(ctx, []models.Notification{{ID: 2, UserID: 7, Kind: models.NotificationDirect, Type: models.NotificationComment, Message: messageComment}})

	received := 0
	timeout := time.After(500 * time.Millisecond)
collect:
	for {
		select {
		case <-stream:
			received++
		case <-timeout:
			break collect
		}
	}
	require.Equal(t, 1, received)
}

func TestRecentEnvelopesEvictsOldest(t *testing.T) {
	recent := newRecentEnvelopes(2)
	require.True(t, recent.firstSighting("a/1"))
	require.False(t, recent.firstSighting("a/1"))
	require.True(t, recent.firstSighting("a/2"))
	require.True(t, recent.firstSighting("b/1"))
	require.True(t, recent.firstSighting("a/1"))
	require.False(t, recent.firstSighting("b/1"))
}
