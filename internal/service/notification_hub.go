package service

import (
	"sync"

	"github.com/mysteryforum/forum-api/internal/dto"
)

const notificationBufferSize = 16

// notificationHub tracks the live streams open on this node, keyed by recipient.
// A subscriber whose buffer is full misses the event; the row is still stored.
type notificationHub struct {
	mu      sync.RWMutex
	nextID  uint64
	streams map[uint]map[uint64]chan dto.NotificationResponse
}

func newNotificationHub() *notificationHub {
	return &notificationHub{streams: make(map[uint]map[uint64]chan dto.NotificationResponse)}
}

func (h *notificationHub) open(userID uint) (uint64, chan dto.NotificationResponse) {
	ch := make(chan dto.NotificationResponse, notificationBufferSize)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	if h.streams[userID] == nil {
		h.streams[userID] = make(map[uint64]chan dto.NotificationResponse)
	}
	h.streams[userID][h.nextID] = ch
	return h.nextID, ch
}

func (h *notificationHub) close(userID uint, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.streams[userID][id]
	if !ok {
		return
	}
	delete(h.streams[userID], id)
	if len(h.streams[userID]) == 0 {
		delete(h.streams, userID)
	}
	close(ch)
}

// send returns how many streams accepted the notification.
func (h *notificationHub) send(notification dto.NotificationResponse) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, ch := range h.streams[notification.UserID] {
		select {
		case ch <- notification:
			delivered++
		default:
		}
	}
	return delivered
}
