// Package sse fans notifications out to users connected over Server-Sent Events.
package sse

import (
	"context"
	"sync"

	"travyy/internal/models"
)

const clientBuffer = 10

// Hub keeps the live notification streams for each user.
type Hub struct {
	mu      sync.RWMutex
	clients map[string][]chan models.Notification
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string][]chan models.Notification)}
}

// Subscribe registers a stream for userID. The channel is closed once ctx is done.
func (h *Hub) Subscribe(ctx context.Context, userID string) <-chan models.Notification {
	ch := make(chan models.Notification, clientBuffer)

	h.mu.Lock()
	h.clients[userID] = append(h.clients[userID], ch)
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(userID, ch)
	}()
	return ch
}

// Publish delivers n to every stream of its user. Slow clients miss events
// rather than block the caller.
func (h *Hub) Publish(n models.Notification) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, ch := range h.clients[n.UserID] {
		select {
		case ch <- n:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) remove(userID string, ch chan models.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[userID]
	for i, c := range clients {
		if c == ch {
			h.clients[userID] = append(clients[:i], clients[i+1:]...)
			close(ch)
			break
		}
	}
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// ClientCount returns the number of open streams for userID.
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
