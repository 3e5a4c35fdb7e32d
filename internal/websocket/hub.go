package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-lending-be/internal/model"
	"ai-lending-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hub fans notifications out to connected clients. A user may hold several
// connections (multi-device); Redis relays messages to other instances.
type Hub struct {
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb *redis.Client

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
				}
			}
			h.mu.Unlock()
		}
	}
}

func envelope(notification model.Notification) []byte {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "notification",
		"data": notification,
	})
	return data
}

// Broadcast sends a notification to every connected client.
func (h *Hub) Broadcast(notification model.Notification) {
	data := envelope(notification)

	var stalled []*Client
	h.mu.RLock()
	for _, clients := range h.clients {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				stalled = append(stalled, client)
			}
		}
	}
	h.mu.RUnlock()
	h.drop(stalled)

	h.relay("*", data)
}

// Send delivers a notification to one user's connections on this instance
// and relays it for any connections held elsewhere.
func (h *Hub) Send(userID uuid.UUID, notification model.Notification) {
	data := envelope(notification)

	h.mu.RLock()
	clients, ok := h.clients[userID]
	h.mu.RUnlock()

	if ok {
		var stalled []*Client
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"user_id": userID})
				stalled = append(stalled, client)
			}
		}
		h.drop(stalled)
	}

	h.relay(userID.String(), data)
}

// drop hands stalled clients to Run, the sole owner of closing Send. Must be
// called without holding mu: Run takes the write lock to unregister.
func (h *Hub) drop(stalled []*Client) {
	for _, client := range stalled {
		h.unregister <- client
	}
}

func (h *Hub) relay(target string, data []byte) {
	if h.rdb == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"target_user_id": target,
		"message":        data,
	})
	h.rdb.Publish(context.Background(), "cluster_events", payload)
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "cluster_events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload struct {
			TargetUserID string          `json:"target_user_id"`
			Message      json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Unreadable cluster event", map[string]interface{}{"error": err.Error()})
			continue
		}

		var stalled []*Client
		h.mu.RLock()
		if payload.TargetUserID == "*" {
			for _, clients := range h.clients {
				stalled = append(stalled, h.deliver(clients, payload.Message)...)
			}
		} else if uid, err := uuid.Parse(payload.TargetUserID); err == nil {
			stalled = h.deliver(h.clients[uid], payload.Message)
		}
		h.mu.RUnlock()
		h.drop(stalled)
	}
}

// deliver pushes a relayed message and reports clients whose buffers are
// full; the caller unregisters them once the read lock is released.
func (h *Hub) deliver(clients []*Client, message []byte) []*Client {
	var stalled []*Client
	for _, client := range clients {
		select {
		case client.Send <- message:
		default:
			stalled = append(stalled, client)
		}
	}
	return stalled
}
