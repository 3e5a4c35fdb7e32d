package websocket

import (
	"testing"
	"time"

	"ai-lending-be/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quietLogger struct{}

func (quietLogger) Debug(module, message string, details map[string]interface{}) {}
func (quietLogger) Info(module, message string, details map[string]interface{})  {}
func (quietLogger) Warn(module, message string, details map[string]interface{})  {}
func (quietLogger) Error(module, message string, details map[string]interface{}) {}
func (quietLogger) Sync() error                                                  { return nil }

func (h *Hub) connectionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func note(title string) model.Notification {
	return model.Notification{
		ID:       uuid.New(),
		TypeCode: "LOAN_APPROVED",
		Title:    title,
		Message:  "test",
	}
}

func TestSendDropsStalledClientExactlyOnce(t *testing.T) {
	hub := NewHub(nil, quietLogger{})
	go hub.Run()

	userID := uuid.New()
	client := &Client{Hub: hub, UserID: userID, Send: make(chan []byte, 1)}
	hub.register <- client

	require.Eventually(t, func() bool {
		return hub.connectionCount(userID) == 1
	}, time.Second, 5*time.Millisecond)

	// First send fills the buffer, second finds it full and evicts the
	// client through Run. A second close of Send would panic here.
	hub.Send(userID, note("first"))
	hub.Send(userID, note("second"))

	require.Eventually(t, func() bool {
		return hub.connectionCount(userID) == 0
	}, time.Second, 5*time.Millisecond)

	<-client.Send
	_, open := <-client.Send
	assert.False(t, open)

	// The hub keeps serving after the eviction.
	hub.Send(userID, note("third"))
}

func TestBroadcastSurvivesMultipleStalledClients(t *testing.T) {
	hub := NewHub(nil, quietLogger{})
	go hub.Run()

	// Unbuffered Send channels with no reader: both clients stall.
	a := &Client{Hub: hub, UserID: uuid.New(), Send: make(chan []byte)}
	b := &Client{Hub: hub, UserID: uuid.New(), Send: make(chan []byte)}
	hub.register <- a
	hub.register <- b

	require.Eventually(t, func() bool {
		return hub.connectionCount(a.UserID) == 1 && hub.connectionCount(b.UserID) == 1
	}, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		hub.Broadcast(note("fanout"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast did not return with stalled clients")
	}

	require.Eventually(t, func() bool {
		return hub.connectionCount(a.UserID) == 0 && hub.connectionCount(b.UserID) == 0
	}, time.Second, 5*time.Millisecond)
}
