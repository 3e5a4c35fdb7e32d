package entity

import (
	"time"

	"github.com/google/uuid"
)

// Message is one turn in a conversation thread. Append-only and immutable:
// creation order is conversational order.
type Message struct {
	Id        uuid.UUID
	ThreadId  uuid.UUID
	Role      string // user | assistant
	Content   string
	CreatedAt time.Time
}
