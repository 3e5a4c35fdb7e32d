package entity

import (
	"time"

	"github.com/google/uuid"
)

// ConversationThread pairs a user with an ongoing conversation context held
// by the reasoning capability. At most one thread per user is active; threads
// are closed, never deleted.
type ConversationThread struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	AgentThreadId string // opaque handle owned by the agent gateway
	Status        string // active | closed
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}
