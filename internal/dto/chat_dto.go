package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

type SendChatResponseMessage struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type SendChatResponse struct {
	ThreadId uuid.UUID                `json:"thread_id"`
	Sent     *SendChatResponseMessage `json:"sent"`
	Reply    *SendChatResponseMessage `json:"reply"`
	Degraded bool                     `json:"degraded,omitempty"`
}

type GetThreadResponse struct {
	Id        uuid.UUID  `json:"id"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
