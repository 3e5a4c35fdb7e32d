package dto

import (
	"time"

	"github.com/google/uuid"
)

type NotificationResponse struct {
	Id        uuid.UUID      `json:"id"`
	TypeCode  string         `json:"type_code"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

type MarkNotificationReadRequest struct {
	NotificationId uuid.UUID `json:"notification_id" validate:"required"`
}
