package model

import (
	"time"

	"github.com/google/uuid"
)

// Message rows are append-only: there is deliberately no UpdatedAt and no
// update path in the repository.
type Message struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ThreadId  uuid.UUID `gorm:"type:uuid;not null;index"`
	Role      string    `gorm:"type:varchar(20);not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Message) TableName() string {
	return "messages"
}
