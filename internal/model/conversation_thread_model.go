package model

import (
	"time"

	"github.com/google/uuid"
)

type ConversationThread struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_threads_user_active,where:status = 'active'"`
	AgentThreadId string    `gorm:"type:varchar(255);not null"`
	Status        string    `gorm:"type:varchar(20);not null;default:'active'"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (ConversationThread) TableName() string {
	return "conversation_threads"
}
