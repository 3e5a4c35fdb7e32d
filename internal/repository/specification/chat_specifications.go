package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByThreadID struct {
	ThreadID uuid.UUID
}

func (s ByThreadID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("thread_id = ?", s.ThreadID)
}

// ActiveThreadByUser matches the single active thread a user may hold.
type ActiveThreadByUser struct {
	UserID uuid.UUID
}

func (s ActiveThreadByUser) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ? AND status = ?", s.UserID, "active")
}
