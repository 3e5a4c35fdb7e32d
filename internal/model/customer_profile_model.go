package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type CustomerProfile struct {
	Id                    uuid.UUID        `gorm:"type:uuid;primaryKey"`
	UserId                uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex"`
	BusinessName          string           `gorm:"type:varchar(255);not null"`
	BusinessType          string           `gorm:"type:varchar(100)"`
	BusinessLocation      string           `gorm:"type:varchar(255)"`
	YearsInBusiness       *float64         `gorm:"type:decimal(6,2)"`
	MonthlyRevenue        *decimal.Decimal `gorm:"type:decimal(18,2)"`
	MonthlyExpenses       *decimal.Decimal `gorm:"type:decimal(18,2)"`
	OnboardingCompleted   bool             `gorm:"not null;default:false"`
	OnboardingCompletedAt *time.Time
	// RawProfile keeps the exact payload the agent produced, for audit.
	RawProfile datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

func (CustomerProfile) TableName() string {
	return "customer_profiles"
}
