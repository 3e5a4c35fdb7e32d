package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Loan struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserId         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	InterestRate   decimal.Decimal `gorm:"type:decimal(8,4);not null"`
	TenureDays     int             `gorm:"not null"`
	InterestAmount decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalRepayment decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Status         string          `gorm:"type:varchar(20);not null;default:'pending';index"`
	ApprovedBy     *uuid.UUID      `gorm:"type:uuid"`
	ApprovedAt     *time.Time
	DisbursedAt    *time.Time
	DueDate        time.Time `gorm:"not null"`
	AiDecision     string    `gorm:"type:text"`
	AiConfidence   *float64
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Loan) TableName() string {
	return "loans"
}
