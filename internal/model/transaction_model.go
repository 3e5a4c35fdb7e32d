package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction rows form an append-only ledger; no update or delete path
// exists in the repository.
type Transaction struct {
	Id           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	LoanId       uuid.UUID       `gorm:"type:uuid;not null;index"`
	UserId       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type         string          `gorm:"type:varchar(20);not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	BalanceAfter decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Notes        string          `gorm:"type:text"`
	CreatedAt    time.Time       `gorm:"autoCreateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}
