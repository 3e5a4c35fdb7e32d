package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CalculateOfferRequest struct {
	Amount       decimal.Decimal  `json:"amount" validate:"required"`
	InterestRate *decimal.Decimal `json:"interest_rate,omitempty"`
	TenureDays   *int             `json:"tenure_days,omitempty" validate:"omitempty,gt=0"`
}

type OfferResponse struct {
	Amount         decimal.Decimal `json:"amount"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	TenureDays     int             `json:"tenure_days"`
	InterestAmount decimal.Decimal `json:"interest_amount"`
	TotalRepayment decimal.Decimal `json:"total_repayment"`
	DailyInterest  decimal.Decimal `json:"daily_interest"`
	DueDate        time.Time       `json:"due_date"`
}

type CreateLoanRequest struct {
	Amount       decimal.Decimal  `json:"amount" validate:"required"`
	InterestRate *decimal.Decimal `json:"interest_rate,omitempty"`
	TenureDays   *int             `json:"tenure_days,omitempty" validate:"omitempty,gt=0"`
}

type AcceptLoanRequest struct {
	Accepted *bool `json:"accepted" validate:"required"`
}

type UpdateLoanStatusRequest struct {
	Status     string   `json:"status" validate:"required,oneof=pending approved active completed rejected defaulted"`
	Decision   string   `json:"decision,omitempty"`
	Confidence *float64 `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
}

type RecordRepaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Notes  string          `json:"notes,omitempty" validate:"max=500"`
}

type RecordAdjustmentRequest struct {
	Type   string          `json:"type" validate:"required,oneof=fee penalty refund"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Notes  string          `json:"notes,omitempty" validate:"max=500"`
}

type LoanResponse struct {
	Id             uuid.UUID       `json:"id"`
	UserId         uuid.UUID       `json:"user_id"`
	Amount         decimal.Decimal `json:"amount"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	TenureDays     int             `json:"tenure_days"`
	InterestAmount decimal.Decimal `json:"interest_amount"`
	TotalRepayment decimal.Decimal `json:"total_repayment"`
	Status         string          `json:"status"`
	ApprovedBy     *uuid.UUID      `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time      `json:"approved_at,omitempty"`
	DisbursedAt    *time.Time      `json:"disbursed_at,omitempty"`
	DueDate        time.Time       `json:"due_date"`
	AiDecision     string          `json:"ai_decision,omitempty"`
	AiConfidence   *float64        `json:"ai_confidence,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
}
