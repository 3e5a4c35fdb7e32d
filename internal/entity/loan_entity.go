package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusActive    LoanStatus = "active"
	LoanStatusCompleted LoanStatus = "completed"
	LoanStatusRejected  LoanStatus = "rejected"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// validTransitions is the full loan lifecycle. Initial state is pending;
// rejected, completed and defaulted are terminal.
var validTransitions = map[LoanStatus][]LoanStatus{
	LoanStatusPending:  {LoanStatusApproved, LoanStatusRejected},
	LoanStatusApproved: {LoanStatusActive},
	LoanStatusActive:   {LoanStatusCompleted, LoanStatusDefaulted},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to LoanStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsOpen reports whether the status counts against the one-open-loan-per-user
// rule: an approved-but-undisbursed or active loan blocks new applications.
func (s LoanStatus) IsOpen() bool {
	return s == LoanStatusApproved || s == LoanStatusActive
}

type Loan struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	Amount         decimal.Decimal
	InterestRate   decimal.Decimal
	TenureDays     int
	InterestAmount decimal.Decimal
	TotalRepayment decimal.Decimal // computed once at creation, never recomputed
	Status         LoanStatus
	ApprovedBy     *uuid.UUID
	ApprovedAt     *time.Time
	DisbursedAt    *time.Time
	DueDate        time.Time
	AiDecision     string
	AiConfidence   *float64
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}
