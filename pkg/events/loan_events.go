package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeLoanCreated         = "LOAN_CREATED"
	TypeLoanApproved        = "LOAN_APPROVED"
	TypeLoanActivated       = "LOAN_ACTIVATED"
	TypeLoanCompleted       = "LOAN_COMPLETED"
	TypeLoanRejected        = "LOAN_REJECTED"
	TypeLoanDefaulted       = "LOAN_DEFAULTED"
	TypeRepaymentRecorded   = "REPAYMENT_RECORDED"
	TypeOnboardingCompleted = "ONBOARDING_COMPLETED"
)

// NewLoanEvent builds a status-change event for a loan.
func NewLoanEvent(eventType string, loanID, userID uuid.UUID, amount decimal.Decimal) Event {
	return BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"loan_id": loanID.String(),
			"user_id": userID.String(),
			"amount":  amount.String(),
		},
		OccurredAt: time.Now().UTC(),
	}
}

// NewRepaymentEvent carries the remaining balance so consumers can tell
// a partial payment from a payoff.
func NewRepaymentEvent(loanID, userID uuid.UUID, amount, balance decimal.Decimal) Event {
	return BaseEvent{
		Type: TypeRepaymentRecorded,
		Data: map[string]interface{}{
			"loan_id": loanID.String(),
			"user_id": userID.String(),
			"amount":  amount.String(),
			"balance": balance.String(),
		},
		OccurredAt: time.Now().UTC(),
	}
}

func NewOnboardingCompletedEvent(userID uuid.UUID, businessName string) Event {
	return BaseEvent{
		Type: TypeOnboardingCompleted,
		Data: map[string]interface{}{
			"user_id":       userID.String(),
			"business_name": businessName,
		},
		OccurredAt: time.Now().UTC(),
	}
}
