package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDisbursement TransactionType = "disbursement"
	TransactionTypeRepayment    TransactionType = "repayment"
	TransactionTypeFee          TransactionType = "fee"
	TransactionTypePenalty      TransactionType = "penalty"
	TransactionTypeRefund       TransactionType = "refund"
)

// Sign returns the direction of a transaction type on the owed balance:
// disbursements, fees and penalties increase what the customer owes,
// repayments and refunds decrease it.
func (t TransactionType) Sign() decimal.Decimal {
	switch t {
	case TransactionTypeRepayment, TransactionTypeRefund:
		return decimal.NewFromInt(-1)
	default:
		return decimal.NewFromInt(1)
	}
}

// Transaction is one entry in a loan's append-only ledger. BalanceAfter is
// the running signed sum of amounts for the loan in creation order.
type Transaction struct {
	Id           uuid.UUID
	LoanId       uuid.UUID
	UserId       uuid.UUID
	Type         TransactionType
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	Notes        string
	CreatedAt    time.Time
}
