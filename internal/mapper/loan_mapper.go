package mapper

import (
	"time"

	"ai-lending-be/internal/entity"
	"ai-lending-be/internal/model"
)

type LoanMapper struct{}

func NewLoanMapper() *LoanMapper {
	return &LoanMapper{}
}

func (m *LoanMapper) LoanToEntity(l *model.Loan) *entity.Loan {
	if l == nil {
		return nil
	}

	var updatedAt *time.Time
	if !l.UpdatedAt.IsZero() {
		u := l.UpdatedAt
		updatedAt = &u
	}

	return &entity.Loan{
		Id:             l.Id,
		UserId:         l.UserId,
		Amount:         l.Amount,
		InterestRate:   l.InterestRate,
		TenureDays:     l.TenureDays,
		InterestAmount: l.InterestAmount,
		TotalRepayment: l.TotalRepayment,
		Status:         entity.LoanStatus(l.Status),
		ApprovedBy:     l.ApprovedBy,
		ApprovedAt:     l.ApprovedAt,
		DisbursedAt:    l.DisbursedAt,
		DueDate:        l.DueDate,
		AiDecision:     l.AiDecision,
		AiConfidence:   l.AiConfidence,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *LoanMapper) LoanToModel(l *entity.Loan) *model.Loan {
	if l == nil {
		return nil
	}

	var updatedAt time.Time
	if l.UpdatedAt != nil {
		updatedAt = *l.UpdatedAt
	}

	return &model.Loan{
		Id:             l.Id,
		UserId:         l.UserId,
		Amount:         l.Amount,
		InterestRate:   l.InterestRate,
		TenureDays:     l.TenureDays,
		InterestAmount: l.InterestAmount,
		TotalRepayment: l.TotalRepayment,
		Status:         string(l.Status),
		ApprovedBy:     l.ApprovedBy,
		ApprovedAt:     l.ApprovedAt,
		DisbursedAt:    l.DisbursedAt,
		DueDate:        l.DueDate,
		AiDecision:     l.AiDecision,
		AiConfidence:   l.AiConfidence,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *LoanMapper) LoansToEntities(models []*model.Loan) []*entity.Loan {
	entities := make([]*entity.Loan, len(models))
	for i, l := range models {
		entities[i] = m.LoanToEntity(l)
	}
	return entities
}

func (m *LoanMapper) TransactionToEntity(t *model.Transaction) *entity.Transaction {
	if t == nil {
		return nil
	}
	return &entity.Transaction{
		Id:           t.Id,
		LoanId:       t.LoanId,
		UserId:       t.UserId,
		Type:         entity.TransactionType(t.Type),
		Amount:       t.Amount,
		BalanceAfter: t.BalanceAfter,
		Notes:        t.Notes,
		CreatedAt:    t.CreatedAt,
	}
}

func (m *LoanMapper) TransactionToModel(t *entity.Transaction) *model.Transaction {
	if t == nil {
		return nil
	}
	return &model.Transaction{
		Id:           t.Id,
		LoanId:       t.LoanId,
		UserId:       t.UserId,
		Type:         string(t.Type),
		Amount:       t.Amount,
		BalanceAfter: t.BalanceAfter,
		Notes:        t.Notes,
		CreatedAt:    t.CreatedAt,
	}
}

func (m *LoanMapper) TransactionsToEntities(models []*model.Transaction) []*entity.Transaction {
	entities := make([]*entity.Transaction, len(models))
	for i, t := range models {
		entities[i] = m.TransactionToEntity(t)
	}
	return entities
}
