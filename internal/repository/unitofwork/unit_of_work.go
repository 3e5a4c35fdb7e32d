package unitofwork

import (
	"context"

	"ai-lending-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ConversationThreadRepository() contract.ConversationThreadRepository
	MessageRepository() contract.MessageRepository
	LoanRepository() contract.LoanRepository
	TransactionRepository() contract.TransactionRepository
	CustomerProfileRepository() contract.CustomerProfileRepository
	NotificationRepository() contract.NotificationRepository
}
