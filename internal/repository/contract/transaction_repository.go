package contract

import (
	"context"

	"ai-lending-be/internal/entity"
	"ai-lending-be/internal/repository/specification"
)

// TransactionRepository is append-only; ledger rows are never updated or
// deleted.
type TransactionRepository interface {
	Create(ctx context.Context, transaction *entity.Transaction) error
	FindLast(ctx context.Context, specs ...specification.Specification) (*entity.Transaction, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Transaction, error)
}
