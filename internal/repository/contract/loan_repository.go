package contract

import (
	"context"

	"ai-lending-be/internal/entity"
	"ai-lending-be/internal/repository/specification"
)

type LoanRepository interface {
	Create(ctx context.Context, loan *entity.Loan) error
	Update(ctx context.Context, loan *entity.Loan) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Loan, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Loan, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
