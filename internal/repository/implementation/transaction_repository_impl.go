package implementation

import (
	"context"
	"errors"

	"ai-lending-be/internal/entity"
	"ai-lending-be/internal/mapper"
	"ai-lending-be/internal/model"
	"ai-lending-be/internal/repository/contract"
	"ai-lending-be/internal/repository/specification"

	"gorm.io/gorm"
)

type TransactionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.LoanMapper
}

func NewTransactionRepository(db *gorm.DB) contract.TransactionRepository {
	return &TransactionRepositoryImpl{
		db:     db,
		mapper: mapper.NewLoanMapper(),
	}
}

func (r *TransactionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *TransactionRepositoryImpl) Create(ctx context.Context, transaction *entity.Transaction) error {
	m := r.mapper.TransactionToModel(transaction)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*transaction = *r.mapper.TransactionToEntity(m)
	return nil
}

// FindLast returns the newest matching row, or nil when none exist.
func (r *TransactionRepositoryImpl) FindLast(ctx context.Context, specs ...specification.Specification) (*entity.Transaction, error) {
	var m model.Transaction
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Order("created_at DESC").First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.TransactionToEntity(&m), nil
}

func (r *TransactionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Transaction, error) {
	var models []*model.Transaction
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.TransactionsToEntities(models), nil
}
