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

type LoanRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.LoanMapper
}

func NewLoanRepository(db *gorm.DB) contract.LoanRepository {
	return &LoanRepositoryImpl{
		db:     db,
		mapper: mapper.NewLoanMapper(),
	}
}

func (r *LoanRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *LoanRepositoryImpl) Create(ctx context.Context, loan *entity.Loan) error {
	m := r.mapper.LoanToModel(loan)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*loan = *r.mapper.LoanToEntity(m)
	return nil
}

func (r *LoanRepositoryImpl) Update(ctx context.Context, loan *entity.Loan) error {
	m := r.mapper.LoanToModel(loan)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*loan = *r.mapper.LoanToEntity(m)
	return nil
}

func (r *LoanRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Loan, error) {
	var m model.Loan
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.LoanToEntity(&m), nil
}

func (r *LoanRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Loan, error) {
	var models []*model.Loan
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.LoansToEntities(models), nil
}

func (r *LoanRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Loan{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
