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

type CustomerProfileRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ProfileMapper
}

func NewCustomerProfileRepository(db *gorm.DB) contract.CustomerProfileRepository {
	return &CustomerProfileRepositoryImpl{
		db:     db,
		mapper: mapper.NewProfileMapper(),
	}
}

func (r *CustomerProfileRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CustomerProfileRepositoryImpl) Create(ctx context.Context, profile *entity.CustomerProfile) error {
	m := r.mapper.ProfileToModel(profile)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*profile = *r.mapper.ProfileToEntity(m)
	return nil
}

func (r *CustomerProfileRepositoryImpl) Update(ctx context.Context, profile *entity.CustomerProfile) error {
	m := r.mapper.ProfileToModel(profile)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*profile = *r.mapper.ProfileToEntity(m)
	return nil
}

func (r *CustomerProfileRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CustomerProfile, error) {
	var m model.CustomerProfile
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ProfileToEntity(&m), nil
}
