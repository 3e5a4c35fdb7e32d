package mapper

import (
	"time"

	"gorm.io/datatypes"

	"ai-lending-be/internal/entity"
	"ai-lending-be/internal/model"
)

type ProfileMapper struct{}

func NewProfileMapper() *ProfileMapper {
	return &ProfileMapper{}
}

func (m *ProfileMapper) ProfileToEntity(p *model.CustomerProfile) *entity.CustomerProfile {
	if p == nil {
		return nil
	}

	var updatedAt *time.Time
	if !p.UpdatedAt.IsZero() {
		u := p.UpdatedAt
		updatedAt = &u
	}

	return &entity.CustomerProfile{
		Id:                    p.Id,
		UserId:                p.UserId,
		BusinessName:          p.BusinessName,
		BusinessType:          p.BusinessType,
		BusinessLocation:      p.BusinessLocation,
		YearsInBusiness:       p.YearsInBusiness,
		MonthlyRevenue:        p.MonthlyRevenue,
		MonthlyExpenses:       p.MonthlyExpenses,
		OnboardingCompleted:   p.OnboardingCompleted,
		OnboardingCompletedAt: p.OnboardingCompletedAt,
		RawProfile:            []byte(p.RawProfile),
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             updatedAt,
	}
}

func (m *ProfileMapper) ProfileToModel(p *entity.CustomerProfile) *model.CustomerProfile {
	if p == nil {
		return nil
	}

	var updatedAt time.Time
	if p.UpdatedAt != nil {
		updatedAt = *p.UpdatedAt
	}

	return &model.CustomerProfile{
		Id:                    p.Id,
		UserId:                p.UserId,
		BusinessName:          p.BusinessName,
		BusinessType:          p.BusinessType,
		BusinessLocation:      p.BusinessLocation,
		YearsInBusiness:       p.YearsInBusiness,
		MonthlyRevenue:        p.MonthlyRevenue,
		MonthlyExpenses:       p.MonthlyExpenses,
		OnboardingCompleted:   p.OnboardingCompleted,
		OnboardingCompletedAt: p.OnboardingCompletedAt,
		RawProfile:            datatypes.JSON(p.RawProfile),
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             updatedAt,
	}
}
