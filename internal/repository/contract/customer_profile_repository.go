package contract

import (
	"context"

	"ai-lending-be/internal/entity"
	"ai-lending-be/internal/repository/specification"
)

type CustomerProfileRepository interface {
	Create(ctx context.Context, profile *entity.CustomerProfile) error
	Update(ctx context.Context, profile *entity.CustomerProfile) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CustomerProfile, error)
}
