package contract

import (
	"context"

	"ai-lending-be/internal/entity"
	"ai-lending-be/internal/repository/specification"
)

type ConversationThreadRepository interface {
	Create(ctx context.Context, thread *entity.ConversationThread) error
	Update(ctx context.Context, thread *entity.ConversationThread) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ConversationThread, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ConversationThread, error)
}
