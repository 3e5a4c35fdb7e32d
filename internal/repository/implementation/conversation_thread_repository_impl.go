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

type ConversationThreadRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewConversationThreadRepository(db *gorm.DB) contract.ConversationThreadRepository {
	return &ConversationThreadRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ConversationThreadRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ConversationThreadRepositoryImpl) Create(ctx context.Context, thread *entity.ConversationThread) error {
	m := r.mapper.ThreadToModel(thread)
	// The partial unique index on (user_id) WHERE status = 'active' surfaces
	// as gorm.ErrDuplicatedKey; callers re-read the winning row.
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*thread = *r.mapper.ThreadToEntity(m)
	return nil
}

func (r *ConversationThreadRepositoryImpl) Update(ctx context.Context, thread *entity.ConversationThread) error {
	m := r.mapper.ThreadToModel(thread)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*thread = *r.mapper.ThreadToEntity(m)
	return nil
}

func (r *ConversationThreadRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ConversationThread, error) {
	var m model.ConversationThread
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ThreadToEntity(&m), nil
}

func (r *ConversationThreadRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ConversationThread, error) {
	var models []*model.ConversationThread
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ConversationThread, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ThreadToEntity(m)
	}
	return entities, nil
}
