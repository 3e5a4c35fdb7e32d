package mapper

import (
	"time"

	"ai-lending-be/internal/entity"
	"ai-lending-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Thread mappers

func (m *ChatMapper) ThreadToEntity(t *model.ConversationThread) *entity.ConversationThread {
	if t == nil {
		return nil
	}

	var updatedAt *time.Time
	if !t.UpdatedAt.IsZero() {
		u := t.UpdatedAt
		updatedAt = &u
	}

	return &entity.ConversationThread{
		Id:            t.Id,
		UserId:        t.UserId,
		AgentThreadId: t.AgentThreadId,
		Status:        t.Status,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

func (m *ChatMapper) ThreadToModel(t *entity.ConversationThread) *model.ConversationThread {
	if t == nil {
		return nil
	}

	var updatedAt time.Time
	if t.UpdatedAt != nil {
		updatedAt = *t.UpdatedAt
	}

	return &model.ConversationThread{
		Id:            t.Id,
		UserId:        t.UserId,
		AgentThreadId: t.AgentThreadId,
		Status:        t.Status,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

// Message mappers

func (m *ChatMapper) MessageToEntity(msg *model.Message) *entity.Message {
	if msg == nil {
		return nil
	}
	return &entity.Message{
		Id:        msg.Id,
		ThreadId:  msg.ThreadId,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func (m *ChatMapper) MessageToModel(msg *entity.Message) *model.Message {
	if msg == nil {
		return nil
	}
	return &model.Message{
		Id:        msg.Id,
		ThreadId:  msg.ThreadId,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func (m *ChatMapper) MessagesToEntities(models []*model.Message) []*entity.Message {
	entities := make([]*entity.Message, len(models))
	for i, msg := range models {
		entities[i] = m.MessageToEntity(msg)
	}
	return entities
}
