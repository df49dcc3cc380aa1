package mapper

import (
	"lifestory-be/internal/entity"
	"lifestory-be/internal/model"
)

type ConflictMapper struct{}

func NewConflictMapper() *ConflictMapper {
	return &ConflictMapper{}
}

func (m *ConflictMapper) ToEntity(c *model.Conflict) *entity.Conflict {
	if c == nil {
		return nil
	}
	var resolution *entity.ConflictResolution
	if c.Resolution != nil {
		r := entity.ConflictResolution(*c.Resolution)
		resolution = &r
	}
	return &entity.Conflict{
		Id:         c.Id,
		DraftId:    c.DraftId,
		Topic:      c.Topic,
		StatementA: c.StatementA,
		StatementB: c.StatementB,
		Status:     entity.ConflictStatus(c.Status),
		Resolution: resolution,
		MergedText: c.MergedText,
		ResolvedBy: c.ResolvedBy,
		ResolvedAt: c.ResolvedAt,
		CreatedAt:  c.CreatedAt,
	}
}

func (m *ConflictMapper) ToModel(c *entity.Conflict) *model.Conflict {
	if c == nil {
		return nil
	}
	var resolution *string
	if c.Resolution != nil {
		r := string(*c.Resolution)
		resolution = &r
	}
	return &model.Conflict{
		Id:         c.Id,
		DraftId:    c.DraftId,
		Topic:      c.Topic,
		StatementA: c.StatementA,
		StatementB: c.StatementB,
		Status:     string(c.Status),
		Resolution: resolution,
		MergedText: c.MergedText,
		ResolvedBy: c.ResolvedBy,
		ResolvedAt: c.ResolvedAt,
		CreatedAt:  c.CreatedAt,
	}
}

func (m *ConflictMapper) ToEntities(conflicts []*model.Conflict) []*entity.Conflict {
	entities := make([]*entity.Conflict, len(conflicts))
	for i, c := range conflicts {
		entities[i] = m.ToEntity(c)
	}
	return entities
}
