package mapper

import (
	"encoding/json"

	"lifestory-be/internal/entity"
	"lifestory-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type LifeStoryMapper struct{}

func NewLifeStoryMapper() *LifeStoryMapper {
	return &LifeStoryMapper{}
}

func (m *LifeStoryMapper) ToEntity(s *model.FullLifeStory) *entity.FullLifeStory {
	if s == nil {
		return nil
	}
	var sources []uuid.UUID
	if len(s.SourceDraftIds) > 0 {
		_ = json.Unmarshal(s.SourceDraftIds, &sources)
	}
	return &entity.FullLifeStory{
		Id:               s.Id,
		SessionId:        s.SessionId,
		Version:          s.Version,
		Status:           entity.LifeStoryStatus(s.Status),
		Content:          json.RawMessage(s.Content),
		SourceDraftIds:   sources,
		GenerationStatus: entity.GenerationStatus(s.GenerationStatus),
		GenerationError:  s.GenerationError,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func (m *LifeStoryMapper) ToModel(s *entity.FullLifeStory) *model.FullLifeStory {
	if s == nil {
		return nil
	}
	sources, _ := json.Marshal(s.SourceDraftIds)
	return &model.FullLifeStory{
		Id:               s.Id,
		SessionId:        s.SessionId,
		Version:          s.Version,
		Status:           string(s.Status),
		Content:          datatypes.JSON(s.Content),
		SourceDraftIds:   datatypes.JSON(sources),
		GenerationStatus: string(s.GenerationStatus),
		GenerationError:  s.GenerationError,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func (m *LifeStoryMapper) ToEntities(stories []*model.FullLifeStory) []*entity.FullLifeStory {
	entities := make([]*entity.FullLifeStory, len(stories))
	for i, s := range stories {
		entities[i] = m.ToEntity(s)
	}
	return entities
}
