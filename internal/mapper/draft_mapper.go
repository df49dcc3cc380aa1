package mapper

import (
	"encoding/json"

	"lifestory-be/internal/entity"
	"lifestory-be/internal/model"

	"gorm.io/datatypes"
)

type DraftMapper struct{}

func NewDraftMapper() *DraftMapper {
	return &DraftMapper{}
}

func (m *DraftMapper) ToEntity(d *model.Draft) *entity.Draft {
	if d == nil {
		return nil
	}
	return &entity.Draft{
		Id:               d.Id,
		InterviewId:      d.InterviewId,
		Version:          d.Version,
		Status:           entity.DraftStatus(d.Status),
		Content:          json.RawMessage(d.Content),
		GenerationStatus: entity.GenerationStatus(d.GenerationStatus),
		GenerationError:  d.GenerationError,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func (m *DraftMapper) ToModel(d *entity.Draft) *model.Draft {
	if d == nil {
		return nil
	}
	return &model.Draft{
		Id:               d.Id,
		InterviewId:      d.InterviewId,
		Version:          d.Version,
		Status:           string(d.Status),
		Content:          datatypes.JSON(d.Content),
		GenerationStatus: string(d.GenerationStatus),
		GenerationError:  d.GenerationError,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func (m *DraftMapper) ToEntities(drafts []*model.Draft) []*entity.Draft {
	entities := make([]*entity.Draft, len(drafts))
	for i, d := range drafts {
		entities[i] = m.ToEntity(d)
	}
	return entities
}

func (m *DraftMapper) NoteToEntity(n *model.DraftNote) *entity.DraftNote {
	return &entity.DraftNote{
		Id:        n.Id,
		DraftId:   n.DraftId,
		AuthorId:  n.AuthorId,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
	}
}

func (m *DraftMapper) NoteToModel(n *entity.DraftNote) *model.DraftNote {
	return &model.DraftNote{
		Id:        n.Id,
		DraftId:   n.DraftId,
		AuthorId:  n.AuthorId,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
	}
}
