package mapper

import (
	"encoding/json"

	"lifestory-be/internal/entity"
	"lifestory-be/internal/model"

	"gorm.io/datatypes"
)

type InterviewMapper struct{}

func NewInterviewMapper() *InterviewMapper {
	return &InterviewMapper{}
}

func (m *InterviewMapper) ToEntity(i *model.Interview) *entity.Interview {
	if i == nil {
		return nil
	}

	var scores map[string]float64
	if len(i.QualityScores) > 0 {
		_ = json.Unmarshal(i.QualityScores, &scores)
	}

	return &entity.Interview{
		Id:            i.Id,
		SessionId:     i.SessionId,
		Type:          entity.InterviewType(i.Type),
		Status:        entity.InterviewStatus(i.Status),
		Transcript:    i.Transcript,
		AudioRef:      i.AudioRef,
		QualityScores: scores,
		FailureReason: entity.FailureReason(i.FailureReason),
		ErrorDetail:   i.ErrorDetail,
		StartedAt:     i.StartedAt,
		CompletedAt:   i.CompletedAt,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

func (m *InterviewMapper) ToModel(i *entity.Interview) *model.Interview {
	if i == nil {
		return nil
	}
	return &model.Interview{
		Id:            i.Id,
		SessionId:     i.SessionId,
		Type:          string(i.Type),
		Status:        string(i.Status),
		Transcript:    i.Transcript,
		AudioRef:      i.AudioRef,
		QualityScores: ScoresJSON(i.QualityScores),
		FailureReason: string(i.FailureReason),
		ErrorDetail:   i.ErrorDetail,
		StartedAt:     i.StartedAt,
		CompletedAt:   i.CompletedAt,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

func (m *InterviewMapper) ToEntities(interviews []*model.Interview) []*entity.Interview {
	entities := make([]*entity.Interview, len(interviews))
	for i, iv := range interviews {
		entities[i] = m.ToEntity(iv)
	}
	return entities
}

func ScoresJSON(scores map[string]float64) datatypes.JSON {
	if scores == nil {
		return nil
	}
	b, _ := json.Marshal(scores)
	return datatypes.JSON(b)
}
