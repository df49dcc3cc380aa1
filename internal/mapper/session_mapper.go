package mapper

import (
	"lifestory-be/internal/entity"
	"lifestory-be/internal/model"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToEntity(s *model.Session) *entity.Session {
	if s == nil {
		return nil
	}
	return &entity.Session{
		Id:          s.Id,
		UserId:      s.UserId,
		Title:       s.Title,
		Status:      entity.SessionStatus(s.Status),
		ScheduledAt: s.ScheduledAt,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (m *SessionMapper) ToModel(s *entity.Session) *model.Session {
	if s == nil {
		return nil
	}
	return &model.Session{
		Id:          s.Id,
		UserId:      s.UserId,
		Title:       s.Title,
		Status:      string(s.Status),
		ScheduledAt: s.ScheduledAt,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
