package dto

import (
	"time"

	"lifestory-be/internal/entity"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Title       string     `json:"title" validate:"required,max=255"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type UpdateSessionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending active completed in_review"`
}

type ScheduleInterviewRequest struct {
	Type string `json:"type" validate:"required,oneof=main friend"`
}

type SessionResponse struct {
	Id          uuid.UUID            `json:"id"`
	UserId      uuid.UUID            `json:"user_id"`
	Title       string               `json:"title"`
	Status      string               `json:"status"`
	ScheduledAt *time.Time           `json:"scheduled_at,omitempty"`
	Interviews  []*InterviewResponse `json:"interviews"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func NewSessionResponse(s *entity.Session, interviews []*entity.Interview) *SessionResponse {
	res := &SessionResponse{
		Id:          s.Id,
		UserId:      s.UserId,
		Title:       s.Title,
		Status:      string(s.Status),
		ScheduledAt: s.ScheduledAt,
		Interviews:  make([]*InterviewResponse, 0, len(interviews)),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	for _, iv := range interviews {
		res.Interviews = append(res.Interviews, NewInterviewResponse(iv))
	}
	return res
}
