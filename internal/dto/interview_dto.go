package dto

import (
	"time"

	"lifestory-be/internal/entity"

	"github.com/google/uuid"
)

type InterviewResponse struct {
	Id            uuid.UUID          `json:"id"`
	SessionId     uuid.UUID          `json:"session_id"`
	Type          string             `json:"type"`
	Status        string             `json:"status"`
	Transcript    *string            `json:"transcript,omitempty"`
	AudioRef      *string            `json:"audio_ref,omitempty"`
	QualityScores map[string]float64 `json:"quality_scores,omitempty"`
	FailureReason string             `json:"failure_reason,omitempty"`
	ErrorDetail   string             `json:"error_detail,omitempty"`
	StartedAt     *time.Time         `json:"started_at,omitempty"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func NewInterviewResponse(iv *entity.Interview) *InterviewResponse {
	return &InterviewResponse{
		Id:            iv.Id,
		SessionId:     iv.SessionId,
		Type:          string(iv.Type),
		Status:        string(iv.Status),
		Transcript:    iv.Transcript,
		AudioRef:      iv.AudioRef,
		QualityScores: iv.QualityScores,
		FailureReason: string(iv.FailureReason),
		ErrorDetail:   iv.ErrorDetail,
		StartedAt:     iv.StartedAt,
		CompletedAt:   iv.CompletedAt,
		CreatedAt:     iv.CreatedAt,
		UpdatedAt:     iv.UpdatedAt,
	}
}

// InterviewStatusResponse is the polling view. Error fields are only set
// while the interview is Failed.
type InterviewStatusResponse struct {
	InterviewId   uuid.UUID `json:"interview_id"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	Error         string    `json:"error,omitempty"`
	ActiveStages  []string  `json:"active_stages"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type UploadMode string

const (
	UploadModeSync  UploadMode = "sync"
	UploadModeAsync UploadMode = "async"
)

// UploadRequest is built by the controller from the multipart form.
type UploadRequest struct {
	InterviewId uuid.UUID
	Filename    string
	Size        int64
	Data        []byte
	Mode        UploadMode
}

// JobAcknowledgement is returned by every async operation.
type JobAcknowledgement struct {
	SubjectId uuid.UUID `json:"subject_id"`
	JobToken  string    `json:"job_token"`
	Stage     string    `json:"stage"`
	Attempt   int       `json:"attempt"`
	Status    string    `json:"status"`
	Room      string    `json:"room"`
}
