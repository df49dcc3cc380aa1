package entity

import (
	"time"

	"github.com/google/uuid"
)

type InterviewType string
type InterviewStatus string

// FailureReason records why an interview ended up Failed.
type FailureReason string

const (
	InterviewTypeMain   InterviewType = "main"
	InterviewTypeFriend InterviewType = "friend"

	InterviewStatusScheduled  InterviewStatus = "scheduled"
	InterviewStatusInProgress InterviewStatus = "in_progress"
	InterviewStatusProcessing InterviewStatus = "processing"
	InterviewStatusCompleted  InterviewStatus = "completed"
	InterviewStatusFailed     InterviewStatus = "failed"

	FailureReasonNone     FailureReason = ""
	FailureReasonPipeline FailureReason = "pipeline_failure"
	FailureReasonTimeout  FailureReason = "timeout"
	FailureReasonDispatch FailureReason = "dispatch_failure"
)

type Interview struct {
	Id            uuid.UUID
	SessionId     uuid.UUID
	Type          InterviewType
	Status        InterviewStatus
	Transcript    *string
	AudioRef      *string
	QualityScores map[string]float64
	FailureReason FailureReason
	ErrorDetail   string
	StartedAt     *time.Time
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InterviewUpdate is the set of columns written together with a status
// transition. Nil pointers leave the stored value untouched; failure fields
// are always overwritten so that leaving Failed clears them.
type InterviewUpdate struct {
	Status        InterviewStatus
	Transcript    *string
	AudioRef      *string
	QualityScores map[string]float64
	FailureReason FailureReason
	ErrorDetail   string
	At            time.Time
}
