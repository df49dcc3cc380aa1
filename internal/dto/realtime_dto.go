package dto

import (
	"encoding/json"
	"time"
)

// RealtimeEvent is what subscribers of a room receive.
type RealtimeEvent struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Room       string          `json:"room"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurred_at"`
}

const (
	EventInterviewStatusChanged = "interview.status_changed"
	EventDraftGenerated         = "draft.generated"
	EventDraftGenerationFailed  = "draft.generation_failed"
	EventDraftStatusChanged     = "draft.status_changed"
	EventLifeStoryGenerated     = "life_story.generated"
	EventLifeStoryFailed        = "life_story.generation_failed"
	EventLifeStoryStatusChanged = "life_story.status_changed"
	EventSessionStatusChanged   = "session.status_changed"
	EventConflictResolved       = "conflict.resolved"
)

// InterviewStatusPayload is the body of interview.status_changed.
type InterviewStatusPayload struct {
	InterviewId   string `json:"interview_id"`
	SessionId     string `json:"session_id"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
	Error         string `json:"error,omitempty"`
	Stage         string `json:"stage,omitempty"`
	DraftVersion  int    `json:"draft_version,omitempty"`
}

type SessionStatusPayload struct {
	SessionId string `json:"session_id"`
	Status    string `json:"status"`
	Previous  string `json:"previous"`
}

// GenerationFailedPayload is the body of draft.generation_failed and
// life_story.generation_failed.
type GenerationFailedPayload struct {
	SubjectId string `json:"subject_id"`
	Stage     string `json:"stage"`
	Reason    string `json:"reason"`
	Error     string `json:"error"`
	TargetId  string `json:"target_id,omitempty"`
	Version   int    `json:"version,omitempty"`
}

type ConflictResolvedPayload struct {
	ConflictId string `json:"conflict_id"`
	DraftId    string `json:"draft_id"`
	Resolution string `json:"resolution"`
}
