package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type DraftStatus string

// GenerationStatus tracks the pipeline side of a draft or life story,
// independently of its review status.
type GenerationStatus string

const (
	DraftStatusInternalReview DraftStatus = "internal_review"
	DraftStatusClientReview   DraftStatus = "client_review"
	DraftStatusFinalApproval  DraftStatus = "final_approval"
	DraftStatusApproved       DraftStatus = "approved"
	DraftStatusRejected       DraftStatus = "rejected"
	DraftStatusArchived       DraftStatus = "archived"

	GenerationStatusReady      GenerationStatus = "ready"
	GenerationStatusGenerating GenerationStatus = "generating"
	GenerationStatusFailed     GenerationStatus = "failed"
)

type Draft struct {
	Id               uuid.UUID
	InterviewId      uuid.UUID
	Version          int
	Status           DraftStatus
	Content          json.RawMessage
	GenerationStatus GenerationStatus
	GenerationError  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type DraftNote struct {
	Id        uuid.UUID
	DraftId   uuid.UUID
	AuthorId  uuid.UUID
	Body      string
	CreatedAt time.Time
}
