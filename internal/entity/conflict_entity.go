package entity

import (
	"time"

	"github.com/google/uuid"
)

type ConflictStatus string
type ConflictResolution string

const (
	ConflictStatusOpen     ConflictStatus = "open"
	ConflictStatusResolved ConflictStatus = "resolved"

	ConflictResolutionA     ConflictResolution = "a"
	ConflictResolutionB     ConflictResolution = "b"
	ConflictResolutionMerge ConflictResolution = "merge"
)

// Conflict is a pair of contradictory statements flagged by the drafting stage.
type Conflict struct {
	Id         uuid.UUID
	DraftId    uuid.UUID
	Topic      string
	StatementA string
	StatementB string
	Status     ConflictStatus
	Resolution *ConflictResolution
	MergedText *string
	ResolvedBy *uuid.UUID
	ResolvedAt *time.Time
	CreatedAt  time.Time
}
