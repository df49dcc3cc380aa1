package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type LifeStoryStatus string

const (
	LifeStoryStatusDraft    LifeStoryStatus = "draft"
	LifeStoryStatusApproved LifeStoryStatus = "approved"
	LifeStoryStatusRejected LifeStoryStatus = "rejected"
	LifeStoryStatusArchived LifeStoryStatus = "archived"
)

type FullLifeStory struct {
	Id               uuid.UUID
	SessionId        uuid.UUID
	Version          int
	Status           LifeStoryStatus
	Content          json.RawMessage
	SourceDraftIds   []uuid.UUID
	GenerationStatus GenerationStatus
	GenerationError  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
