package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Draft struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InterviewId      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_draft_interview_version"`
	Version          int            `gorm:"not null;uniqueIndex:idx_draft_interview_version"`
	Status           string         `gorm:"type:varchar(32);not null;default:'internal_review'"`
	Content          datatypes.JSON `gorm:"type:jsonb"`
	GenerationStatus string         `gorm:"type:varchar(16);not null;default:'ready'"`
	GenerationError  string         `gorm:"type:text"`
	Notes            []DraftNote    `gorm:"foreignKey:DraftId;constraint:OnDelete:CASCADE"`
	Conflicts        []Conflict     `gorm:"foreignKey:DraftId;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
}

func (Draft) TableName() string {
	return "drafts"
}

// DraftNote rows are only ever inserted.
type DraftNote struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DraftId   uuid.UUID `gorm:"type:uuid;not null;index"`
	AuthorId  uuid.UUID `gorm:"type:uuid;not null"`
	Body      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (DraftNote) TableName() string {
	return "draft_notes"
}
