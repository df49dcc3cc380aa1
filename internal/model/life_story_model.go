package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type FullLifeStory struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_story_session_version"`
	Version          int            `gorm:"not null;uniqueIndex:idx_story_session_version"`
	Status           string         `gorm:"type:varchar(16);not null;default:'draft'"`
	Content          datatypes.JSON `gorm:"type:jsonb"`
	SourceDraftIds   datatypes.JSON `gorm:"type:jsonb"`
	GenerationStatus string         `gorm:"type:varchar(16);not null;default:'generating'"`
	GenerationError  string         `gorm:"type:text"`
	Session          *Session       `gorm:"foreignKey:SessionId;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
}

func (FullLifeStory) TableName() string {
	return "full_life_stories"
}
