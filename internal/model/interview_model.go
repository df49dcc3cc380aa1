package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Interview struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId     uuid.UUID      `gorm:"type:uuid;not null;index"`
	Type          string         `gorm:"type:varchar(16);not null"`
	Status        string         `gorm:"type:varchar(32);not null;default:'scheduled';index"`
	Transcript    *string        `gorm:"type:text"`
	AudioRef      *string        `gorm:"type:text"`
	QualityScores datatypes.JSON `gorm:"type:jsonb"`
	FailureReason string         `gorm:"type:varchar(32)"`
	ErrorDetail   string         `gorm:"type:text"`
	StartedAt     *time.Time
	CompletedAt   *time.Time
	Drafts        []Draft   `gorm:"foreignKey:InterviewId;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (Interview) TableName() string {
	return "interviews"
}
