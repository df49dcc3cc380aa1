package model

import (
	"time"

	"github.com/google/uuid"
)

type Conflict struct {
	Id         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DraftId    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Topic      string     `gorm:"type:varchar(255)"`
	StatementA string     `gorm:"type:text;not null"`
	StatementB string     `gorm:"type:text;not null"`
	Status     string     `gorm:"type:varchar(16);not null;default:'open'"`
	Resolution *string    `gorm:"type:varchar(16)"`
	MergedText *string    `gorm:"type:text"`
	ResolvedBy *uuid.UUID `gorm:"type:uuid"`
	ResolvedAt *time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (Conflict) TableName() string {
	return "draft_conflicts"
}
