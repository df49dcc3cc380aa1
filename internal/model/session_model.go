package model

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	Id          uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId      uuid.UUID   `gorm:"type:uuid;not null;index"`
	Title       string      `gorm:"type:varchar(255);not null"`
	Status      string      `gorm:"type:varchar(32);not null;default:'pending';index"`
	ScheduledAt *time.Time
	Interviews  []Interview `gorm:"foreignKey:SessionId;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time   `gorm:"autoCreateTime"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime"`
}

func (Session) TableName() string {
	return "sessions"
}
