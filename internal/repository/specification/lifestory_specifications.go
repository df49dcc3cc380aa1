package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByInterviewID struct {
	InterviewID uuid.UUID
}

func (s ByInterviewID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("interview_id = ?", s.InterviewID)
}

type BySessionID struct {
	SessionID uuid.UUID
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

type ByDraftID struct {
	DraftID uuid.UUID
}

func (s ByDraftID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("draft_id = ?", s.DraftID)
}

// ApprovedDraftsOfSession joins drafts to their interview to filter by session.
type ApprovedDraftsOfSession struct {
	SessionID uuid.UUID
}

func (s ApprovedDraftsOfSession) Apply(db *gorm.DB) *gorm.DB {
	return db.Joins("JOIN interviews ON interviews.id = drafts.interview_id").
		Where("interviews.session_id = ? AND drafts.status = ?", s.SessionID, "approved").
		Order("drafts.created_at ASC")
}

var VersionAsc = OrderBy{Field: "version"}
var VersionDesc = OrderBy{Field: "version", Desc: true}
