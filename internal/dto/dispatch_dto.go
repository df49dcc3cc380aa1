package dto

import (
	"encoding/json"

	"lifestory-be/internal/entity"

	"github.com/google/uuid"
)

// DispatchMessage is one queued pipeline call. It is published after the job
// is registered and consumed by the dispatch worker.
type DispatchMessage struct {
	Stage       entity.Stage      `json:"stage"`
	JobToken    string            `json:"job_token"`
	Attempt     int               `json:"attempt"`
	SubjectId   uuid.UUID         `json:"subject_id"`
	SourceRef   string            `json:"source_ref,omitempty"`
	MimeType    string            `json:"mime_type,omitempty"`
	Transcript  string            `json:"transcript,omitempty"`
	Drafts      []json.RawMessage `json:"drafts,omitempty"`
	CallbackURL string            `json:"callback_url"`
}
