package dto

import (
	"encoding/json"
	"time"

	"lifestory-be/internal/entity"

	"github.com/google/uuid"
)

type TransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

type AppendNoteRequest struct {
	Body string `json:"body" validate:"required,max=10000"`
}

type ResolveConflictRequest struct {
	Resolution string `json:"resolution" validate:"required,oneof=a b merge"`
	MergedText string `json:"merged_text" validate:"required_if=Resolution merge"`
}

type DraftResponse struct {
	Id               uuid.UUID       `json:"id"`
	InterviewId      uuid.UUID       `json:"interview_id"`
	Version          int             `json:"version"`
	Status           string          `json:"status"`
	Content          json.RawMessage `json:"content,omitempty"`
	GenerationStatus string          `json:"generation_status"`
	GenerationError  string          `json:"generation_error,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func NewDraftResponse(d *entity.Draft) *DraftResponse {
	return &DraftResponse{
		Id:               d.Id,
		InterviewId:      d.InterviewId,
		Version:          d.Version,
		Status:           string(d.Status),
		Content:          d.Content,
		GenerationStatus: string(d.GenerationStatus),
		GenerationError:  d.GenerationError,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func NewDraftResponses(drafts []*entity.Draft) []*DraftResponse {
	out := make([]*DraftResponse, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, NewDraftResponse(d))
	}
	return out
}

type DraftNoteResponse struct {
	Id        uuid.UUID `json:"id"`
	DraftId   uuid.UUID `json:"draft_id"`
	AuthorId  uuid.UUID `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func NewDraftNoteResponse(n *entity.DraftNote) *DraftNoteResponse {
	return &DraftNoteResponse{
		Id:        n.Id,
		DraftId:   n.DraftId,
		AuthorId:  n.AuthorId,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
	}
}

type ConflictResponse struct {
	Id         uuid.UUID  `json:"id"`
	DraftId    uuid.UUID  `json:"draft_id"`
	Topic      string     `json:"topic"`
	StatementA string     `json:"statement_a"`
	StatementB string     `json:"statement_b"`
	Status     string     `json:"status"`
	Resolution string     `json:"resolution,omitempty"`
	MergedText *string    `json:"merged_text,omitempty"`
	ResolvedBy *uuid.UUID `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

func NewConflictResponse(c *entity.Conflict) *ConflictResponse {
	res := &ConflictResponse{
		Id:         c.Id,
		DraftId:    c.DraftId,
		Topic:      c.Topic,
		StatementA: c.StatementA,
		StatementB: c.StatementB,
		Status:     string(c.Status),
		MergedText: c.MergedText,
		ResolvedBy: c.ResolvedBy,
		ResolvedAt: c.ResolvedAt,
	}
	if c.Resolution != nil {
		res.Resolution = string(*c.Resolution)
	}
	return res
}

type LifeStoryResponse struct {
	Id               uuid.UUID       `json:"id"`
	SessionId        uuid.UUID       `json:"session_id"`
	Version          int             `json:"version"`
	Status           string          `json:"status"`
	Content          json.RawMessage `json:"content,omitempty"`
	SourceDraftIds   []uuid.UUID     `json:"source_draft_ids"`
	GenerationStatus string          `json:"generation_status"`
	GenerationError  string          `json:"generation_error,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func NewLifeStoryResponse(s *entity.FullLifeStory) *LifeStoryResponse {
	return &LifeStoryResponse{
		Id:               s.Id,
		SessionId:        s.SessionId,
		Version:          s.Version,
		Status:           string(s.Status),
		Content:          s.Content,
		SourceDraftIds:   s.SourceDraftIds,
		GenerationStatus: string(s.GenerationStatus),
		GenerationError:  s.GenerationError,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}
