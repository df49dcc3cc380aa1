package dto

import (
	"encoding/json"

	"lifestory-be/internal/entity"

	"github.com/google/uuid"
)

// ConflictFlag is a pair of contradictory statements found while drafting.
type ConflictFlag struct {
	Topic      string `json:"topic"`
	StatementA string `json:"statementA" validate:"required"`
	StatementB string `json:"statementB" validate:"required"`
}

// StageResult is the outcome of one pipeline stage, whether it arrived
// inline on a synchronous call or on a webhook.
type StageResult struct {
	Success       bool
	Error         string
	Transcript    string
	QualityScores map[string]float64
	Content       json.RawMessage
	Conflicts     []ConflictFlag
}

type CallbackMetadata struct {
	JobToken string `json:"jobToken"`
	Attempt  int    `json:"attempt"`
}

// CallbackEnvelope carries the fields shared by every stage callback.
type CallbackEnvelope struct {
	Success  *bool             `json:"success" validate:"required"`
	Error    string            `json:"error"`
	Metadata *CallbackMetadata `json:"metadata"`
}

func (e CallbackEnvelope) Token() string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata.JobToken
}

func (e CallbackEnvelope) succeeded() bool {
	return e.Success != nil && *e.Success
}

func (e CallbackEnvelope) failureDetail() string {
	if e.Error == "" {
		return "unknown_error"
	}
	return e.Error
}

// StageCallback is the closed set of webhook payloads, one per stage.
type StageCallback interface {
	Stage() entity.Stage
	SubjectID() uuid.UUID
	Token() string
	Result() StageResult
}

type TranscriptionResultBody struct {
	Transcription string             `json:"transcription"`
	QualityScores map[string]float64 `json:"qualityScores"`
}

// TranscriptionCallback accepts the transcript either flat or under "result".
type TranscriptionCallback struct {
	CallbackEnvelope
	InterviewId   uuid.UUID                `json:"interviewId" validate:"required"`
	Transcription string                   `json:"transcription"`
	QualityScores map[string]float64       `json:"qualityScores"`
	ResultBody    *TranscriptionResultBody `json:"result"`
}

func (c *TranscriptionCallback) Stage() entity.Stage  { return entity.StageTranscription }
func (c *TranscriptionCallback) SubjectID() uuid.UUID { return c.InterviewId }

func (c *TranscriptionCallback) Result() StageResult {
	if !c.succeeded() {
		return StageResult{Error: c.failureDetail()}
	}
	res := StageResult{Success: true, Transcript: c.Transcription, QualityScores: c.QualityScores}
	if c.ResultBody != nil {
		if c.ResultBody.Transcription != "" {
			res.Transcript = c.ResultBody.Transcription
		}
		if c.ResultBody.QualityScores != nil {
			res.QualityScores = c.ResultBody.QualityScores
		}
	}
	return res
}

type DraftResultBody struct {
	Content   json.RawMessage `json:"content"`
	Conflicts []ConflictFlag  `json:"conflicts" validate:"dive"`
}

type DraftCallback struct {
	CallbackEnvelope
	InterviewId uuid.UUID        `json:"interviewId" validate:"required"`
	Content     json.RawMessage  `json:"content"`
	Conflicts   []ConflictFlag   `json:"conflicts" validate:"dive"`
	ResultBody  *DraftResultBody `json:"result"`
}

func (c *DraftCallback) Stage() entity.Stage  { return entity.StageDraft }
func (c *DraftCallback) SubjectID() uuid.UUID { return c.InterviewId }

func (c *DraftCallback) Result() StageResult {
	if !c.succeeded() {
		return StageResult{Error: c.failureDetail()}
	}
	res := StageResult{Success: true, Content: c.Content, Conflicts: c.Conflicts}
	if c.ResultBody != nil {
		if len(c.ResultBody.Content) > 0 {
			res.Content = c.ResultBody.Content
		}
		if c.ResultBody.Conflicts != nil {
			res.Conflicts = c.ResultBody.Conflicts
		}
	}
	return res
}

type LifeStoryResultBody struct {
	Story json.RawMessage `json:"story"`
}

// LifeStoryCallback is keyed by session; a life story spans every interview.
type LifeStoryCallback struct {
	CallbackEnvelope
	SessionId  uuid.UUID            `json:"sessionId" validate:"required"`
	Story      json.RawMessage      `json:"story"`
	ResultBody *LifeStoryResultBody `json:"result"`
}

func (c *LifeStoryCallback) Stage() entity.Stage  { return entity.StageLifeStory }
func (c *LifeStoryCallback) SubjectID() uuid.UUID { return c.SessionId }

func (c *LifeStoryCallback) Result() StageResult {
	if !c.succeeded() {
		return StageResult{Error: c.failureDetail()}
	}
	res := StageResult{Success: true, Content: c.Story}
	if c.ResultBody != nil && len(c.ResultBody.Story) > 0 {
		res.Content = c.ResultBody.Story
	}
	return res
}

// WebhookOutcome tells the pipeline what became of its callback. Every
// outcome is answered with 200.
type WebhookOutcome string

const (
	OutcomeApplied        WebhookOutcome = "applied"
	OutcomeUnknownSubject WebhookOutcome = "ignored_unknown_subject"
	OutcomeNoActiveJob    WebhookOutcome = "ignored_no_active_job"
	OutcomeStaleToken     WebhookOutcome = "ignored_stale_token"
	OutcomeStateMismatch  WebhookOutcome = "ignored_state_mismatch"
)

type WebhookResponse struct {
	Outcome WebhookOutcome `json:"outcome"`
	Stage   string         `json:"stage"`
}
