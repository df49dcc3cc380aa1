// Package pipeline is the HTTP client for the external AI pipeline:
// transcription, draft structuring and life-story synthesis.
//
// Every call runs in one of two modes. With an empty CallbackURL the pipeline
// answers inline and the result is returned. With a CallbackURL it only
// acknowledges, and the outcome arrives later on the webhook.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TransportError is a failure to reach the pipeline or a 5xx answer.
// Only transport errors are worth retrying.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("pipeline %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("pipeline %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Error is a failure reported by the pipeline itself, e.g. "model_unavailable".
type Error struct {
	Op     string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("pipeline %s failed: %s", e.Op, e.Reason)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

type TranscribeRequest struct {
	InterviewID string `json:"interviewId"`
	JobToken    string `json:"jobToken"`
	SourceRef   string `json:"sourceRef"`
	MimeType    string `json:"mimeType"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

type DraftRequest struct {
	InterviewID string `json:"interviewId"`
	JobToken    string `json:"jobToken"`
	Transcript  string `json:"transcript"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

type StoryRequest struct {
	SessionID   string            `json:"sessionId"`
	JobToken    string            `json:"jobToken"`
	Drafts      []json.RawMessage `json:"drafts"`
	CallbackURL string            `json:"callbackUrl,omitempty"`
}

type ConflictFlag struct {
	Topic      string `json:"topic"`
	StatementA string `json:"statementA"`
	StatementB string `json:"statementB"`
}

// Result is the inline answer of a synchronous call. Fields unrelated to
// the stage are left empty.
type Result struct {
	Transcription string             `json:"transcription,omitempty"`
	QualityScores map[string]float64 `json:"qualityScores,omitempty"`
	Content       json.RawMessage    `json:"content,omitempty"`
	Conflicts     []ConflictFlag     `json:"conflicts,omitempty"`
}

type envelope struct {
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
	Result  *Result `json:"result,omitempty"`
}

type Client interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (*Result, error)
	StructureDraft(ctx context.Context, req DraftRequest) (*Result, error)
	SynthesizeStory(ctx context.Context, req StoryRequest) (*Result, error)
}

type HTTPClient struct {
	BaseURL string
	APIKey  string
	http    *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &HTTPClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Transcribe(ctx context.Context, req TranscribeRequest) (*Result, error) {
	return c.call(ctx, "transcribe", req.JobToken, req.CallbackURL != "", req)
}

func (c *HTTPClient) StructureDraft(ctx context.Context, req DraftRequest) (*Result, error) {
	return c.call(ctx, "structure-draft", req.JobToken, req.CallbackURL != "", req)
}

func (c *HTTPClient) SynthesizeStory(ctx context.Context, req StoryRequest) (*Result, error) {
	return c.call(ctx, "synthesize-story", req.JobToken, req.CallbackURL != "", req)
}

func (c *HTTPClient) call(ctx context.Context, op, token string, async bool, payload any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s", c.BaseURL, op)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Job-Token", token)
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(string(respBody))}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &Error{Op: op, Reason: fmt.Sprintf("rejected with status %d: %s", resp.StatusCode, string(respBody))}
	}

	if async {
		// 202 Accepted; the outcome arrives on the webhook.
		return nil, nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &Error{Op: op, Reason: "malformed response: " + err.Error()}
	}
	if !env.Success {
		reason := env.Error
		if reason == "" {
			reason = "unknown_error"
		}
		return nil, &Error{Op: op, Reason: reason}
	}
	if env.Result == nil {
		return &Result{}, nil
	}
	return env.Result, nil
}
