package events

import (
	"context"
	"sync"
	"time"
)

// Event defines the contract for all domain events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "INTERVIEW_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	InterviewCompleted     = "INTERVIEW_COMPLETED"
	InterviewFailed        = "INTERVIEW_FAILED"
	DraftCreated           = "DRAFT_CREATED"
	DraftGenerationFailed  = "DRAFT_GENERATION_FAILED"
	DraftStatusChanged     = "DRAFT_STATUS_CHANGED"
	LifeStoryCreated       = "LIFE_STORY_CREATED"
	LifeStoryFailed        = "LIFE_STORY_FAILED"
	LifeStoryStatusChanged = "LIFE_STORY_STATUS_CHANGED"
	SessionStatusChanged   = "SESSION_STATUS_CHANGED"
)

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now().UTC()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Recorder keeps published events in memory. Used by tests.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	r.Events = append(r.Events, event)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		types = append(types, e.EventType())
	}
	return types
}

// Discard is used when no event bus is configured.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
