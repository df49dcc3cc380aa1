package service

import (
	"context"
	"encoding/json"
	"time"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/pkg/logger"
	"lifestory-be/internal/websocket"
	"lifestory-be/pkg/correlator"
	"lifestory-be/pkg/events"

	"github.com/google/uuid"
)

// Broadcaster fans an event out to the subscribers of its room.
type Broadcaster interface {
	PublishEvent(ctx context.Context, event dto.RealtimeEvent)
}

// notifier sends room events and domain events. Neither can fail the
// operation that produced them.
type notifier struct {
	broadcaster Broadcaster
	events      events.Publisher
	logger      logger.ILogger
}

func newNotifier(b Broadcaster, p events.Publisher, log logger.ILogger) *notifier {
	if p == nil {
		p = events.Discard{}
	}
	return &notifier{broadcaster: b, events: p, logger: log}
}

// jobEventID derives the event id from the job so that every instance that
// might announce the same settlement produces the same id.
func jobEventID(job correlator.Job, eventType string) string {
	return job.Token + ":" + eventType
}

func (n *notifier) toRoom(ctx context.Context, id string, room websocket.Room, eventType string, payload interface{}) {
	if n.broadcaster == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("Notifier", "Failed to marshal room event", map[string]interface{}{"error": err.Error(), "type": eventType})
		return
	}
	if id == "" {
		id = uuid.NewString()
	}
	n.broadcaster.PublishEvent(ctx, dto.RealtimeEvent{
		ID:         id,
		Type:       eventType,
		Room:       room.String(),
		Data:       raw,
		OccurredAt: time.Now().UTC(),
	})
}

func (n *notifier) domain(ctx context.Context, eventType string, data map[string]interface{}) {
	if err := n.events.Publish(ctx, events.New(eventType, data)); err != nil {
		n.logger.Warn("Notifier", "Domain event not published", map[string]interface{}{"error": err.Error(), "type": eventType})
	}
}
