package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// seenTTL bounds how long an event id is remembered for de-duplication.
const seenTTL = 2 * time.Minute

var ErrHubClosed = errors.New("realtime hub is shut down")

// Member is the verified identity behind a connection.
type Member struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// RoomAuthorizer decides whether m may subscribe to room.
type RoomAuthorizer func(ctx context.Context, m Member, room Room) error

// clusterMessage is the Redis wire format; Origin lets an instance skip its
// own publications, which it has already delivered locally.
type clusterMessage struct {
	Origin string            `json:"origin"`
	Event  dto.RealtimeEvent `json:"event"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	closed  bool

	rdb        *redis.Client
	channel    string
	instanceID string

	// seen holds event ids already delivered by this instance.
	seen *cache.Cache

	authorize RoomAuthorizer
	logger    logger.ILogger
}

type HubOptions struct {
	Redis      *redis.Client
	Channel    string
	InstanceID string
	Authorize  RoomAuthorizer
}

func NewHub(opts HubOptions, log logger.ILogger) *Hub {
	if opts.Channel == "" {
		opts.Channel = "lifestory:realtime"
	}
	if opts.InstanceID == "" {
		opts.InstanceID = uuid.NewString()
	}
	if opts.Authorize == nil {
		opts.Authorize = func(context.Context, Member, Room) error { return nil }
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		rdb:        opts.Redis,
		channel:    opts.Channel,
		instanceID: opts.InstanceID,
		seen:       cache.New(seenTTL, seenTTL),
		authorize:  opts.Authorize,
		logger:     log,
	}
}

// Run relays events published by other instances until ctx is done, then
// shuts the hub down.
func (h *Hub) Run(ctx context.Context) {
	defer h.Shutdown()

	if h.rdb == nil {
		<-ctx.Done()
		return
	}

	pubsub := h.rdb.Subscribe(ctx, h.channel)
	defer pubsub.Close()
	h.logger.Info("Hub", "Subscribed to cluster channel", map[string]interface{}{"channel": h.channel, "instance_id": h.instanceID})

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleClusterMessage([]byte(msg.Payload))
		}
	}
}

func (h *Hub) handleClusterMessage(payload []byte) {
	var cm clusterMessage
	if err := json.Unmarshal(payload, &cm); err != nil {
		h.logger.Warn("Hub", "Dropping malformed cluster message", map[string]interface{}{"error": err.Error()})
		return
	}
	if cm.Origin == h.instanceID {
		return
	}
	h.deliver(cm.Event)
}

func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	h.clients[c] = struct{}{}
	h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": c.Member.UserID})
	return nil
}

// Unregister removes c from every room and closes its send channel. It is
// safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.close()
	h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"user_id": c.Member.UserID})
}

// Join subscribes c to room after the authorizer accepts it.
func (h *Hub) Join(ctx context.Context, c *Client, room Room) error {
	if err := h.authorize(ctx, c.Member, room); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return ErrHubClosed
	}
	key := room.String()
	if h.rooms[key] == nil {
		h.rooms[key] = make(map[*Client]struct{})
	}
	h.rooms[key][c] = struct{}{}
	c.rooms[key] = struct{}{}
	return nil
}

func (h *Hub) Leave(c *Client, room Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := room.String()
	if members, ok := h.rooms[key]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, key)
		}
	}
	delete(c.rooms, key)
}

// Publish delivers event to the local subscribers of room and relays it to
// the other instances. Delivery is best effort.
func (h *Hub) Publish(ctx context.Context, room Room, eventType string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Hub", "Failed to marshal event", map[string]interface{}{"error": err.Error(), "type": eventType})
		return
	}
	h.PublishEvent(ctx, dto.RealtimeEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Room:       room.String(),
		Data:       raw,
		OccurredAt: time.Now().UTC(),
	})
}

// PublishEvent is Publish for a prepared event. Publishers that may race
// on the same logical event must reuse its ID.
func (h *Hub) PublishEvent(ctx context.Context, event dto.RealtimeEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	h.deliver(event)

	if h.rdb == nil {
		return
	}
	payload, err := json.Marshal(clusterMessage{Origin: h.instanceID, Event: event})
	if err != nil {
		return
	}
	if err := h.rdb.Publish(ctx, h.channel, payload).Err(); err != nil {
		h.logger.Warn("Hub", "Cluster publish failed", map[string]interface{}{"error": err.Error(), "room": event.Room})
	}
}

func (h *Hub) deliver(event dto.RealtimeEvent) {
	// Add fails when the id is already present.
	if err := h.seen.Add(event.ID, struct{}{}, cache.DefaultExpiration); err != nil {
		return
	}

	msg, err := json.Marshal(event)
	if err != nil {
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.rooms[event.Room] {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Hub", "Send buffer full, dropping client", map[string]interface{}{"user_id": c.Member.UserID, "room": event.Room})
		h.Unregister(c)
	}
}

// sendTo queues a direct reply for c unless it is already gone.
func (h *Hub) sendTo(c *Client, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// Shutdown closes every connection and refuses new ones.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
	h.logger.Info("Hub", "Hub shut down", nil)
}

// RoomSize reports the local subscriber count of room.
func (h *Hub) RoomSize(room Room) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room.String()])
}
