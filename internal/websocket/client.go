package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

const (
	MsgJoinInterview  = "join-interview"
	MsgLeaveInterview = "leave-interview"
	MsgJoinSession    = "join-session"
	MsgLeaveSession   = "leave-session"

	ReplyJoined = "joined"
	ReplyLeft   = "left"
	ReplyError  = "error"
)

// ClientMessage is what a subscriber sends to manage its rooms.
type ClientMessage struct {
	Type        string `json:"type"`
	InterviewID string `json:"interviewId,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
}

type Reply struct {
	Type    string `json:"type"`
	Room    string `json:"room,omitempty"`
	Message string `json:"message,omitempty"`
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Member Member

	send chan []byte

	// rooms is guarded by Hub.mu.
	rooms map[string]struct{}

	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, member Member) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		Member: member,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[string]struct{}),
	}
}

// Outbound exposes the queue drained by the write pump.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// HandleMessage applies one inbound frame and returns the reply for it.
func (c *Client) HandleMessage(ctx context.Context, raw []byte) Reply {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Reply{Type: ReplyError, Message: "malformed message"}
	}

	var (
		kind  RoomKind
		rawID string
		join  bool
	)
	switch msg.Type {
	case MsgJoinInterview, MsgLeaveInterview:
		kind, rawID, join = RoomInterview, msg.InterviewID, msg.Type == MsgJoinInterview
	case MsgJoinSession, MsgLeaveSession:
		kind, rawID, join = RoomSession, msg.SessionID, msg.Type == MsgJoinSession
	default:
		return Reply{Type: ReplyError, Message: "unknown message type " + msg.Type}
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return Reply{Type: ReplyError, Message: "invalid " + string(kind) + " id"}
	}
	room := Room{Kind: kind, ID: id}

	if !join {
		c.Hub.Leave(c, room)
		return Reply{Type: ReplyLeft, Room: room.String()}
	}
	if err := c.Hub.Join(ctx, c, room); err != nil {
		if errors.Is(err, ErrHubClosed) {
			return Reply{Type: ReplyError, Room: room.String(), Message: err.Error()}
		}
		return Reply{Type: ReplyError, Room: room.String(), Message: "not allowed to join " + room.String()}
	}
	return Reply{Type: ReplyJoined, Room: room.String()}
}

func (c *Client) reply(r Reply) {
	raw, err := json.Marshal(r)
	if err != nil {
		return
	}
	c.Hub.sendTo(c, raw)
}

// readPump pumps room commands from the websocket connection to the hub.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Client", "Unexpected close", map[string]interface{}{"user_id": c.Member.UserID, "error": err.Error()})
			}
			return
		}
		c.reply(c.HandleMessage(ctx, raw))
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One event per frame so clients can parse each as JSON.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
