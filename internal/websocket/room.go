package websocket

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type RoomKind string

const (
	RoomInterview RoomKind = "interview"
	RoomSession   RoomKind = "session"
)

// Room scopes delivery to the subscribers of one interview or session.
type Room struct {
	Kind RoomKind
	ID   uuid.UUID
}

func InterviewRoom(id uuid.UUID) Room { return Room{Kind: RoomInterview, ID: id} }
func SessionRoom(id uuid.UUID) Room { return Room{Kind: RoomSession, ID: id} }

func (r Room) String() string {
	return string(r.Kind) + ":" + r.ID.String()
}

func ParseRoom(s string) (Room, error) {
	kind, rawID, ok := strings.Cut(s, ":")
	if !ok {
		return Room{}, fmt.Errorf("malformed room %q", s)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return Room{}, fmt.Errorf("malformed room id %q", rawID)
	}
	switch RoomKind(kind) {
	case RoomInterview, RoomSession:
		return Room{Kind: RoomKind(kind), ID: id}, nil
	}
	return Room{}, fmt.Errorf("unknown room kind %q", kind)
}
