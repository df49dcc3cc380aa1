package websocket

import (
	"context"

	"github.com/gofiber/websocket/v2"
)

// ServeWs runs the connection until the peer goes away or the hub shuts down.
func ServeWs(ctx context.Context, hub *Hub, conn *websocket.Conn, member Member) {
	client := NewClient(hub, conn, member)
	if err := hub.Register(client); err != nil {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump(ctx) // blocks in the fiber handler goroutine
}
