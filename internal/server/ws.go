package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds each websocket write.
const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// CursorHandler pushes every tracking snapshot to websocket clients.
type CursorHandler struct {
	pipeline Pipeline
}

// NewCursorHandler creates a CursorHandler for p.
func NewCursorHandler(p Pipeline) *CursorHandler {
	return &CursorHandler{pipeline: p}
}

// ServeHTTP upgrades the connection and streams state messages until the
// client disconnects.
func (h *CursorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.pipeline.Subscribe()
	defer unsubscribe()

	// The read loop only notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(toStateResponse(snap, h.pipeline.IsEnabled())); err != nil {
				return
			}
		}
	}
}
