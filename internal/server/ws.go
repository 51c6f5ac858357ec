package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/objecthunter/internal/surface"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StateHandler streams state and event messages to a display over a websocket and feeds the
// display's pointer and exit messages back into the surface.
type StateHandler struct {
	surface *surface.Surface
}

// NewStateHandler creates a new StateHandler for s.
func NewStateHandler(s *surface.Surface) *StateHandler {
	return &StateHandler{surface: s}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	msgs, cancel := h.surface.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go writePump(conn, msgs, done)

	conn.SetReadLimit(maxMessageSize)
	for {
		var msg surface.ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if err := h.surface.HandleClient(msg); err != nil {
			log.Printf("Ignoring display message: %v", err)
		}
	}

	cancel()
	<-done
}

// writePump sends every subscribed message to conn until the subscription ends or a write
// fails.
func writePump(conn *websocket.Conn, msgs <-chan surface.Message, done chan<- struct{}) {
	defer close(done)

	for msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			log.Printf("Failed to encode message: %v", err)
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			// Closing unblocks the reader, which ends the subscription.
			conn.Close()
			for range msgs {
			}
			return
		}
	}
}
