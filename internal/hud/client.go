package hud

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/ayusman/objecthunter/internal/surface"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 15 * time.Second
	writeTimeout       = 5 * time.Second
)

// Client manages the websocket connection to the game's state feed.
type Client struct {
	url string

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
}

// NewClient creates a client for the state websocket at url.
func NewClient(url string) *Client {
	return &Client{url: url}
}

// ConnectedMsg is sent when the websocket connects.
type ConnectedMsg struct{}

// DisconnectedMsg is sent when the connection drops.
type DisconnectedMsg struct{ Err error }

// StateMsg delivers a game state update.
type StateMsg struct{ State *surface.StateMessage }

// EventMsg delivers a game event.
type EventMsg struct{ Event *surface.EventMessage }

// Listen returns a command that dials until connected or ctx is cancelled.
func (c *Client) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			if ctx.Err() != nil {
				return nil
			}

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
			if err != nil {
				log.Printf("ws dial error: %v (retry in %v)", err, delay)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(delay):
				}
				delay = min(delay*2, reconnectMaxDelay)
				continue
			}

			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			return ConnectedMsg{}
		}
	}
}

// ReadLoop returns a command that reads until the next state or event message.
// It should be reissued after every message it delivers.
func (c *Client) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return DisconnectedMsg{Err: fmt.Errorf("no connection")}
		}

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.mu.Lock()
				if c.conn == conn {
					c.conn = nil
				}
				c.mu.Unlock()
				conn.Close()
				if ctx.Err() != nil {
					return nil
				}
				return DisconnectedMsg{Err: err}
			}

			if msg := decode(data); msg != nil {
				return msg
			}
		}
	}
}

func decode(data []byte) tea.Msg {
	var msg surface.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil
	}
	switch {
	case msg.Type == surface.MessageState && msg.State != nil:
		return StateMsg{State: msg.State}
	case msg.Type == surface.MessageEvent && msg.Event != nil:
		return EventMsg{Event: msg.Event}
	}
	return nil
}

// RequestExit asks the game to shut down.
func (c *Client) RequestExit() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(surface.ClientMessage{Type: surface.ClientExit})
}

// Close closes the current connection, if any.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
