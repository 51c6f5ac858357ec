// Package plugin runs external effect plugins, such as sound players, in response to game events.
package plugin

import (
	"encoding/json"
	"slices"
)

// Manifest describes a plugin's metadata and the game events it subscribes to.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Events       []string        `json:"events"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Handles reports whether the plugin subscribes to event. A "*" entry matches every event.
func (m Manifest) Handles(event string) bool {
	return slices.Contains(m.Events, event) || slices.Contains(m.Events, "*")
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
