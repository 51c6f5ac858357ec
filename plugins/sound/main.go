// Package main provides a sound effects plugin for Object Hunter.
// It maps game events to short sound files and plays them with the platform audio player.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Config  json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config overrides where sounds are found.
type Config struct {
	SoundsDir string            `json:"sounds_dir"`
	Sounds    map[string]string `json:"sounds"`
}

// payload holds the event fields the plugin cares about.
type payload struct {
	Completed bool `json:"completed"`
}

// soundFor returns the sound name for an event, or "" when the event is silent.
func soundFor(event string, p payload) string {
	switch event {
	case "target_found":
		return "correct"
	case "round_started":
		return "game_start"
	case "round_ended":
		if p.Completed {
			return "game_over"
		}
		return ""
	case "action_rejected":
		return "error"
	case "difficulty_previewed", "difficulty_committed":
		return "difficulty_change"
	case "phase_changed":
		return "button_click"
	}
	return ""
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}
	var p payload
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid payload: %v", err))
			return
		}
	}

	name := soundFor(req.Event, p)
	if name == "" {
		writeResponse(Response{Success: true})
		return
	}

	path, err := resolveSound(cfg, name)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}
	if err := play(path); err != nil {
		writeErrorResponse(fmt.Sprintf("play %s: %v", name, err))
		return
	}

	data, _ := json.Marshal(map[string]string{"sound": name})
	writeResponse(Response{Success: true, Data: data})
}

// resolveSound finds the file for a sound name. Explicit mappings win over the sounds directory.
func resolveSound(cfg Config, name string) (string, error) {
	if path, ok := cfg.Sounds[name]; ok {
		return path, nil
	}

	dir := cfg.SoundsDir
	if dir == "" {
		dir = "sounds"
	}
	for _, ext := range []string{".wav", ".mp3", ".ogg"} {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no sound file for %s in %s", name, dir)
}

// play starts the platform player and returns without waiting for playback to finish.
func play(path string) error {
	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{"afplay"}
	case "linux":
		candidates = []string{"paplay", "aplay"}
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	for _, player := range candidates {
		bin, err := exec.LookPath(player)
		if err != nil {
			continue
		}
		return exec.Command(bin, path).Start()
	}
	return errors.New("no audio player found")
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	writeResponse(Response{Success: false, Error: errMsg})
}
