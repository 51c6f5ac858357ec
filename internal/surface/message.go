package surface

import (
	"fmt"
	"time"

	"github.com/ayusman/objecthunter/internal/session"
)

// Message types sent to displays.
const (
	MessageState = "state"
	MessageEvent = "event"
)

// Message is one update sent to displays. Exactly one payload is set.
type Message struct {
	Type  string        `json:"type"`
	State *StateMessage `json:"state,omitempty"`
	Event *EventMessage `json:"event,omitempty"`
}

// DetectionMessage is one recognizer result in a state update.
type DetectionMessage struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// StateExtras carries values that are not part of the engine snapshot.
type StateExtras struct {
	Prompt   string
	Best     int
	CameraOK bool
}

// StateMessage is the JSON form of a session snapshot.
type StateMessage struct {
	At              time.Time          `json:"at"`
	Phase           string             `json:"phase"`
	Difficulty      string             `json:"difficulty"`
	Highlighted     string             `json:"highlighted"`
	MinConfidence   float64            `json:"min_confidence"`
	Target          string             `json:"target,omitempty"`
	Prompt          string             `json:"prompt,omitempty"`
	Score           int                `json:"score"`
	Best            int                `json:"best"`
	Found           []string           `json:"found"`
	TimeRemainingMs int64              `json:"time_remaining_ms"`
	RoundDurationMs int64              `json:"round_duration_ms"`
	SkipsLimited    bool               `json:"skips_limited"`
	SkipsRemaining  int                `json:"skips_remaining"`
	Celebrating     bool               `json:"celebrating"`
	Hover           string             `json:"hover,omitempty"`
	Transitioning   bool               `json:"transitioning"`
	CameraOK        bool               `json:"camera_ok"`
	Detections      []DetectionMessage `json:"detections"`
}

// NewStateMessage converts snap for the wire.
func NewStateMessage(snap session.Snapshot, extra StateExtras) *StateMessage {
	dets := make([]DetectionMessage, len(snap.Observations))
	for i, o := range snap.Observations {
		dets[i] = DetectionMessage{Label: o.Label, Confidence: o.Confidence}
	}

	found := snap.Found
	if found == nil {
		found = []string{}
	}

	return &StateMessage{
		At:              snap.At,
		Phase:           snap.Phase.String(),
		Difficulty:      snap.Difficulty.String(),
		Highlighted:     snap.Highlighted.String(),
		MinConfidence:   snap.MinConfidence,
		Target:          snap.Target,
		Prompt:          extra.Prompt,
		Score:           snap.Score,
		Best:            extra.Best,
		Found:           found,
		TimeRemainingMs: snap.TimeRemaining.Milliseconds(),
		RoundDurationMs: snap.RoundDuration.Milliseconds(),
		SkipsLimited:    snap.SkipsLimited,
		SkipsRemaining:  snap.SkipsRemaining,
		Celebrating:     snap.AdvancePending,
		Hover:           string(snap.Hover),
		Transitioning:   snap.Transition != nil,
		CameraOK:        extra.CameraOK,
		Detections:      dets,
	}
}

// TimeRemaining returns the remaining round time.
func (m *StateMessage) TimeRemaining() time.Duration {
	return time.Duration(m.TimeRemainingMs) * time.Millisecond
}

// EventMessage is the JSON form of a session event.
type EventMessage struct {
	Kind       string    `json:"kind"`
	At         time.Time `json:"at"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	Difficulty string    `json:"difficulty,omitempty"`
	Target     string    `json:"target,omitempty"`
	Score      int       `json:"score"`
	Confidence float64   `json:"confidence,omitempty"`
	Action     string    `json:"action,omitempty"`
	Completed  bool      `json:"completed,omitempty"`
	ElapsedMs  int64     `json:"elapsed_ms,omitempty"`
}

// NewEventMessage converts ev for the wire.
func NewEventMessage(ev session.Event) *EventMessage {
	m := &EventMessage{
		Kind:       ev.Kind.String(),
		At:         ev.At,
		Difficulty: ev.Difficulty.String(),
		Target:     ev.Target,
		Score:      ev.Score,
		Confidence: ev.Confidence,
		Completed:  ev.Completed,
		ElapsedMs:  ev.Elapsed.Milliseconds(),
	}
	if ev.Kind == session.EventPhaseChanged {
		m.From = ev.From.String()
		m.To = ev.To.String()
	}
	if ev.Action.Kind != session.ActionNone {
		m.Action = ev.Action.String()
	}
	return m
}

// Client message types received from displays.
const (
	ClientPointer = "pointer"
	ClientExit    = "exit"
)

// ClientMessage is input sent by a remote display.
type ClientMessage struct {
	Type string `json:"type"`
	// Kind is "down" or "move" for pointer messages.
	Kind string `json:"kind,omitempty"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// PointerEvent converts a pointer message.
func (m ClientMessage) PointerEvent() (session.PointerEvent, error) {
	switch m.Kind {
	case "down":
		return session.PointerEvent{Kind: session.PointerDown, X: m.X, Y: m.Y}, nil
	case "move":
		return session.PointerEvent{Kind: session.PointerMove, X: m.X, Y: m.Y}, nil
	}
	return session.PointerEvent{}, fmt.Errorf("unknown pointer kind %q", m.Kind)
}

func errUnknownMessage(t string) error {
	return fmt.Errorf("unknown message type %q", t)
}
