// Package hud is a terminal spectator for a running game. It follows the state websocket and
// shows the phase, the current target, the score and the round clock.
package hud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ayusman/objecthunter/internal/surface"
)

// maxEvents is how many recent events the log keeps.
const maxEvents = 8

// Model is the root Bubble Tea model.
type Model struct {
	client *Client
	ctx    context.Context
	cancel context.CancelFunc

	keys  KeyMap
	help  help.Model
	width int

	state      *surface.StateMessage
	events     []string
	showEvents bool
	connected  bool
}

// New creates the HUD model. A nil client gives a model that only reacts to messages.
func New(client *Client) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		client:     client,
		ctx:        ctx,
		cancel:     cancel,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		showEvents: true,
	}
}

// Init starts the websocket connection.
func (m Model) Init() tea.Cmd {
	if m.client == nil {
		return nil
	}
	return m.client.Listen(m.ctx)
}

func (m Model) read() tea.Cmd {
	if m.client == nil {
		return nil
	}
	return m.client.ReadLoop(m.ctx)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ConnectedMsg:
		m.connected = true
		return m, m.read()

	case DisconnectedMsg:
		m.connected = false
		if m.client == nil {
			return m, nil
		}
		return m, m.client.Listen(m.ctx)

	case StateMsg:
		m.state = msg.State
		return m, m.read()

	case EventMsg:
		if line := describeEvent(msg.Event); line != "" {
			m.events = append(m.events, line)
			if len(m.events) > maxEvents {
				m.events = m.events[len(m.events)-maxEvents:]
			}
		}
		return m, m.read()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		if m.client != nil {
			m.client.Close()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.ExitGame):
		if m.client == nil {
			return m, nil
		}
		client := m.client
		return m, func() tea.Msg {
			if err := client.RequestExit(); err != nil {
				return DisconnectedMsg{Err: err}
			}
			return nil
		}

	case key.Matches(msg, m.keys.Events):
		m.showEvents = !m.showEvents
		return m, nil
	}
	return m, nil
}

// View renders the HUD.
func (m Model) View() string {
	var b strings.Builder

	status := badStyle.Render("○ disconnected")
	if m.connected {
		status = goodStyle.Render("● live")
	}
	b.WriteString(titleStyle.Render("OBJECT HUNTER") + "  " + status + "\n\n")

	if m.state == nil {
		b.WriteString(dimStyle.Render("Waiting for the game...") + "\n")
	} else {
		b.WriteString(panelStyle.Render(m.stateView()) + "\n")
	}

	if m.showEvents && len(m.events) > 0 {
		b.WriteString("\n" + dimStyle.Render("Recent events") + "\n")
		for _, line := range m.events {
			b.WriteString("  " + line + "\n")
		}
	}

	b.WriteString("\n" + m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m Model) stateView() string {
	s := m.state
	var lines []string

	switch s.Phase {
	case "menu":
		lines = append(lines, "Main menu", dimStyle.Render("Difficulty: "+s.Difficulty))
	case "difficulty":
		lines = append(lines, "Choosing difficulty", "Highlighted: "+targetStyle.Render(s.Highlighted))
	case "playing":
		target := s.Target
		if target == "" {
			target = "-"
		}
		lines = append(lines,
			"Find: "+targetStyle.Render(target),
			fmt.Sprintf("Score: %d   Best: %d", s.Score, s.Best),
			"Time:  "+timeBar(s.TimeRemaining(), time.Duration(s.RoundDurationMs)*time.Millisecond, 24),
		)
		if s.SkipsLimited {
			lines = append(lines, fmt.Sprintf("Skips: %d", s.SkipsRemaining))
		}
		if s.Celebrating {
			lines = append(lines, goodStyle.Render("Found it!"))
		}
		if len(s.Found) > 0 {
			lines = append(lines, dimStyle.Render("Found: "+strings.Join(s.Found, ", ")))
		}
	case "game_over":
		lines = append(lines,
			"Round over",
			fmt.Sprintf("Score: %d   Best: %d", s.Score, s.Best),
		)
	default:
		lines = append(lines, s.Phase)
	}

	if !s.CameraOK {
		lines = append(lines, badStyle.Render("Camera unavailable"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// timeBar renders remaining out of total as a bar of width cells followed by the seconds left.
func timeBar(remaining, total time.Duration, width int) string {
	filled := 0
	if total > 0 {
		filled = int(float64(width) * float64(remaining) / float64(total))
	}
	filled = max(0, min(width, filled))
	secs := int((remaining + time.Second - 1) / time.Second)
	return barStyle.Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %ds", max(secs, 0))
}

// describeEvent returns a one-line summary of ev, or "" for events not worth listing.
func describeEvent(ev *surface.EventMessage) string {
	switch ev.Kind {
	case "round_started":
		return "Round started on " + ev.Difficulty
	case "target_found":
		return goodStyle.Render(fmt.Sprintf("Found %s (%.0f%%), score %d", ev.Target, ev.Confidence*100, ev.Score))
	case "target_selected":
		return "New target: " + ev.Target
	case "action_rejected":
		return badStyle.Render("Rejected: " + ev.Action)
	case "difficulty_committed":
		return "Difficulty set to " + ev.Difficulty
	case "round_ended":
		if ev.Completed {
			return fmt.Sprintf("Round over, score %d", ev.Score)
		}
		return fmt.Sprintf("Round abandoned at score %d", ev.Score)
	case "exit_requested":
		return "Game is shutting down"
	}
	return ""
}
