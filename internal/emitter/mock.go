package emitter

import (
	"sync"

	"github.com/ayusman/objecthunter/internal/session"
)

// MockEmitter records published events.
type MockEmitter struct {
	mu     sync.Mutex
	events []session.Event
	closed bool
	err    error
}

// NewMockEmitter creates a new mock emitter.
func NewMockEmitter() *MockEmitter {
	return &MockEmitter{}
}

// SetError makes subsequent Publish calls fail with err.
func (m *MockEmitter) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Publish records ev.
func (m *MockEmitter) Publish(ev session.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

// Disconnect marks the mock closed.
func (m *MockEmitter) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Events returns a copy of the recorded events.
func (m *MockEmitter) Events() []session.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]session.Event(nil), m.events...)
}

// Closed reports whether Disconnect was called.
func (m *MockEmitter) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
