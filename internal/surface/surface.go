// Package surface is the boundary between the game loop and whatever displays it: it queues
// pointer input, carries the exit request, and fans out rendered frames and state updates.
package surface

import (
	"context"
	"sync"

	"github.com/ayusman/objecthunter/internal/session"
)

// subscriberBuffer is the per-subscriber message backlog before messages are dropped.
const subscriberBuffer = 32

// Surface is safe for concurrent use. The game loop is its only consumer of input and its
// only producer of frames and state.
type Surface struct {
	mu      sync.Mutex
	pointer *session.PointerEvent
	exit    bool

	frame    []byte
	frameSeq uint64
	frameCh  chan struct{}

	subs    map[chan Message]struct{}
	last    *Message
	dropped int
}

// New creates an empty surface.
func New() *Surface {
	return &Surface{
		frameCh: make(chan struct{}),
		subs:    make(map[chan Message]struct{}),
	}
}

// PushPointer queues a pointer event for the next frame. Only one event is kept: a newer
// event replaces an older one, except that a pending click is not replaced by a move.
func (s *Surface) PushPointer(ev session.PointerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pointer != nil && s.pointer.Kind == session.PointerDown && ev.Kind == session.PointerMove {
		return
	}
	s.pointer = &ev
}

// TakePointer returns and clears the queued pointer event, or nil.
func (s *Surface) TakePointer() *session.PointerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := s.pointer
	s.pointer = nil
	return ev
}

// RequestExit asks the game loop to shut down.
func (s *Surface) RequestExit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exit = true
}

// ExitRequested reports whether RequestExit was called.
func (s *Surface) ExitRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exit
}

// PublishFrame stores the latest encoded frame and wakes every waiter.
func (s *Surface) PublishFrame(jpeg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frame = jpeg
	s.frameSeq++
	close(s.frameCh)
	s.frameCh = make(chan struct{})
}

// Frame returns the latest encoded frame and its sequence number. The slice must not be
// modified.
func (s *Surface) Frame() ([]byte, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame, s.frameSeq
}

// WaitFrame blocks until a frame newer than after is published or ctx is done.
func (s *Surface) WaitFrame(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		s.mu.Lock()
		if s.frameSeq > after {
			frame, seq := s.frame, s.frameSeq
			s.mu.Unlock()
			return frame, seq, nil
		}
		ch := s.frameCh
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}
}

// Publish sends msg to every subscriber. A subscriber whose backlog is full misses it.
// The latest state message is replayed to new subscribers.
func (s *Surface) Publish(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Type == MessageState {
		m := msg
		s.last = &m
	}

	for ch := range s.subs {
		select {
		case ch <- msg:
		default:
			s.dropped++
		}
	}
}

// PublishState publishes a state message for snap.
func (s *Surface) PublishState(snap session.Snapshot, extra StateExtras) {
	s.Publish(Message{Type: MessageState, State: NewStateMessage(snap, extra)})
}

// PublishEvent publishes a game event.
func (s *Surface) PublishEvent(ev session.Event) {
	s.Publish(Message{Type: MessageEvent, Event: NewEventMessage(ev)})
}

// Subscribe returns a channel of messages and a function that ends the subscription.
func (s *Surface) Subscribe() (<-chan Message, func()) {
	ch := make(chan Message, subscriberBuffer)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	if s.last != nil {
		ch <- *s.last
	}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of active subscriptions.
func (s *Surface) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Dropped returns how many messages were not delivered to slow subscribers.
func (s *Surface) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// HandleClient applies a message received from a remote display.
func (s *Surface) HandleClient(msg ClientMessage) error {
	switch msg.Type {
	case ClientExit:
		s.RequestExit()
		return nil
	case ClientPointer:
		ev, err := msg.PointerEvent()
		if err != nil {
			return err
		}
		s.PushPointer(ev)
		return nil
	default:
		return errUnknownMessage(msg.Type)
	}
}
