package surface

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ayusman/objecthunter/internal/session"
)

func TestSurface_PointerCoalescing(t *testing.T) {
	tests := []struct {
		name   string
		events []session.PointerEvent
		want   *session.PointerEvent
	}{
		{
			name: "empty queue",
			want: nil,
		},
		{
			name: "latest move wins",
			events: []session.PointerEvent{
				{Kind: session.PointerMove, X: 1, Y: 1},
				{Kind: session.PointerMove, X: 2, Y: 2},
			},
			want: &session.PointerEvent{Kind: session.PointerMove, X: 2, Y: 2},
		},
		{
			name: "click survives later move",
			events: []session.PointerEvent{
				{Kind: session.PointerDown, X: 5, Y: 5},
				{Kind: session.PointerMove, X: 9, Y: 9},
			},
			want: &session.PointerEvent{Kind: session.PointerDown, X: 5, Y: 5},
		},
		{
			name: "latest click wins",
			events: []session.PointerEvent{
				{Kind: session.PointerDown, X: 5, Y: 5},
				{Kind: session.PointerDown, X: 7, Y: 7},
			},
			want: &session.PointerEvent{Kind: session.PointerDown, X: 7, Y: 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			for _, ev := range tt.events {
				s.PushPointer(ev)
			}

			got := s.TakePointer()
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("TakePointer() = %+v, want nil", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("TakePointer() = %v, want %+v", got, *tt.want)
			}

			if s.TakePointer() != nil {
				t.Error("TakePointer() should clear the queue")
			}
		})
	}
}

func TestSurface_Exit(t *testing.T) {
	s := New()
	if s.ExitRequested() {
		t.Fatal("exit requested on a new surface")
	}

	if err := s.HandleClient(ClientMessage{Type: ClientExit}); err != nil {
		t.Fatalf("HandleClient() error = %v", err)
	}
	if !s.ExitRequested() {
		t.Error("exit message did not request exit")
	}
}

func TestSurface_HandleClient(t *testing.T) {
	s := New()

	if err := s.HandleClient(ClientMessage{Type: ClientPointer, Kind: "down", X: 10, Y: 20}); err != nil {
		t.Fatalf("HandleClient() error = %v", err)
	}
	ev := s.TakePointer()
	if ev == nil || ev.Kind != session.PointerDown || ev.X != 10 || ev.Y != 20 {
		t.Errorf("queued pointer = %v", ev)
	}

	if err := s.HandleClient(ClientMessage{Type: ClientPointer, Kind: "drag"}); err == nil {
		t.Error("expected error for unknown pointer kind")
	}
	if err := s.HandleClient(ClientMessage{Type: "dance"}); err == nil {
		t.Error("expected error for unknown message type")
	}
}

func TestSurface_WaitFrame(t *testing.T) {
	s := New()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan []byte, 1)
	go func() {
		frame, _, err := s.WaitFrame(ctx, 0)
		if err != nil {
			done <- nil
			return
		}
		done <- frame
	}()

	time.Sleep(10 * time.Millisecond)
	s.PublishFrame([]byte("jpeg-1"))

	select {
	case got := <-done:
		if string(got) != "jpeg-1" {
			t.Errorf("WaitFrame() = %q, want jpeg-1", got)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitFrame() did not wake on publish")
	}

	frame, seq := s.Frame()
	if string(frame) != "jpeg-1" || seq != 1 {
		t.Errorf("Frame() = (%q, %d)", frame, seq)
	}

	// A frame newer than the caller's sequence returns immediately.
	if got, _, err := s.WaitFrame(ctx, 0); err != nil || string(got) != "jpeg-1" {
		t.Errorf("WaitFrame(0) = (%q, %v)", got, err)
	}
}

func TestSurface_WaitFrameCancelled(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := s.WaitFrame(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("WaitFrame() error = %v, want context.Canceled", err)
	}
}

func TestSurface_Subscribe(t *testing.T) {
	s := New()
	snap := session.Snapshot{Phase: session.PhasePlaying, Target: "cup", Score: 2, TimeRemaining: 12 * time.Second}

	s.PublishState(snap, StateExtras{Best: 9})

	ch, cancel := s.Subscribe()
	if s.Subscribers() != 1 {
		t.Errorf("Subscribers() = %d, want 1", s.Subscribers())
	}

	// Late subscribers get the latest state first.
	msg := <-ch
	if msg.Type != MessageState || msg.State.Target != "cup" || msg.State.Best != 9 {
		t.Errorf("replayed message = %+v", msg)
	}

	s.PublishEvent(session.Event{Kind: session.EventTargetFound, Target: "cup", Score: 3})
	msg = <-ch
	if msg.Type != MessageEvent || msg.Event.Kind != "target_found" || msg.Event.Score != 3 {
		t.Errorf("event message = %+v", msg)
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	if s.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after cancel, want 0", s.Subscribers())
	}
}

func TestSurface_SlowSubscriberDrops(t *testing.T) {
	s := New()
	_, cancel := s.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		s.PublishEvent(session.Event{Kind: session.EventTargetSelected})
	}

	if s.Dropped() != 5 {
		t.Errorf("Dropped() = %d, want 5", s.Dropped())
	}
}

func TestStateMessage_JSON(t *testing.T) {
	snap := session.Snapshot{
		Phase:          session.PhasePlaying,
		Difficulty:     session.Hard,
		Target:         "scissors",
		TimeRemaining:  12500 * time.Millisecond,
		SkipsLimited:   true,
		SkipsRemaining: 1,
		Observations:   []session.Observation{{Label: "cup", Confidence: 0.7}},
	}

	data, err := json.Marshal(Message{Type: MessageState, State: NewStateMessage(snap, StateExtras{CameraOK: true})})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	st := decoded.State
	if st == nil || st.Phase != "playing" || st.Difficulty != "hard" || st.Target != "scissors" {
		t.Fatalf("state = %+v", st)
	}
	if st.TimeRemaining() != 12500*time.Millisecond {
		t.Errorf("TimeRemaining() = %v", st.TimeRemaining())
	}
	if len(st.Detections) != 1 || st.Detections[0].Label != "cup" {
		t.Errorf("Detections = %v", st.Detections)
	}
	if st.Found == nil {
		t.Error("Found should encode as an empty list")
	}
}
