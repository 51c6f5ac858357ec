package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrNoFrames is returned by a MockCamera that was given no frames.
	ErrNoFrames = errors.New("mock camera has no frames")
	// ErrEndOfFrames is returned once a non-looping MockCamera has played every frame.
	ErrEndOfFrames = errors.New("mock camera reached the last frame")
	// ErrReadFailed is the simulated device failure set with SetFailReads.
	ErrReadFailed = errors.New("mock camera read failed")
)

// MockCamera plays back a fixed frame sequence in place of a webcam. It never takes
// ownership of the frames it was given; each ReadFrame hands out a clone.
type MockCamera struct {
	mu      sync.Mutex
	frames  []*gocv.Mat
	next    int
	loop    bool
	open    bool
	failing bool
	fps     int
	reads   int
	reopens int
}

func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{frames: frames, loop: loop, fps: DefaultFPS}
}

// Open rewinds playback to the first frame.
func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	c.next = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

// Reopen clears a simulated failure and keeps the playback position, like a webcam that
// comes back mid-stream.
func (c *MockCamera) Reopen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reopens++
	c.open = true
	c.failing = false
	return nil
}

// SetFailReads makes every ReadFrame return ErrReadFailed until Reopen.
func (c *MockCamera) SetFailReads(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing = fail
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case !c.open:
		return nil, ErrCameraNotOpen
	case c.failing:
		return nil, ErrReadFailed
	case len(c.frames) == 0:
		return nil, ErrNoFrames
	}

	if c.next == len(c.frames) {
		if !c.loop {
			return nil, ErrEndOfFrames
		}
		c.next = 0
	}
	frame := c.frames[c.next].Clone()
	c.next++
	c.reads++
	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	c.fps = fps
	c.mu.Unlock()
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Reads returns how many frames have been handed out.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Reopens returns how many times Reopen was called.
func (c *MockCamera) Reopens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reopens
}
