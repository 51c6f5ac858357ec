// Package app wires the camera, recognizer, session engine, overlay and render surface into the
// Object Hunter game loop.
package app

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/objecthunter/internal/capture"
	"github.com/ayusman/objecthunter/internal/detector"
	"github.com/ayusman/objecthunter/internal/emitter"
	"github.com/ayusman/objecthunter/internal/overlay"
	"github.com/ayusman/objecthunter/internal/plugin"
	"github.com/ayusman/objecthunter/internal/session"
	"github.com/ayusman/objecthunter/internal/store"
	"github.com/ayusman/objecthunter/internal/surface"
)

// Loop defaults.
const (
	DefaultFrameRate   = 30
	DefaultJPEGQuality = 80
	// ReconnectEvery is how many consecutive failed reads trigger a camera reopen.
	ReconnectEvery = 30
)

// Config holds the components the game loop drives. Store, Plugins and Emitter are optional.
type Config struct {
	Rules     session.Rules
	Camera    capture.Camera
	Detector  detector.Detector
	Detection detector.Config
	Surface   *surface.Surface

	Store   *store.Store
	Player  string
	Plugins *plugin.Dispatcher
	Emitter emitter.Emitter

	PromptStyle string
	FrameRate   int
	Width       int
	Height      int
	JPEGQuality int
	Rand        *rand.Rand
}

// App runs the game loop: one engine tick per rendered frame.
type App struct {
	config   Config
	engine   *session.Engine
	source   *detector.Source
	renderer *overlay.Renderer
	prompter *overlay.Prompter
	surface  *surface.Surface

	// Loop-owned state.
	round       *roundRecord
	best        map[session.Difficulty]int
	readErrors  int
	cameraOK    bool
	frameWidth  int
	frameHeight int

	mu       sync.RWMutex
	enabled  bool
	onState  func(session.Snapshot)
	onFrame  func(*gocv.Mat)
	stopCh   chan struct{}
	loopDone chan struct{}
	exitCh   chan struct{}
	exitOnce sync.Once
}

// roundRecord accumulates a round until it ends.
type roundRecord struct {
	id        string
	startedAt time.Time
	finds     []store.Find
}

// New creates the app. The saved difficulty, if any, replaces the configured default.
func New(cfg Config) (*App, error) {
	if cfg.Camera == nil {
		return nil, errors.New("app: camera is required")
	}
	if cfg.Detector == nil {
		return nil, errors.New("app: detector is required")
	}
	if cfg.Surface == nil {
		cfg.Surface = surface.New()
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = DefaultJPEGQuality
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = capture.DefaultWidth, capture.DefaultHeight
	}
	if cfg.Player == "" {
		cfg.Player = "player"
	}

	rules := cfg.Rules
	if cfg.Store != nil {
		if saved, err := cfg.Store.Settings().Get(store.SettingDifficulty); err == nil {
			if d, err := session.ParseDifficulty(saved); err == nil {
				rules.DefaultDifficulty = d
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Failed to load saved difficulty: %v", err)
		}
	}

	var opts []session.Option
	if cfg.Rand != nil {
		opts = append(opts, session.WithRand(cfg.Rand))
	}
	engine, err := session.NewEngine(rules, opts...)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	return &App{
		config:      cfg,
		engine:      engine,
		source:      detector.NewSource(cfg.Detector, cfg.Detection),
		renderer:    overlay.NewRenderer(rules),
		prompter:    overlay.NewPrompter(cfg.PromptStyle, cfg.Rand),
		surface:     cfg.Surface,
		best:        make(map[session.Difficulty]int),
		cameraOK:    true,
		frameWidth:  cfg.Width,
		frameHeight: cfg.Height,
		enabled:     true,
		exitCh:      make(chan struct{}),
	}, nil
}

// SetEnabled pauses or resumes the recognizer. The game keeps rendering while paused.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether the recognizer is running.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// OnState registers a callback that receives the snapshot after every tick.
// It runs on the loop goroutine and must not block.
func (a *App) OnState(fn func(session.Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onState = fn
}

// OnFrame registers a callback that receives every rendered frame before it is encoded.
// The frame is only valid for the duration of the call.
func (a *App) OnFrame(fn func(*gocv.Mat)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onFrame = fn
}

// Start opens the camera and runs the game loop in the background.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.config.Camera.Open(); err != nil {
		return err
	}
	a.config.Camera.SetFPS(a.config.FrameRate)

	a.stopCh = make(chan struct{})
	a.loopDone = make(chan struct{})
	go a.runLoop(a.stopCh, a.loopDone)

	log.Printf("Game loop started at %d fps", a.config.FrameRate)
	return nil
}

// Stop halts the game loop and releases the camera and recognizer.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, loopDone := a.stopCh, a.loopDone
	a.stopCh, a.loopDone = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-loopDone
	}

	if err := a.config.Camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	if err := a.config.Detector.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
	}

	log.Println("Game loop stopped")
}

// Done is closed once the player asks to exit.
func (a *App) Done() <-chan struct{} {
	return a.exitCh
}

// Engine returns the session engine. It must only be driven from the loop goroutine.
func (a *App) Engine() *session.Engine {
	return a.engine
}

// Surface returns the render surface.
func (a *App) Surface() *surface.Surface {
	return a.surface
}

// Source returns the recognizer source.
func (a *App) Source() *detector.Source {
	return a.source
}

// CameraOK reports whether the last frame came from the camera.
func (a *App) CameraOK() bool {
	return a.cameraOK
}

func (a *App) requestExit() {
	a.exitOnce.Do(func() {
		close(a.exitCh)
		log.Println("Exit requested")
	})
}
