package app

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/objecthunter/internal/capture"
	"github.com/ayusman/objecthunter/internal/detector"
	"github.com/ayusman/objecthunter/internal/overlay"
	"github.com/ayusman/objecthunter/internal/session"
	"github.com/ayusman/objecthunter/internal/store"
	"github.com/ayusman/objecthunter/internal/surface"
)

// runLoop ticks the game once per frame interval until stopCh closes or the player exits.
func (a *App) runLoop(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FrameRate))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			if res := a.Step(now); res.Exit {
				return
			}
		}
	}
}

// Step runs one frame: read the camera, tick the engine, handle its events, draw and publish.
//
// Regions are laid out from the state the player was looking at, so a click lands on the
// element drawn in the previous frame.
func (a *App) Step(now time.Time) session.Result {
	frame := a.readFrame()
	defer frame.Close()

	before := a.engine.Snapshot()
	regions := overlay.Layout(before, frame.Cols(), frame.Rows())

	in := session.Input{
		Now:     now,
		Pointer: a.surface.TakePointer(),
		Regions: regions,
		Exit:    a.surface.ExitRequested(),
	}
	if a.IsEnabled() {
		in.Source = a.source.For(&frame)
	}

	res := a.engine.Tick(in)
	for _, ev := range res.Events {
		a.handleEvent(ev)
	}

	snap := a.engine.Snapshot()
	a.render(&frame, snap)

	if res.Exit {
		a.requestExit()
	}
	return res
}

// readFrame returns the next camera frame, or a black frame when the camera fails.
// Repeated failures trigger a reopen.
func (a *App) readFrame() gocv.Mat {
	mat, err := a.config.Camera.ReadFrame()
	if err == nil {
		if a.readErrors > 0 {
			log.Printf("Camera recovered after %d failed reads", a.readErrors)
		}
		a.readErrors = 0
		a.cameraOK = true
		a.frameWidth, a.frameHeight = mat.Cols(), mat.Rows()
		return *mat
	}

	a.readErrors++
	a.cameraOK = false
	if a.readErrors == 1 {
		log.Printf("Error reading frame: %v", err)
	}
	if a.readErrors%ReconnectEvery == 0 {
		log.Printf("Reopening camera after %d failed reads", a.readErrors)
		if err := a.config.Camera.Reopen(); err != nil {
			log.Printf("Camera reopen failed: %v", err)
		}
	}
	return capture.BlankFrame(a.frameWidth, a.frameHeight)
}

func (a *App) render(frame *gocv.Mat, snap session.Snapshot) {
	var (
		dets   []detector.Detection
		prompt string
	)
	if snap.Playing() {
		dets = a.source.Last()
		prompt = a.prompter.Prompt(snap.Target, snap.TimeRemaining)
	}
	best := a.bestScore(snap.Difficulty)

	a.renderer.Draw(frame, overlay.Scene{
		Snapshot:   snap,
		Regions:    overlay.Layout(snap, frame.Cols(), frame.Rows()),
		Detections: dets,
		Prompt:     prompt,
		Best:       best,
		CameraOK:   a.cameraOK,
	})

	a.mu.RLock()
	onFrame, onState := a.onFrame, a.onState
	a.mu.RUnlock()

	if onFrame != nil {
		onFrame(frame)
	}

	if jpeg, err := overlay.Encode(*frame, a.config.JPEGQuality); err != nil {
		log.Printf("Error encoding frame: %v", err)
	} else {
		a.surface.PublishFrame(jpeg)
	}

	a.surface.PublishState(snap, surface.StateExtras{Prompt: prompt, Best: best, CameraOK: a.cameraOK})
	if onState != nil {
		onState(snap)
	}
}

// handleEvent records rounds and fans ev out to plugins, the emitter and surface subscribers.
func (a *App) handleEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventRoundStarted:
		a.round = &roundRecord{id: uuid.NewString(), startedAt: ev.At}
		a.source.Reset()

	case session.EventTargetFound:
		if a.round != nil {
			a.round.finds = append(a.round.finds, store.Find{
				RoundID:    a.round.id,
				Sequence:   len(a.round.finds),
				Label:      ev.Target,
				Confidence: ev.Confidence,
				FoundAt:    ev.At,
			})
		}

	case session.EventRoundEnded:
		a.saveRound(ev)
		a.round = nil

	case session.EventDifficultyCommitted:
		if a.config.Store != nil {
			if err := a.config.Store.Settings().Set(store.SettingDifficulty, ev.Difficulty.String()); err != nil {
				log.Printf("Failed to save difficulty: %v", err)
			}
		}
	}

	a.surface.PublishEvent(ev)
	if a.config.Plugins != nil {
		a.config.Plugins.Dispatch(ev)
	}
	if a.config.Emitter != nil {
		if err := a.config.Emitter.Publish(ev); err != nil {
			log.Printf("Failed to emit %s: %v", ev.Kind, err)
		}
	}
}

func (a *App) saveRound(ev session.Event) {
	if ev.Completed && ev.Score > a.bestScore(ev.Difficulty) {
		a.best[ev.Difficulty] = ev.Score
	}
	if a.config.Store == nil || a.round == nil {
		return
	}

	rd := &store.Round{
		ID:         a.round.id,
		Player:     a.config.Player,
		Difficulty: ev.Difficulty.String(),
		Score:      ev.Score,
		Duration:   ev.Elapsed,
		SkipsUsed:  ev.SkipsUsed,
		Completed:  ev.Completed,
		StartedAt:  a.round.startedAt,
		EndedAt:    ev.At,
	}
	if err := a.config.Store.Rounds().Create(rd); err != nil {
		log.Printf("Failed to save round: %v", err)
		return
	}
	if err := a.config.Store.Rounds().AddFinds(rd.ID, a.round.finds); err != nil {
		log.Printf("Failed to save finds for round %s: %v", rd.ID, err)
	}
	log.Printf("Round %s saved: %s score %d", rd.ID, rd.Difficulty, rd.Score)
}

// bestScore returns the best completed score for d, loading it from the store once.
func (a *App) bestScore(d session.Difficulty) int {
	if best, ok := a.best[d]; ok {
		return best
	}
	best := 0
	if a.config.Store != nil {
		var err error
		if best, err = a.config.Store.Rounds().Best(d.String()); err != nil {
			log.Printf("Failed to load best score: %v", err)
		}
	}
	a.best[d] = best
	return best
}
