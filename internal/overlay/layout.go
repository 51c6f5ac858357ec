// Package overlay lays out and draws the game screens on top of the camera picture.
package overlay

import (
	"github.com/ayusman/objecthunter/internal/session"
)

// Layout metrics in pixels for a 1280x720 frame. Other sizes are scaled.
const (
	refWidth  = 1280
	refHeight = 720

	buttonWidth   = 320
	buttonHeight  = 60
	menuSpacing   = 80
	cardWidth     = 300
	cardHeight    = 200
	cardGap       = 40
	topBarHeight  = 70
	bottomBar     = 80
	barButtonW    = 200
	barButtonH    = 56
	edgeMargin    = 20
	backButtonW   = 140
	backButtonH   = 50
	gameOverGap   = 40
	gameOverWidth = 260
)

// Element labels shown on buttons.
var labels = map[session.ElementID]string{
	session.ElementStart:      "Start Game",
	session.ElementDifficulty: "Difficulty Settings",
	session.ElementExit:       "Exit Game",
	session.ElementBack:       "Back",
	session.ElementEasy:       "Easy",
	session.ElementNormal:     "Normal",
	session.ElementHard:       "Hard",
	session.ElementNext:       "Next",
	session.ElementQuit:       "Menu",
	session.ElementRestart:    "Play Again",
	session.ElementMenu:       "Main Menu",
}

// Label returns the button caption for id.
func Label(id session.ElementID) string {
	if l, ok := labels[id]; ok {
		return l
	}
	return string(id)
}

// Layout returns the active regions for snap on a width x height frame.
func Layout(snap session.Snapshot, width, height int) []session.Region {
	sc := newScaler(width, height)

	switch snap.Phase {
	case session.PhaseMenu:
		ids := []session.ElementID{session.ElementStart, session.ElementDifficulty, session.ElementExit}
		regions := make([]session.Region, len(ids))
		top := refHeight/2 - buttonHeight
		for i, id := range ids {
			y := top + i*menuSpacing
			regions[i] = session.Region{
				ID:   id,
				Rect: sc.rect(refWidth/2-buttonWidth/2, y, refWidth/2+buttonWidth/2, y+buttonHeight),
			}
		}
		return regions

	case session.PhaseDifficultySelect:
		regions := []session.Region{{
			ID:   session.ElementBack,
			Rect: sc.rect(edgeMargin, edgeMargin, edgeMargin+backButtonW, edgeMargin+backButtonH),
		}}
		total := len(session.Difficulties)*cardWidth + (len(session.Difficulties)-1)*cardGap
		left := refWidth/2 - total/2
		top := refHeight/2 - cardHeight/2
		for i, d := range session.Difficulties {
			x := left + i*(cardWidth+cardGap)
			regions = append(regions, session.Region{
				ID:          session.DifficultyElement(d),
				Rect:        sc.rect(x, top, x+cardWidth, top+cardHeight),
				DoubleClick: true,
			})
		}
		return regions

	case session.PhasePlaying:
		y := refHeight - bottomBar + (bottomBar-barButtonH)/2
		return []session.Region{
			{ID: session.ElementQuit, Rect: sc.rect(edgeMargin, y, edgeMargin+barButtonW, y+barButtonH)},
			{ID: session.ElementNext, Rect: sc.rect(refWidth-edgeMargin-barButtonW, y, refWidth-edgeMargin, y+barButtonH)},
		}

	case session.PhaseGameOver:
		y := refHeight/2 + 100
		left := refWidth/2 - gameOverWidth - gameOverGap/2
		right := refWidth/2 + gameOverGap/2
		return []session.Region{
			{ID: session.ElementRestart, Rect: sc.rect(left, y, left+gameOverWidth, y+buttonHeight)},
			{ID: session.ElementMenu, Rect: sc.rect(right, y, right+gameOverWidth, y+buttonHeight)},
		}
	}
	return nil
}

// scaler maps reference coordinates onto the actual frame size.
type scaler struct {
	sx, sy float64
}

func newScaler(width, height int) scaler {
	if width <= 0 || height <= 0 {
		return scaler{1, 1}
	}
	return scaler{float64(width) / refWidth, float64(height) / refHeight}
}

func (s scaler) x(v int) int { return int(float64(v) * s.sx) }
func (s scaler) y(v int) int { return int(float64(v) * s.sy) }

func (s scaler) rect(x0, y0, x1, y1 int) session.Rect {
	return session.R(s.x(x0), s.y(y0), s.x(x1), s.y(y1))
}
