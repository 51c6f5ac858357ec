package overlay

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/objecthunter/internal/detector"
	"github.com/ayusman/objecthunter/internal/session"
)

// Palette
var (
	colorWhite    = color.RGBA{255, 255, 255, 0}
	colorGray     = color.RGBA{200, 200, 200, 0}
	colorYellow   = color.RGBA{255, 230, 0, 0}
	colorGreen    = color.RGBA{127, 255, 0, 0}
	colorRed      = color.RGBA{231, 76, 60, 0}
	colorButton   = color.RGBA{255, 195, 0, 0}
	colorHover    = color.RGBA{255, 220, 80, 0}
	colorSelected = color.RGBA{130, 220, 100, 0}
	colorPanel    = gocv.NewScalar(60, 60, 95, 0)
	colorShade    = gocv.NewScalar(0, 0, 0, 0)
)

const font = gocv.FontHersheySimplex

// Scene is everything drawn for one frame.
type Scene struct {
	Snapshot   session.Snapshot
	Regions    []session.Region
	Detections []detector.Detection
	Prompt     string
	Best       int
	CameraOK   bool
}

// Renderer draws game screens onto camera frames.
type Renderer struct {
	Title string
	rules session.Rules
}

// NewRenderer creates a renderer that describes difficulty cards using rules.
func NewRenderer(rules session.Rules) *Renderer {
	return &Renderer{Title: "Object Hunter", rules: rules}
}

// Draw renders sc onto frame in place.
func (r *Renderer) Draw(frame *gocv.Mat, sc Scene) {
	if frame == nil || frame.Empty() {
		return
	}
	snap := sc.Snapshot
	w, h := frame.Cols(), frame.Rows()
	s := newScaler(w, h)

	switch snap.Phase {
	case session.PhaseMenu:
		shade(frame, image.Rect(0, 0, w, h), 0.45, colorShade)
		r.centered(frame, r.Title, s.y(170), 2.0*s.sy, colorYellow, 3)
		r.centered(frame, "Difficulty: "+titleCase(snap.Difficulty.String()), s.y(240), 0.9*s.sy, colorWhite, 2)
		r.buttons(frame, sc.Regions, snap, s)

	case session.PhaseDifficultySelect:
		shade(frame, image.Rect(0, 0, w, h), 0.55, colorShade)
		r.centered(frame, "Choose Difficulty", s.y(120), 1.4*s.sy, colorYellow, 3)
		r.centered(frame, "Click to preview, double-click to select", s.y(170), 0.7*s.sy, colorGray, 1)
		r.buttons(frame, sc.Regions, snap, s)

	case session.PhasePlaying:
		r.detections(frame, sc.Detections, snap.Target)
		r.hud(frame, sc, s)
		r.buttons(frame, sc.Regions, snap, s)

	case session.PhaseGameOver:
		shade(frame, image.Rect(0, 0, w, h), 0.6, colorShade)
		r.centered(frame, "Time's Up!", s.y(200), 2.0*s.sy, colorYellow, 3)
		r.centered(frame, fmt.Sprintf("Score: %d", snap.Score), s.y(290), 1.4*s.sy, colorWhite, 2)
		if sc.Best > 0 {
			r.centered(frame, fmt.Sprintf("Best (%s): %d", snap.Difficulty, sc.Best), s.y(340), 0.9*s.sy, colorGray, 2)
		}
		r.buttons(frame, sc.Regions, snap, s)
	}

	if !sc.CameraOK {
		gocv.PutText(frame, "Camera unavailable", image.Pt(s.x(edgeMargin), h-s.y(edgeMargin)), font, 0.7*s.sy, colorRed, 2)
	}

	if t := snap.Transition; t != nil {
		// Fade in from black over the transition.
		shade(frame, image.Rect(0, 0, w, h), 1-t.Progress(snap.At), colorShade)
	}
}

func (r *Renderer) hud(frame *gocv.Mat, sc Scene, s scaler) {
	snap := sc.Snapshot
	w := frame.Cols()
	shade(frame, image.Rect(0, 0, w, s.y(topBarHeight)), 0.6, colorPanel)
	shade(frame, image.Rect(0, frame.Rows()-s.y(bottomBar), w, frame.Rows()), 0.6, colorPanel)

	textY := s.y(topBarHeight/2 + 10)
	gocv.PutText(frame, fmt.Sprintf("Score: %d", snap.Score), image.Pt(s.x(edgeMargin), textY), font, 0.9*s.sy, colorWhite, 2)

	secs := int(snap.TimeRemaining.Round(time.Second) / time.Second)
	timeColor := colorWhite
	if snap.TimeRemaining <= 10*time.Second {
		timeColor = colorRed
	}
	timeText := fmt.Sprintf("Time: %d", secs)
	size := gocv.GetTextSize(timeText, font, 0.9*s.sy, 2)
	gocv.PutText(frame, timeText, image.Pt(w-size.X-s.x(edgeMargin), textY), font, 0.9*s.sy, timeColor, 2)

	if snap.RoundDuration > 0 {
		frac := float64(snap.TimeRemaining) / float64(snap.RoundDuration)
		bar := image.Rect(0, s.y(topBarHeight)-4, int(float64(w)*frac), s.y(topBarHeight))
		gocv.Rectangle(frame, bar, timeColor, -1)
	}

	if snap.SkipsLimited {
		skips := fmt.Sprintf("Skips: %d", snap.SkipsRemaining)
		gocv.PutText(frame, skips, image.Pt(w/2-s.x(50), frame.Rows()-s.y(bottomBar/2-10)), font, 0.7*s.sy, colorGray, 2)
	}

	if snap.AdvancePending {
		r.centered(frame, "Found it! "+snap.Target, s.y(refHeight/2), 1.6*s.sy, colorGreen, 3)
		return
	}
	if sc.Prompt != "" {
		r.centered(frame, sc.Prompt, s.y(topBarHeight+45), 0.9*s.sy, colorYellow, 2)
	}
}

func (r *Renderer) detections(frame *gocv.Mat, dets []detector.Detection, target string) {
	for _, d := range dets {
		c := colorGray
		if d.Label == target {
			c = colorGreen
		}
		gocv.Rectangle(frame, d.Box, c, 2)
		caption := fmt.Sprintf("%s %.0f%%", d.Label, d.Confidence*100)
		gocv.PutText(frame, caption, image.Pt(d.Box.Min.X, max(d.Box.Min.Y-8, 12)), font, 0.6, c, 2)
	}
}

func (r *Renderer) buttons(frame *gocv.Mat, regions []session.Region, snap session.Snapshot, s scaler) {
	for _, reg := range regions {
		rect := image.Rect(reg.Rect.Min.X, reg.Rect.Min.Y, reg.Rect.Max.X, reg.Rect.Max.Y)

		fill := colorPanel
		border := colorButton
		switch {
		case reg.ID == session.DifficultyElement(snap.Highlighted) && snap.Phase == session.PhaseDifficultySelect:
			border = colorSelected
		case reg.ID == snap.Hover:
			border = colorHover
		}
		shade(frame, rect, 0.7, fill)
		gocv.Rectangle(frame, rect, border, 3)

		caption := Label(reg.ID)
		scale := 0.9 * s.sy
		size := gocv.GetTextSize(caption, font, scale, 2)
		org := image.Pt(rect.Min.X+(rect.Dx()-size.X)/2, rect.Min.Y+(rect.Dy()+size.Y)/2)
		gocv.PutText(frame, caption, org, font, scale, colorWhite, 2)

		if d, ok := cardDifficulty(reg.ID); ok {
			r.cardDetails(frame, rect, d, s)
		}
	}
}

func (r *Renderer) cardDetails(frame *gocv.Mat, rect image.Rectangle, d session.Difficulty, s scaler) {
	lines := CardLines(r.rules, d)
	y := rect.Min.Y + rect.Dy()/2 + s.y(40)
	for _, l := range lines {
		size := gocv.GetTextSize(l, font, 0.6*s.sy, 1)
		gocv.PutText(frame, l, image.Pt(rect.Min.X+(rect.Dx()-size.X)/2, y), font, 0.6*s.sy, colorGray, 1)
		y += s.y(24)
	}
}

// CardLines describes difficulty d for its selection card.
func CardLines(rules session.Rules, d session.Difficulty) []string {
	lvl := rules.Level(d)
	lines := []string{
		fmt.Sprintf("%d seconds", int(lvl.Duration/time.Second)),
		fmt.Sprintf("Confidence %.0f%%", lvl.MinConfidence*100),
		fmt.Sprintf("%d objects", len(lvl.Pool)),
	}
	if d == session.Hard {
		lines = append(lines, fmt.Sprintf("%d skips", rules.SkipBudget))
	}
	return lines
}

func (r *Renderer) centered(frame *gocv.Mat, text string, y int, scale float64, c color.RGBA, thickness int) {
	size := gocv.GetTextSize(text, font, scale, thickness)
	gocv.PutText(frame, text, image.Pt((frame.Cols()-size.X)/2, y), font, scale, c, thickness)
}

// shade blends c over rect with the given opacity.
func shade(frame *gocv.Mat, rect image.Rectangle, alpha float64, c gocv.Scalar) {
	rect = rect.Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if rect.Empty() || alpha <= 0 {
		return
	}
	alpha = min(alpha, 1)

	roi := frame.Region(rect)
	defer roi.Close()
	layer := gocv.NewMatWithSizeFromScalar(c, roi.Rows(), roi.Cols(), roi.Type())
	defer layer.Close()

	gocv.AddWeighted(roi, 1-alpha, layer, alpha, 0, &roi)
}

func cardDifficulty(id session.ElementID) (session.Difficulty, bool) {
	for _, d := range session.Difficulties {
		if session.DifficultyElement(d) == id {
			return d, true
		}
	}
	return session.Normal, false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Encode compresses frame to JPEG.
func Encode(frame gocv.Mat, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}
