package detector

import (
	"log"
	"slices"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/objecthunter/internal/session"
)

// Source rate-limits a Detector and shapes its output for the game: results below the
// confidence floor are dropped, the rest are ranked by confidence and capped.
//
// Poll runs the detector at most once per cooldown. When it declines, because of the cooldown
// or a detector failure, it returns the previous results with fresh set to false. Results
// older than twice the cooldown do not survive a failure: the poll then reports an empty fresh
// set so nothing keeps scoring off a frame the recognizer can no longer see.
type Source struct {
	det        Detector
	cooldown   time.Duration
	floor      float64
	maxResults int

	mu      sync.Mutex
	lastRun  time.Time
	lastGood time.Time
	last     []Detection
	errs     int
}

// NewSource wraps det with the cooldown, floor and cap from cfg.
func NewSource(det Detector, cfg Config) *Source {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultConfig().MaxResults
	}
	return &Source{
		det:        det,
		cooldown:   cfg.Cooldown,
		floor:      cfg.MinConfidence,
		maxResults: maxResults,
	}
}

// Poll returns the ranked detections for frame.
func (s *Source) Poll(frame *gocv.Mat, now time.Time) ([]Detection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastRun.IsZero() && now.Sub(s.lastRun) < s.cooldown {
		return slices.Clone(s.last), false
	}
	s.lastRun = now

	raw, err := s.det.Detect(frame)
	if err != nil {
		s.errs++
		if s.errs == 1 || s.errs%50 == 0 {
			log.Printf("Object detection failed (%d so far): %v", s.errs, err)
		}
		if s.last != nil && now.Sub(s.lastGood) > 2*s.cooldown {
			s.last = nil
			return nil, true
		}
		return slices.Clone(s.last), false
	}

	s.lastGood = now
	s.last = rank(raw, s.floor, s.maxResults)
	return slices.Clone(s.last), true
}

// Last returns the most recent results without running the detector.
func (s *Source) Last() []Detection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.last)
}

// Reset forgets cached results so the next Poll runs the detector.
func (s *Source) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = nil
	s.lastRun = time.Time{}
	s.lastGood = time.Time{}
}

// Failures returns how many detector calls have failed.
func (s *Source) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs
}

// For binds the source to the current frame so the session engine can poll it.
func (s *Source) For(frame *gocv.Mat) session.DetectionSource {
	return frameSource{src: s, frame: frame}
}

type frameSource struct {
	src   *Source
	frame *gocv.Mat
}

func (f frameSource) Poll(now time.Time) ([]session.Observation, bool) {
	dets, fresh := f.src.Poll(f.frame, now)
	return Observations(dets), fresh
}

// Observations converts detections into the engine's label/confidence pairs.
func Observations(dets []Detection) []session.Observation {
	if len(dets) == 0 {
		return nil
	}
	obs := make([]session.Observation, len(dets))
	for i, d := range dets {
		obs[i] = session.Observation{Label: d.Label, Confidence: d.Confidence}
	}
	return obs
}

func rank(raw []Detection, floor float64, limit int) []Detection {
	out := make([]Detection, 0, len(raw))
	for _, d := range raw {
		if d.Confidence >= floor {
			out = append(out, d)
		}
	}
	slices.SortStableFunc(out, func(a, b Detection) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		}
		return 0
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
