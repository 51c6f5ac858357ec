// Package detector recognizes everyday objects in camera frames.
package detector

import (
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"gocv.io/x/gocv"
)

var (
	// ErrModelNotFound is returned when the configured model or service script does not exist.
	ErrModelNotFound = errors.New("detection model not found")

	// ErrNotStarted is returned when a backend is used after Close.
	ErrNotStarted = errors.New("detector not started")
)

// Detection is one recognized object.
type Detection struct {
	Label      string
	Confidence float64
	// Box is in frame pixel coordinates.
	Box image.Rectangle
}

// Detector defines the interface for object recognition backends.
type Detector interface {
	// Detect analyzes a video frame and returns every object found, in no particular order.
	Detect(frame *gocv.Mat) ([]Detection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for object recognition.
type Config struct {
	// Backend is "dnn", "service" or "mock".
	Backend string

	ModelPath  string
	LabelsPath string

	// Python and ServiceScript start the "service" backend.
	Python        string
	ServiceScript string
	IdleTimeout   time.Duration

	// InputSize is the square network input edge in pixels.
	InputSize    int
	NMSThreshold float64

	// MinConfidence is the floor below which results are discarded (0.0-1.0).
	MinConfidence float64
	// MaxResults caps the number of results per poll.
	MaxResults int
	// Cooldown is the minimum spacing between recognizer runs.
	Cooldown time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Backend:       "dnn",
		ModelPath:     "models/yolov8n.onnx",
		Python:        "python3",
		ServiceScript: "scripts/detect_service.py",
		IdleTimeout:   30 * time.Second,
		InputSize:     640,
		NMSThreshold:  0.45,
		MinConfidence: 0.4,
		MaxResults:    10,
		Cooldown:      500 * time.Millisecond,
	}
}

// New builds the backend selected by cfg.Backend.
func New(cfg Config) (Detector, error) {
	switch cfg.Backend {
	case "dnn", "":
		return NewDNNDetector(cfg)
	case "service":
		return NewServiceDetector(cfg)
	case "mock":
		log.Println("Using mock object detector")
		return NewMockDetector(), nil
	default:
		return nil, fmt.Errorf("unknown detection backend %q", cfg.Backend)
	}
}
