package detector

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// DNNDetector runs a YOLOv8 ONNX model through the OpenCV DNN module.
type DNNDetector struct {
	config Config
	labels []string
	net    gocv.Net
	mu     sync.Mutex
	closed bool
}

// NewDNNDetector loads the model at cfg.ModelPath.
func NewDNNDetector(cfg Config) (*DNNDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
	}

	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	if cfg.InputSize <= 0 {
		cfg.InputSize = DefaultConfig().InputSize
	}

	return &DNNDetector{
		config: cfg,
		labels: labels,
		net:    net,
	}, nil
}

// Detect runs one forward pass over frame.
func (d *DNNDetector) Detect(frame *gocv.Mat) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrNotStarted
	}
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	size := d.config.InputSize
	blob := gocv.BlobFromImage(*frame, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	return d.decode(out, frame.Cols(), frame.Rows())
}

// decode turns the raw [1, 4+classes, anchors] output into detections after NMS.
func (d *DNNDetector) decode(out gocv.Mat, frameW, frameH int) ([]Detection, error) {
	dims := out.Size()
	if len(dims) != 3 || dims[1] <= 4 {
		return nil, fmt.Errorf("unexpected model output shape %v", dims)
	}
	attrs, anchors := dims[1], dims[2]

	flat := out.Reshape(1, attrs)
	defer flat.Close()
	rows := gocv.NewMat()
	defer rows.Close()
	gocv.Transpose(flat, &rows)

	data, err := rows.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read model output: %w", err)
	}

	sx := float64(frameW) / float64(d.config.InputSize)
	sy := float64(frameH) / float64(d.config.InputSize)
	floor := float32(d.config.MinConfidence)

	var (
		boxes   []image.Rectangle
		scores  []float32
		classes []int
	)
	for i := 0; i < anchors; i++ {
		row := data[i*attrs : (i+1)*attrs]

		best, class := float32(0), -1
		for c, s := range row[4:] {
			if s > best {
				best, class = s, c
			}
		}
		if class < 0 || best < floor {
			continue
		}

		cx, cy, w, h := float64(row[0]), float64(row[1]), float64(row[2]), float64(row[3])
		boxes = append(boxes, image.Rect(
			int((cx-w/2)*sx), int((cy-h/2)*sy),
			int((cx+w/2)*sx), int((cy+h/2)*sy),
		))
		scores = append(scores, best)
		classes = append(classes, class)
	}
	if len(boxes) == 0 {
		return nil, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, floor, float32(d.config.NMSThreshold))

	result := make([]Detection, 0, len(keep))
	for _, k := range keep {
		result = append(result, Detection{
			Label:      d.label(classes[k]),
			Confidence: float64(scores[k]),
			Box:        boxes[k].Intersect(image.Rect(0, 0, frameW, frameH)),
		})
	}
	return result, nil
}

func (d *DNNDetector) label(class int) string {
	if class >= 0 && class < len(d.labels) {
		return d.labels[class]
	}
	return fmt.Sprintf("class_%d", class)
}

// Close releases the network.
func (d *DNNDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}
