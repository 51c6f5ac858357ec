package detector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gocv.io/x/gocv"
)

// maxMessageSize bounds a single framed message from the service.
const maxMessageSize = 16 << 20

// ServiceDetector implements Detector with an external recognizer process.
//
// Frames are sent as JPEG inside a msgpack request on stdin and results come back as a
// msgpack response on stdout. Every message is prefixed with its length as a 4-byte
// big-endian integer. The process is started on first use and stopped after IdleTimeout
// without requests.
type ServiceDetector struct {
	config    Config
	script    string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	lastUsed  time.Time
	idleTimer *time.Timer
}

type serviceRequest struct {
	Image         []byte  `msgpack:"image"`
	Width         int     `msgpack:"width"`
	Height        int     `msgpack:"height"`
	MinConfidence float64 `msgpack:"min_confidence"`
}

type serviceDetection struct {
	Label      string  `msgpack:"label"`
	Confidence float64 `msgpack:"confidence"`
	Box        [4]int  `msgpack:"box"`
}

type serviceResponse struct {
	Detections []serviceDetection `msgpack:"detections"`
	Error      string             `msgpack:"error"`
}

// NewServiceDetector creates a detector backed by cfg.ServiceScript.
// The process is started lazily on first detection.
func NewServiceDetector(cfg Config) (*ServiceDetector, error) {
	script := findServiceScript(cfg.ServiceScript)
	if script == "" {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ServiceScript)
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultConfig().IdleTimeout
	}

	return &ServiceDetector{
		config: cfg,
		script: script,
	}, nil
}

// Detect sends frame to the service and waits for its answer.
func (d *ServiceDetector) Detect(frame *gocv.Mat) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return nil, nil
	}

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	req := serviceRequest{
		Image:         buf.GetBytes(),
		Width:         frame.Cols(),
		Height:        frame.Rows(),
		MinConfidence: d.config.MinConfidence,
	}

	var resp serviceResponse
	if err := d.roundTrip(&req, &resp); err != nil {
		// The stream is out of sync after a partial exchange; restart on next use.
		d.shutdown()
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("detect service: %s", resp.Error)
	}

	result := make([]Detection, len(resp.Detections))
	for i, det := range resp.Detections {
		result[i] = Detection{
			Label:      det.Label,
			Confidence: det.Confidence,
			Box:        image.Rect(det.Box[0], det.Box[1], det.Box[2], det.Box[3]),
		}
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()

	return result, nil
}

func (d *ServiceDetector) roundTrip(req *serviceRequest, resp *serviceResponse) error {
	payload, err := msgpack.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	if err := writeFrame(d.stdin, payload); err != nil {
		return err
	}

	data, err := readFrame(d.stdout)
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(data, resp); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// writeFrame writes payload with its 4-byte big-endian length prefix.
func writeFrame(w io.Writer, payload []byte) error {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(payload)))

	if _, err := w.Write(length); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed message.
func readFrame(r io.Reader) ([]byte, error) {
	length := make([]byte, 4)
	if _, err := io.ReadFull(r, length); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}

	n := binary.BigEndian.Uint32(length)
	if n > maxMessageSize {
		return nil, fmt.Errorf("response of %d bytes exceeds limit", n)
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	return data, nil
}

// Close shuts down the service process.
func (d *ServiceDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *ServiceDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	python := d.config.Python
	if venv := findVenvPython(); venv != "" {
		python = venv
	}
	if python == "" {
		python = "python3"
	}

	d.cmd = exec.Command(python, d.script)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start detect service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.lastUsed = time.Now()

	return nil
}

func (d *ServiceDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("detect service exited: %w", err)
	}
	return err
}

func (d *ServiceDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.config.IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if time.Since(d.lastUsed) >= d.config.IdleTimeout {
			d.shutdown()
		}
	})
}

// findServiceScript resolves script relative to the working directory, the executable and
// ~/.objecthunter.
func findServiceScript(script string) string {
	if script == "" {
		return ""
	}
	if filepath.IsAbs(script) {
		if _, err := os.Stat(script); err == nil {
			return script
		}
		return ""
	}

	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		script,
		filepath.Join("..", script),
		filepath.Join(execDir, script),
		filepath.Join(os.Getenv("HOME"), ".objecthunter", script),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment next to the
// project or in ~/.objecthunter.
func findVenvPython() string {
	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(os.Getenv("HOME"), ".objecthunter/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
