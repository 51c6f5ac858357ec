package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// maxOutput caps how much of a plugin's stdout and stderr is kept.
const maxOutput = 64 << 10

// ErrTimeout is wrapped by Execute errors when a plugin outlives the executor timeout.
var ErrTimeout = errors.New("timed out")

// Executor runs one plugin process per request: the request goes to stdin as JSON and a
// Response is read back from stdout.
type Executor struct {
	timeoutMs int
}

// NewExecutor creates an Executor that kills plugins after timeoutMs milliseconds.
func NewExecutor(timeoutMs int) *Executor {
	return &Executor{timeoutMs: timeoutMs}
}

// Timeout returns the per-run timeout.
func (e *Executor) Timeout() time.Duration {
	return time.Duration(e.timeoutMs) * time.Millisecond
}

// Execute runs plugin once with req.
func (e *Executor) Execute(plugin *Plugin, req *Request) (*Response, error) {
	return e.ExecuteContext(context.Background(), plugin, req)
}

// ExecuteContext is Execute bounded by ctx as well as the executor timeout.
func (e *Executor) ExecuteContext(ctx context.Context, plugin *Plugin, req *Request) (*Response, error) {
	input, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", req.Event, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout())
	defer cancel()

	stdout := &cappedBuffer{limit: maxOutput}
	stderr := &cappedBuffer{limit: maxOutput}
	cmd := exec.CommandContext(ctx, plugin.Executable)
	cmd.Dir = plugin.Path
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second

	runErr := cmd.Run()
	name := plugin.Manifest.Name
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("plugin %s %w after %v", name, ErrTimeout, e.Timeout())
	}
	if runErr != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("plugin %s: %w: %s", name, runErr, msg)
		}
		return nil, fmt.Errorf("plugin %s: %w", name, runErr)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("plugin %s wrote an invalid response %q: %w", name, stdout.String(), err)
	}
	return &resp, nil
}

// cappedBuffer keeps the first limit bytes written and discards the rest without failing the
// writer.
type cappedBuffer struct {
	bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.Len(); room > 0 {
		if len(p) > room {
			b.Buffer.Write(p[:room])
		} else {
			b.Buffer.Write(p)
		}
	}
	return len(p), nil
}
