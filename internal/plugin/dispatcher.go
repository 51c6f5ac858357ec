package plugin

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ayusman/objecthunter/internal/session"
	"github.com/ayusman/objecthunter/internal/surface"
)

// DefaultMaxInFlight bounds concurrently running plugin processes.
const DefaultMaxInFlight = 4

// Dispatcher runs the plugins subscribed to each game event in the background.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	config   map[string]json.RawMessage

	sem     chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewDispatcher creates a dispatcher. config holds optional per-plugin configuration keyed by
// plugin name and is passed through in each request.
func NewDispatcher(manager *Manager, executor *Executor, config map[string]json.RawMessage) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		config:   config,
		sem:      make(chan struct{}, DefaultMaxInFlight),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Dispatch starts every plugin subscribed to ev and returns without waiting. When the
// in-flight limit is reached the run is dropped.
func (d *Dispatcher) Dispatch(ev session.Event) {
	kind := ev.Kind.String()
	plugins := d.manager.Subscribers(kind)
	if len(plugins) == 0 {
		return
	}

	payload, err := json.Marshal(surface.NewEventMessage(ev))
	if err != nil {
		log.Printf("Failed to encode %s for plugins: %v", kind, err)
		return
	}

	for _, p := range plugins {
		select {
		case d.sem <- struct{}{}:
		default:
			d.dropped.Add(1)
			continue
		}

		req := &Request{Event: kind, Payload: payload, Config: d.config[p.Manifest.Name]}
		d.wg.Add(1)
		go func(p *Plugin) {
			defer d.wg.Done()
			defer func() { <-d.sem }()

			resp, err := d.executor.ExecuteContext(d.ctx, p, req)
			switch {
			case err != nil:
				d.failed.Add(1)
				log.Printf("Plugin %s on %s: %v", p.Manifest.Name, kind, err)
			case !resp.Success:
				d.failed.Add(1)
				log.Printf("Plugin %s on %s reported: %s", p.Manifest.Name, kind, resp.Error)
			}
		}(p)
	}
}

// Wait blocks until every running plugin has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close cancels running plugins and waits for them.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}

// Dropped returns how many runs were skipped because too many were in flight.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Failed returns how many runs errored or reported failure.
func (d *Dispatcher) Failed() int64 {
	return d.failed.Load()
}
