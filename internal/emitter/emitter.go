// Package emitter publishes game events to external subscribers over MQTT.
package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/objecthunter/internal/session"
	"github.com/ayusman/objecthunter/internal/surface"
)

// Errors returned by Publish.
var (
	ErrNotConnected = errors.New("mqtt not connected")
	ErrQueueFull    = errors.New("mqtt publish queue full")
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
	queueSize      = 64
)

// Emitter receives every game event.
type Emitter interface {
	Publish(ev session.Event) error
	Disconnect() error
}

// Config holds the MQTT connection settings.
type Config struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
}

type outgoing struct {
	topic   string
	payload []byte
}

// MQTTEmitter publishes events to <topic>/<event kind>. Publish never blocks the caller;
// messages are queued and sent by a background worker.
type MQTTEmitter struct {
	cfg       Config
	client    mqtt.Client
	newClient func(*mqtt.ClientOptions) mqtt.Client

	queue chan outgoing
	done  chan struct{}
	once  sync.Once

	mu        sync.RWMutex
	published map[string]uint64
	errors    uint64
	connected bool
	closed    bool
}

// NewMQTTEmitter creates an emitter. Call Connect before publishing.
func NewMQTTEmitter(cfg Config) *MQTTEmitter {
	return &MQTTEmitter{
		cfg:       cfg,
		newClient: mqtt.NewClient,
		queue:     make(chan outgoing, queueSize),
		done:      make(chan struct{}),
		published: make(map[string]uint64),
	}
}

// Connect establishes the broker connection and starts the publish worker.
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(e.cfg.Broker)
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		log.Printf("MQTT connected to %s", e.cfg.Broker)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		log.Printf("MQTT connection lost, reconnecting: %v", err)
	}

	client := e.newClient(opts)
	token := client.Connect()

	// A client left behind after a failed attempt keeps retrying in the background.
	timer := time.NewTimer(connectTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-timer.C:
		client.Disconnect(0)
		return fmt.Errorf("mqtt connection to %s timed out", e.cfg.Broker)
	case <-ctx.Done():
		client.Disconnect(0)
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	e.start(client)
	return nil
}

func (e *MQTTEmitter) start(client mqtt.Client) {
	e.client = client
	e.setConnected(true)
	go e.run()
}

// Publish queues ev for delivery.
func (e *MQTTEmitter) Publish(ev session.Event) error {
	payload, err := json.Marshal(surface.NewEventMessage(ev))
	if err != nil {
		e.countError()
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := outgoing{topic: e.Topic(ev.Kind), payload: payload}

	// The read lock is held across the send so Disconnect cannot close the queue under it.
	e.mu.RLock()
	err = nil
	if !e.connected {
		err = ErrNotConnected
	} else {
		select {
		case e.queue <- msg:
		default:
			err = ErrQueueFull
		}
	}
	e.mu.RUnlock()

	if err != nil {
		e.countError()
	}
	return err
}

// Topic returns the topic events of kind are published on.
func (e *MQTTEmitter) Topic(kind session.EventKind) string {
	return e.cfg.Topic + "/" + kind.String()
}

func (e *MQTTEmitter) run() {
	defer close(e.done)

	for msg := range e.queue {
		token := e.client.Publish(msg.topic, e.cfg.QoS, false, msg.payload)
		if !token.WaitTimeout(publishTimeout) {
			e.countError()
			log.Printf("MQTT publish to %s timed out", msg.topic)
			continue
		}
		if err := token.Error(); err != nil {
			e.countError()
			log.Printf("MQTT publish to %s failed: %v", msg.topic, err)
			continue
		}

		e.mu.Lock()
		e.published[msg.topic]++
		e.mu.Unlock()
	}
}

// Disconnect flushes queued events and closes the connection.
func (e *MQTTEmitter) Disconnect() error {
	e.once.Do(func() {
		e.mu.Lock()
		e.connected = false
		e.closed = true
		close(e.queue)
		e.mu.Unlock()

		if e.client == nil {
			return
		}
		<-e.done
		if e.client.IsConnected() {
			e.client.Disconnect(250)
			log.Println("MQTT disconnected")
		}
	})
	return nil
}

// Stats contains emitter statistics.
type Stats struct {
	Connected bool
	Published map[string]uint64
	Errors    uint64
}

// Stats returns a copy of the emitter statistics.
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}
	return Stats{Connected: e.connected, Published: published, Errors: e.errors}
}

func (e *MQTTEmitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v && !e.closed
	e.mu.Unlock()
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
