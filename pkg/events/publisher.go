package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"mercator-hq/relay/pkg/proxy/types"
)

// SinkName labels event drops and failures in metrics.
const SinkName = "events"

// ErrDisconnected is reported by Ping while the transport is down.
var ErrDisconnected = errors.New("not connected to NATS")

// SinkMetrics counts events that were not delivered.
// *metrics.Collector implements it.
type SinkMetrics interface {
	RecordSinkDrop(sink string)
	RecordSinkError(sink string)
}

// PublisherConfig contains configuration for the Publisher.
type PublisherConfig struct {
	// Subject is the NATS subject events are published to.
	Subject string

	// BufferSize is the capacity of the async publish queue.
	// Default: 1000
	BufferSize int

	// Metrics is optional.
	Metrics SinkMetrics
}

// Publisher publishes an Event for every exchange it observes. Publishing
// happens on a background goroutine; failures are logged and counted and
// never reach callers.
type Publisher struct {
	transport Transport
	config    PublisherConfig
	events    chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	logger    *slog.Logger
}

// NewPublisher creates a Publisher over transport and starts its worker.
func NewPublisher(transport Transport, cfg PublisherConfig) *Publisher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}

	p := &Publisher{
		transport: transport,
		config:    cfg,
		events:    make(chan Event, cfg.BufferSize),
		done:      make(chan struct{}),
		logger:    slog.Default().With("component", "events.publisher"),
	}

	p.wg.Add(1)
	go p.worker()

	return p
}

// Observe enqueues an event for ex without blocking.
func (p *Publisher) Observe(ctx context.Context, ex types.Exchange) {
	event := NewEvent(ex)

	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.closed {
		select {
		case p.events <- event:
			return
		default:
		}
	}

	p.logger.WarnContext(ctx, "dropping exchange event", "event_id", event.ID, "closed", p.closed)
	if p.config.Metrics != nil {
		p.config.Metrics.RecordSinkDrop(SinkName)
	}
}

// Ping reports whether the transport is connected.
func (p *Publisher) Ping(ctx context.Context) error {
	if !p.transport.IsConnected() {
		return ErrDisconnected
	}
	return nil
}

// Close publishes everything already queued, flushes and closes the
// transport.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()

	err := p.transport.Flush()
	p.transport.Close()
	return err
}

func (p *Publisher) worker() {
	defer p.wg.Done()

	for {
		select {
		case event := <-p.events:
			p.publish(event)
		case <-p.done:
			for {
				select {
				case event := <-p.events:
					p.publish(event)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) publish(event Event) {
	data, err := json.Marshal(event)
	if err == nil {
		err = p.transport.Publish(p.config.Subject, data)
	}
	if err != nil {
		p.logger.Error("failed to publish exchange event",
			"event_id", event.ID,
			"request_id", event.RequestID,
			"subject", p.config.Subject,
			"error", err,
		)
		if p.config.Metrics != nil {
			p.config.Metrics.RecordSinkError(SinkName)
		}
	}
}
