// Package publisher fans emitted events out to the audit store and any
// configured sinks. Sync mode blocks until the store write completes; async
// mode buffers events on a channel drained by a background goroutine.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "ardhi/pkg/domain"
	audit "ardhi/pkg/platform/audit"
)

// drainTimeout bounds how long Close waits for in-flight events.
const drainTimeout = 5 * time.Second

// Publisher writes events to a Store and forwards them to optional Sinks.
type Publisher struct {
	store  audit.Store
	sinks  []audit.Sink
	logger *slog.Logger

	inbox   chan audit.Event
	done    chan struct{}
	closeMu sync.Mutex
	closed  bool
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables async mode with the given channel capacity.
// Events that arrive while the buffer is full are dropped and logged.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithSink adds a fire-and-forget delivery target.
func WithSink(sink audit.Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

// WithLogger sets the logger used for drop and sink-failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher in sync mode unless WithAsyncBuffer is given.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.run()
	}
	return p
}

// Emit records an event. In sync mode the store write happens inline and its
// error is returned. In async mode the event is queued; a full buffer drops the
// event rather than blocking the workflow operation.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if p.inbox == nil {
		return p.deliver(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.Warn("audit buffer full, dropping event",
			"event", string(event.Name),
			"parcel_id", event.ParcelID.String(),
		)
		return nil
	}
}

// List returns events recorded for a parcel. Exposed for tests and admin reads.
func (p *Publisher) List(ctx context.Context, parcelID id.ParcelID) ([]audit.Event, error) {
	return p.store.ListByParcel(ctx, parcelID)
}

// Close drains the async buffer and closes all sinks.
func (p *Publisher) Close() {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return
	}
	p.closed = true

	if p.inbox != nil {
		close(p.inbox)
		select {
		case <-p.done:
		case <-time.After(drainTimeout):
			p.logger.Warn("audit publisher drain timed out")
		}
	}
	for _, sink := range p.sinks {
		sink.Close()
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.inbox {
		if err := p.deliver(context.Background(), event); err != nil {
			p.logger.Error("audit event delivery failed",
				"event", string(event.Name),
				"error", err,
			)
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, event audit.Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	// Sink delivery is best-effort: a Kafka outage must not fail the workflow.
	for _, sink := range p.sinks {
		if err := sink.Emit(ctx, event); err != nil {
			p.logger.Warn("audit sink emit failed",
				"event", string(event.Name),
				"error", err,
			)
		}
	}
	return nil
}
