// Package eventbus implements the event bus adapter.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bnema/spaceport/internal/adapters/out/telemetry"
	"github.com/bnema/spaceport/internal/boundaries/out"
	"github.com/bnema/spaceport/internal/domain"
)

const (
	defaultBufferSize     = 100
	defaultPublishTimeout = 5 * time.Second
	defaultHandlerTimeout = 30 * time.Second
)

// ErrBusStopped is returned when publishing on a stopped bus.
var ErrBusStopped = errors.New("event bus is stopped")

// InMemory implements the EventBus interface using a buffered channel
// drained by a single dispatch goroutine.
type InMemory struct {
	handlers       []out.EventHandler
	eventChan      chan domain.Event
	done           chan struct{}
	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	bufferSize     int
	publishTimeout time.Duration
	handlerTimeout time.Duration
	log            zerowrap.Logger
	metrics        *telemetry.Metrics
}

// SetMetrics sets the telemetry metrics for the event bus.
// Must be called before Start() to avoid data races on bus.metrics reads.
func (bus *InMemory) SetMetrics(m *telemetry.Metrics) {
	bus.mu.Lock()
	bus.metrics = m
	bus.mu.Unlock()
}

// NewInMemory creates a new in-memory event bus.
func NewInMemory(bufferSize int, log zerowrap.Logger) *InMemory {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &InMemory{
		handlers:       make([]out.EventHandler, 0),
		eventChan:      make(chan domain.Event, bufferSize),
		done:           make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
		bufferSize:     bufferSize,
		publishTimeout: defaultPublishTimeout,
		handlerTimeout: defaultHandlerTimeout,
		log:            log,
	}
}

// Publish publishes an event to the bus. It blocks for at most the publish
// timeout when the buffer is full, then drops the event.
func (bus *InMemory) Publish(eventType domain.EventType, payload any) error {
	if bus.ctx.Err() != nil {
		return ErrBusStopped
	}

	event := domain.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      payload,
	}

	switch p := payload.(type) {
	case domain.ProcessEventPayload:
		event.Process = p.Name
	case *domain.ProcessEventPayload:
		event.Process = p.Name
	}

	timer := time.NewTimer(bus.publishTimeout)
	defer timer.Stop()

	select {
	case bus.eventChan <- event:
		bus.log.Debug().
			Str(zerowrap.FieldLayer, "adapter").
			Str(zerowrap.FieldAdapter, "eventbus").
			Str("event_id", event.ID).
			Str(zerowrap.FieldEvent, string(event.Type)).
			Str("process", event.Process).
			Msg("event published")
		return nil
	case <-bus.ctx.Done():
		return ErrBusStopped
	case <-timer.C:
		bus.log.Error().
			Str(zerowrap.FieldLayer, "adapter").
			Str(zerowrap.FieldAdapter, "eventbus").
			Str("event_id", event.ID).
			Str(zerowrap.FieldEvent, string(event.Type)).
			Str("process", event.Process).
			Dur("timeout", bus.publishTimeout).
			Msg("event channel is full, dropping event")

		bus.mu.RLock()
		metrics := bus.metrics
		bus.mu.RUnlock()
		if metrics != nil {
			metrics.EventsDropped.Add(context.Background(), 1, metric.WithAttributes(
				attribute.String("event_type", string(event.Type)),
			))
		}
		return fmt.Errorf("event channel is full, dropping event %s", event.ID)
	}
}

// Subscribe adds an event handler to the bus.
func (bus *InMemory) Subscribe(handler out.EventHandler) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.handlers = append(bus.handlers, handler)
	bus.log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "eventbus").
		Str(zerowrap.FieldHandler, fmt.Sprintf("%T", handler)).
		Int("total_handlers", len(bus.handlers)).
		Msg("event handler subscribed")

	return nil
}

// Unsubscribe removes an event handler from the bus.
func (bus *InMemory) Unsubscribe(handler out.EventHandler) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	for i, h := range bus.handlers {
		if h == handler {
			bus.handlers = append(bus.handlers[:i], bus.handlers[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("handler %T not subscribed", handler)
}

// Start starts the event bus processing loop.
func (bus *InMemory) Start() error {
	bus.log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "eventbus").
		Int("buffer_size", bus.bufferSize).
		Msg("starting event bus")

	go bus.processEvents()
	return nil
}

// Stop drains the buffered events and stops the bus.
func (bus *InMemory) Stop() error {
	bus.cancel()

	select {
	case <-bus.done:
		bus.log.Debug().
			Str(zerowrap.FieldLayer, "adapter").
			Str(zerowrap.FieldAdapter, "eventbus").
			Msg("event bus stopped")
		return nil
	case <-time.After(5 * time.Second):
		bus.log.Warn().
			Str(zerowrap.FieldLayer, "adapter").
			Str(zerowrap.FieldAdapter, "eventbus").
			Msg("event bus stop timeout")
		return fmt.Errorf("timeout waiting for event bus to stop")
	}
}

func (bus *InMemory) processEvents() {
	defer close(bus.done)

	for {
		select {
		case event := <-bus.eventChan:
			bus.handleEvent(event)
		case <-bus.ctx.Done():
			// Drain events accepted before Stop.
			for {
				select {
				case event := <-bus.eventChan:
					bus.handleEvent(event)
				default:
					return
				}
			}
		}
	}
}

func (bus *InMemory) handleEvent(event domain.Event) {
	bus.mu.RLock()
	handlers := make([]out.EventHandler, len(bus.handlers))
	copy(handlers, bus.handlers)
	metrics := bus.metrics
	bus.mu.RUnlock()

	for _, h := range handlers {
		if !h.CanHandle(event.Type) {
			continue
		}

		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), bus.handlerTimeout)
		ctx = zerowrap.WithCtx(ctx, bus.log)

		done := make(chan error, 1)
		go func() {
			done <- h.Handle(ctx, event)
		}()

		select {
		case err := <-done:
			if err != nil {
				bus.log.Error().
					Str(zerowrap.FieldLayer, "adapter").
					Str(zerowrap.FieldAdapter, "eventbus").
					Err(err).
					Str("event_id", event.ID).
					Str(zerowrap.FieldEvent, string(event.Type)).
					Str(zerowrap.FieldHandler, fmt.Sprintf("%T", h)).
					Msg("error handling event")
			} else if metrics != nil {
				metrics.EventsProcessed.Add(context.Background(), 1, metric.WithAttributes(
					attribute.String("event_type", string(event.Type)),
				))
			}
		case <-ctx.Done():
			bus.log.Warn().
				Str(zerowrap.FieldLayer, "adapter").
				Str(zerowrap.FieldAdapter, "eventbus").
				Str("event_id", event.ID).
				Str(zerowrap.FieldEvent, string(event.Type)).
				Str(zerowrap.FieldHandler, fmt.Sprintf("%T", h)).
				Dur(zerowrap.FieldDuration, time.Since(start)).
				Msg("event handler timed out")
		}
		cancel()
	}
}
