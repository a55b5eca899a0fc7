package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// HandlerFunc is a function that handles an event.
type HandlerFunc func(ctx context.Context, event Event) error

// AllEvents subscribes a handler to every event type.
const AllEvents EventType = "*"

// DefaultQueueSize is the number of undelivered events a subscriber may
// hold before Emit starts dropping events for it.
const DefaultQueueSize = 256

// EventBus fans circuit events out to the transcript store, the MQTT bridge,
// the console and the API. Every subscriber has its own goroutine and queue:
// a subscriber sees events in emit order, and a slow subscriber never blocks
// the emitter or the other subscribers.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]*subscriber
	queueSize   int
	stopped     bool
	wg          sync.WaitGroup
}

type subscriber struct {
	name    string
	handler HandlerFunc
	queue   chan delivery
}

type delivery struct {
	ctx    context.Context
	event  Event
	result chan<- error
}

// NewEventBus creates a bus with DefaultQueueSize per subscriber.
func NewEventBus() *EventBus {
	return NewEventBusSize(DefaultQueueSize)
}

// NewEventBusSize creates a bus with the given per-subscriber queue size.
func NewEventBusSize(queueSize int) *EventBus {
	if queueSize < 1 {
		queueSize = 1
	}
	return &EventBus{
		subscribers: make(map[EventType][]*subscriber),
		queueSize:   queueSize,
	}
}

// Subscribe registers a named handler for one event type, or for every type
// when eventType is AllEvents. Subscribing to a stopped bus is a no-op.
func (eb *EventBus) Subscribe(eventType EventType, name string, handler HandlerFunc) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.stopped {
		log.Warn().Str("handler", name).Msg("subscribe on stopped event bus ignored")
		return
	}

	s := &subscriber{
		name:    name,
		handler: handler,
		queue:   make(chan delivery, eb.queueSize),
	}
	eb.subscribers[eventType] = append(eb.subscribers[eventType], s)

	eb.wg.Add(1)
	go func() {
		defer eb.wg.Done()
		s.loop()
	}()

	log.Debug().
		Str("event", string(eventType)).
		Str("handler", name).
		Msg("subscribed to event")
}

// Unsubscribe removes a named handler from an event type. Events already
// queued for it are still delivered.
func (eb *EventBus) Unsubscribe(eventType EventType, name string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[eventType]
	kept := subs[:0]
	for _, s := range subs {
		if s.name == name {
			close(s.queue)
			continue
		}
		kept = append(kept, s)
	}
	eb.subscribers[eventType] = kept
}

func (s *subscriber) loop() {
	for d := range s.queue {
		err := s.run(d.ctx, d.event)
		if d.result != nil {
			d.result <- err
		}
	}
}

func (s *subscriber) run(ctx context.Context, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("event", string(event.Type)).
				Str("handler", s.name).
				Interface("panic", r).
				Msg("handler panicked")
		}
	}()

	if err = s.handler(ctx, event); err != nil {
		log.Error().
			Err(err).
			Str("event", string(event.Type)).
			Str("handler", s.name).
			Msg("handler returned error")
	}
	return err
}

// targets returns the subscribers for event, or nil once the bus is
// stopped. Caller must hold eb.mu.
func (eb *EventBus) targets(event Event) []*subscriber {
	if eb.stopped {
		return nil
	}
	specific := eb.subscribers[event.Type]
	wildcard := eb.subscribers[AllEvents]
	out := make([]*subscriber, 0, len(specific)+len(wildcard))
	out = append(out, specific...)
	return append(out, wildcard...)
}

func stamp(event Event) Event {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	return event
}

// Emit queues an event for every subscriber without blocking. A subscriber
// whose queue is full misses the event.
func (eb *EventBus) Emit(ctx context.Context, event Event) {
	event = stamp(event)

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	subs := eb.targets(event)
	if len(subs) == 0 {
		return
	}

	log.Trace().
		Str("event", string(event.Type)).
		Str("source", event.Source).
		Int("handlers", len(subs)).
		Msg("emitting event")

	for _, s := range subs {
		select {
		case s.queue <- delivery{ctx: ctx, event: event}:
		default:
			log.Warn().
				Str("event", string(event.Type)).
				Str("handler", s.name).
				Msg("handler queue full, event dropped")
		}
	}
}

// EmitSync queues an event for every subscriber, waits until each has
// handled it and returns the first error. Earlier events queued for a
// subscriber are handled first.
func (eb *EventBus) EmitSync(ctx context.Context, event Event) error {
	event = stamp(event)

	eb.mu.RLock()
	subs := eb.targets(event)
	results := make(chan error, len(subs))
	for _, s := range subs {
		s.queue <- delivery{ctx: ctx, event: event, result: results}
	}
	eb.mu.RUnlock()

	var firstErr error
	for range subs {
		if err := <-results; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stop rejects further events, lets every subscriber drain its queue and
// waits for them to finish.
func (eb *EventBus) Stop() {
	eb.mu.Lock()
	if eb.stopped {
		eb.mu.Unlock()
		return
	}
	eb.stopped = true
	for _, subs := range eb.subscribers {
		for _, s := range subs {
			close(s.queue)
		}
	}
	eb.subscribers = make(map[EventType][]*subscriber)
	eb.mu.Unlock()

	eb.wg.Wait()
	log.Debug().Msg("event bus stopped")
}

// HandlerCount returns the number of handlers registered for an event type,
// not counting AllEvents subscribers.
func (eb *EventBus) HandlerCount(eventType EventType) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers[eventType])
}
