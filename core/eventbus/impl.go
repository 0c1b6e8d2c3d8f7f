package eventbus

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"rewardsfarmer-go/core/event"
)

const defaultBufferSize = 100

type subscription struct {
	handler   EventHandler
	sessionID string // empty matches every event
}

// channelEventBus dispatches events from a buffered channel on a single goroutine.
type channelEventBus struct {
	events  chan event.Event
	logger  *slog.Logger
	mu      sync.RWMutex
	subs    map[string]*subscription
	closed  atomic.Bool
	dropped atomic.Uint64
	nextID  atomic.Uint64
	wg      sync.WaitGroup
}

// New creates an EventBus with the given queue size. A nil logger falls back to slog.Default().
func New(bufferSize int, logger *slog.Logger) EventBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &channelEventBus{
		events: make(chan event.Event, bufferSize),
		logger: logger.With("component", "eventbus"),
		subs:   make(map[string]*subscription),
	}

	b.wg.Add(1)
	go b.dispatch()

	return b
}

func (b *channelEventBus) Publish(e event.Event) {
	if b.closed.Load() {
		return
	}

	select {
	case b.events <- e:
	default:
		n := b.dropped.Add(1)
		b.logger.Warn("Event queue full, dropping event", "event", e.EventName(), "dropped_total", n)
	}
}

func (b *channelEventBus) Subscribe(handler EventHandler) string {
	return b.subscribe("", handler)
}

func (b *channelEventBus) SubscribeSession(sessionID string, handler EventHandler) string {
	return b.subscribe(sessionID, handler)
}

func (b *channelEventBus) subscribe(sessionID string, handler EventHandler) string {
	id := fmt.Sprintf("sub-%d", b.nextID.Add(1))

	b.mu.Lock()
	b.subs[id] = &subscription{handler: handler, sessionID: sessionID}
	b.mu.Unlock()

	return id
}

func (b *channelEventBus) Unsubscribe(subscriptionID string) {
	b.mu.Lock()
	delete(b.subs, subscriptionID)
	b.mu.Unlock()
}

func (b *channelEventBus) Close() {
	if b.closed.Swap(true) {
		return
	}

	close(b.events)
	b.wg.Wait()
}

func (b *channelEventBus) dispatch() {
	defer b.wg.Done()

	for e := range b.events {
		b.deliver(e)
	}
}

func (b *channelEventBus) deliver(e event.Event) {
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	var sessionID string
	if se, ok := e.(event.SessionEvent); ok {
		sessionID = se.SessionID()
	}

	for _, sub := range subs {
		if sub.sessionID != "" && sub.sessionID != sessionID {
			continue
		}
		b.call(sub.handler, e)
	}
}

// call runs one handler, isolating the dispatcher from handler panics.
func (b *channelEventBus) call(handler EventHandler, e event.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked", "event", e.EventName(), "panic", r)
		}
	}()
	handler(e)
}
