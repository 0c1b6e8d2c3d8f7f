// Package eventbus fans run events out to reporters.
package eventbus

import (
	"rewardsfarmer-go/core/event"
)

// EventBus is the interface for the event bus.
type EventBus interface {
	// Publish queues an event for asynchronous delivery. It never blocks;
	// events are dropped when the queue is full.
	Publish(e event.Event)

	// Subscribe registers a handler for all events and returns its subscription ID.
	Subscribe(handler EventHandler) string

	// SubscribeSession registers a handler that only receives SessionEvents
	// whose SessionID matches.
	SubscribeSession(sessionID string, handler EventHandler) string

	// Unsubscribe removes a subscription by its ID.
	Unsubscribe(subscriptionID string)

	// Close drains queued events and stops the dispatcher.
	// After Close is called, Publish is a no-op.
	Close()
}

// EventHandler is a function that handles an event.
type EventHandler func(e event.Event)
