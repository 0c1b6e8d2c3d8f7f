// Package event defines all events that can be published during a farming run.
// Events describe progress and are consumed by reporters and notifiers.
package event

import "rewardsfarmer-go/core/state"

// Event is the base interface for all events.
type Event interface {
	// EventName returns the name of the event for logging/debugging
	EventName() string
}

// SessionEvent is an event that originates from a specific persona session.
type SessionEvent interface {
	Event
	// SessionID returns the source session ID
	SessionID() string
}

// baseSessionEvent provides common implementation for session events.
type baseSessionEvent struct {
	sessionID string
}

func (e *baseSessionEvent) SessionID() string {
	return e.sessionID
}

// AccountStarted is published when the coordinator begins an account run.
type AccountStarted struct {
	Username string
}

func NewAccountStarted(username string) *AccountStarted {
	return &AccountStarted{Username: username}
}

func (e *AccountStarted) EventName() string {
	return "AccountStarted"
}

// AccountFinished is published when an account run has produced its result.
type AccountFinished struct {
	Username       string
	StartingPoints int
	FinalPoints    int
	Error          error // nil if the run completed
}

func NewAccountFinished(username string, starting, final int, err error) *AccountFinished {
	return &AccountFinished{
		Username:       username,
		StartingPoints: starting,
		FinalPoints:    final,
		Error:          err,
	}
}

func (e *AccountFinished) EventName() string {
	return "AccountFinished"
}

// AuthStateChanged is published on every authentication state transition.
type AuthStateChanged struct {
	baseSessionEvent
	OldState state.AuthState
	NewState state.AuthState
}

func NewAuthStateChanged(sessionID string, oldState, newState state.AuthState) *AuthStateChanged {
	return &AuthStateChanged{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		OldState:         oldState,
		NewState:         newState,
	}
}

func (e *AuthStateChanged) EventName() string {
	return "AuthStateChanged"
}
