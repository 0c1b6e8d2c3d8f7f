// Package state defines the authentication state machine states.
package state

import "fmt"

// AuthState represents the state of one login attempt.
type AuthState int

const (
	// StateStart is the initial state before any landmark was probed.
	StateStart AuthState = iota
	// StateAlreadyAuthenticated indicates the identity provider already recognized the session.
	StateAlreadyAuthenticated
	// StateAwaitingCredentials indicates the username entry form is shown.
	StateAwaitingCredentials
	// StateAwaitingSecondFactor indicates the operator must confirm a second factor.
	StateAwaitingSecondFactor
	// StateAwaitingPlatformConfirmation indicates the rewards platform must accept the login.
	StateAwaitingPlatformConfirmation
	// StateAuthenticated indicates the session holds a valid cookie for both sites.
	StateAuthenticated
	// StateFailed indicates the login attempt was given up.
	StateFailed
)

// String returns the string representation of the state.
func (s AuthState) String() string {
	switch s {
	case StateStart:
		return "Start"
	case StateAlreadyAuthenticated:
		return "AlreadyAuthenticated"
	case StateAwaitingCredentials:
		return "AwaitingCredentials"
	case StateAwaitingSecondFactor:
		return "AwaitingSecondFactor"
	case StateAwaitingPlatformConfirmation:
		return "AwaitingPlatformConfirmation"
	case StateAuthenticated:
		return "Authenticated"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// validTransitions defines the allowed state transitions.
// Key is the current state, value is a list of valid target states.
var validTransitions = map[AuthState][]AuthState{
	StateStart:                        {StateAlreadyAuthenticated, StateAwaitingCredentials, StateFailed},
	StateAwaitingCredentials:          {StateAwaitingSecondFactor, StateAwaitingPlatformConfirmation, StateFailed},
	StateAwaitingSecondFactor:         {StateAwaitingPlatformConfirmation, StateFailed},
	StateAwaitingPlatformConfirmation: {StateAuthenticated, StateFailed},
	StateAlreadyAuthenticated:         {},
	StateAuthenticated:                {},
	StateFailed:                       {},
}

// CanTransitionTo checks if transitioning from the current state to the target state is valid.
func (s AuthState) CanTransitionTo(target AuthState) bool {
	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// ValidTransitions returns the list of valid target states from the current state.
func (s AuthState) ValidTransitions() []AuthState {
	return validTransitions[s]
}

// IsTerminal returns true if no further transitions are possible.
func (s AuthState) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// IsAuthenticated returns true if the state grants access to the platform.
func (s AuthState) IsAuthenticated() bool {
	return s == StateAuthenticated || s == StateAlreadyAuthenticated
}

// TransitionError represents an invalid state transition attempt.
type TransitionError struct {
	From   AuthState
	To     AuthState
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid state transition from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// NewTransitionError creates a new TransitionError.
func NewTransitionError(from, to AuthState, reason string) *TransitionError {
	return &TransitionError{From: from, To: to, Reason: reason}
}
