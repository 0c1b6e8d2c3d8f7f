package event

import (
	"errors"
	"testing"

	"rewardsfarmer-go/core/state"
)

func TestEvent_Names(t *testing.T) {
	tests := []struct {
		event    Event
		expected string
	}{
		{NewAccountStarted("alice"), "AccountStarted"},
		{NewAccountFinished("alice", 10, 20, nil), "AccountFinished"},
		{NewAuthStateChanged("s1", state.StateStart, state.StateAwaitingCredentials), "AuthStateChanged"},
		{NewSearchPerformed("s1", "weather", true, 103), "SearchPerformed"},
		{NewQuotaPolled("s1", 10, 6), "QuotaPolled"},
		{NewActivityCompleted("s1", "daily_set", nil), "ActivityCompleted"},
		{NewWorkerFailed("s1", errors.New("boom")), "WorkerFailed"},
		{NewGoalReached("alice", 5000, 4000), "GoalReached"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.event.EventName(); got != tt.expected {
				t.Errorf("EventName() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSessionEvent_SessionID(t *testing.T) {
	tests := []struct {
		name     string
		event    SessionEvent
		expected string
	}{
		{"AuthStateChanged", NewAuthStateChanged("alice/desktop", state.StateStart, state.StateFailed), "alice/desktop"},
		{"SearchPerformed", NewSearchPerformed("alice/mobile", "news", false, 0), "alice/mobile"},
		{"QuotaPolled", NewQuotaPolled("bob/desktop", 1, 2), "bob/desktop"},
		{"ActivityCompleted", NewActivityCompleted("bob/desktop", "punch_cards", nil), "bob/desktop"},
		{"WorkerFailed", NewWorkerFailed("bob/mobile", nil), "bob/mobile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.SessionID(); got != tt.expected {
				t.Errorf("SessionID() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAccountFinished_Fields(t *testing.T) {
	err := errors.New("login failed")
	e := NewAccountFinished("alice", 100, 100, err)

	if e.Username != "alice" {
		t.Errorf("Username = %v, want alice", e.Username)
	}
	if e.StartingPoints != 100 || e.FinalPoints != 100 {
		t.Errorf("points = %d/%d, want 100/100", e.StartingPoints, e.FinalPoints)
	}
	if !errors.Is(e.Error, err) {
		t.Errorf("Error = %v, want %v", e.Error, err)
	}
}

func TestGoalReached_Fields(t *testing.T) {
	e := NewGoalReached("alice", 5000, 4000)
	if e.Balance != 5000 || e.Target != 4000 {
		t.Errorf("GoalReached = %+v", e)
	}
}
