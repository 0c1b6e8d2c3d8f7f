package main

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"rewardsfarmer-go/core/event"
)

func TestReporter_TracesAtDebug(t *testing.T) {
	events := []event.Event{
		event.NewAccountStarted("alice"),
		event.NewQuotaPolled("alice/desktop", 6, 0),
		event.NewWorkerFailed("alice/mobile", errors.New("boom")),
		event.NewGoalReached("alice", 5100, 5000),
		event.NewAccountFinished("alice", 100, 118, nil),
	}

	tests := []struct {
		name  string
		level slog.Level
		lines int
	}{
		{"info hides trace", slog.LevelInfo, 0},
		{"debug shows trace", slog.LevelDebug, len(events)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: tt.level}))
			r := newReporter(logger)
			for _, e := range events {
				r.handle(e)
			}

			got := 0
			if buf.Len() > 0 {
				got = strings.Count(strings.TrimSpace(buf.String()), "\n") + 1
			}
			if got != tt.lines {
				t.Errorf("logged %d lines, want %d:\n%s", got, tt.lines, buf.String())
			}
		})
	}
}
