package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultLogDir(t *testing.T) {
	if dir := DefaultLogDir(); !strings.HasSuffix(dir, "rewardsfarmer/logs") && !strings.HasSuffix(dir, `rewardsfarmer\logs`) {
		t.Errorf("DefaultLogDir() = %q", dir)
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := With(context.Background(), logger)
	ctx = WithAttrs(ctx, "account", "alice")
	From(ctx).Info("hello")

	if !strings.Contains(buf.String(), "account=alice") {
		t.Errorf("log output %q missing context attribute", buf.String())
	}
}

func TestFrom_Fallback(t *testing.T) {
	if From(nil) == nil {
		t.Error("From(nil) returned nil")
	}
	if From(context.Background()) == nil {
		t.Error("From(background) returned nil")
	}
}

func TestHandlerOptions_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, handlerOptions(DefaultConfig(), false)))

	logger.Info("login", "username", "alice", "password", "hunter2", "Token", "abc")

	out := buf.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "abc") {
		t.Errorf("secret leaked: %q", out)
	}
	if !strings.Contains(out, "username=alice") {
		t.Errorf("log output %q missing username", out)
	}
}

func TestHandlerOptions_ConsoleTime(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, handlerOptions(DefaultConfig(), true)))

	logger.Info("hello")

	// time=15:04:05.000
	line := buf.String()
	if !strings.HasPrefix(line, "time=") || strings.Index(line, " ") != len("time=15:04:05.000") {
		t.Errorf("console time not shortened: %q", line)
	}
}

func TestTeeHandler(t *testing.T) {
	var file, console bytes.Buffer
	logger := slog.New(&teeHandler{
		file:   slog.NewTextHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
		stderr: slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}).With("session_id", "alice/desktop")

	logger.Debug("search")
	logger.Warn("worker failed")

	if n := strings.Count(file.String(), "session_id=alice/desktop"); n != 2 {
		t.Errorf("file records = %d, want 2:\n%s", n, file.String())
	}
	if strings.Contains(console.String(), "search") || !strings.Contains(console.String(), "worker failed") {
		t.Errorf("console output = %q, want only the warning", console.String())
	}
}
