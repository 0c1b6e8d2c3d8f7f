//go:build prod

package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "rewardsfarmer.log"

// Setup initializes logging for production mode. Records go to a rotating
// file; warnings and errors are mirrored to stderr so unattended runs still
// surface failures. Secret attributes are redacted.
func Setup(cfg *Config) (*slog.Logger, func() error, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	dir := cfg.Dir
	if dir == "" {
		dir = DefaultLogDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	lj := &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}

	stderrOpts := handlerOptions(cfg, true)
	stderrOpts.Level = slog.LevelWarn

	logger := slog.New(&teeHandler{
		file:   slog.NewTextHandler(lj, handlerOptions(cfg, false)),
		stderr: slog.NewTextHandler(os.Stderr, stderrOpts),
	})
	setGlobal(logger)

	return logger, lj.Close, nil
}
