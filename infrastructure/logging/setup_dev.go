//go:build !prod

package logging

import (
	"log/slog"
	"os"
)

// Setup initializes logging for development mode: a text handler on stdout
// with short timestamps. Secret attributes are redacted.
func Setup(cfg *Config) (*slog.Logger, func() error, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, handlerOptions(cfg, true)))
	setGlobal(logger)

	return logger, func() error { return nil }, nil
}
