// Package session binds one browser to one account persona and implements
// the login state machine, the points oracle and the scripted activities on top of it.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"rewardsfarmer-go/core/event"
	"rewardsfarmer-go/core/eventbus"
	"rewardsfarmer-go/domain/account"
	"rewardsfarmer-go/infrastructure/browser"
	"rewardsfarmer-go/infrastructure/rewardsapi"
)

// Session represents one browser bound to one (account, persona) pair.
// It is owned by a single worker and never shared.
type Session struct {
	// Identity
	id      string
	account account.Account
	persona account.Persona

	// Components
	browserCtrl *BrowserController
	oracle      *Oracle

	// Dependencies
	driver   browser.Driver
	eventBus eventbus.EventBus
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
}

// Config holds configuration for creating a new Session.
type Config struct {
	Account  account.Account
	Persona  account.Persona
	Driver   browser.Driver
	UserInfo rewardsapi.Client
	Oracle   *OracleConfig
	EventBus eventbus.EventBus
	Logger   *slog.Logger
}

// New creates a new Session. The browser is not started.
func New(cfg *Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	id := cfg.Account.SessionID(cfg.Persona)
	s := &Session{
		id:       id,
		account:  cfg.Account,
		persona:  cfg.Persona,
		driver:   cfg.Driver,
		eventBus: cfg.EventBus,
		logger:   cfg.Logger.With("session_id", id),
	}

	// Initialize components
	s.browserCtrl = NewBrowserController(s.driver, s.logger)
	s.oracle = NewOracle(s.browserCtrl, cfg.UserInfo, cfg.Oracle, s.logger)

	return s
}

// Start launches the browser.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := s.driver.Start(ctx); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	s.started = true
	s.logger.Info("Session started")
	return nil
}

// Stop tears the browser down. It is safe to call more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false

	if s.driver != nil && s.driver.IsRunning() {
		if err := s.driver.Stop(); err != nil {
			s.logger.Error("Failed to stop browser", "error", err)
		}
	}
	s.logger.Info("Session stopped")
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Account returns the associated account.
func (s *Session) Account() account.Account {
	return s.account
}

// Persona returns the persona this session presents.
func (s *Session) Persona() account.Persona {
	return s.persona
}

// Driver returns the browser driver.
func (s *Session) Driver() browser.Driver {
	return s.driver
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// GetBrowserController returns the browser controller.
func (s *Session) GetBrowserController() *BrowserController {
	return s.browserCtrl
}

// Oracle returns the points oracle reading through this session.
func (s *Session) Oracle() *Oracle {
	return s.oracle
}

// Publish sends e on the event bus when one is configured.
func (s *Session) Publish(e event.Event) {
	if s.eventBus != nil {
		s.eventBus.Publish(e)
	}
}
