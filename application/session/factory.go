package session

import (
	"context"
	"fmt"
	"log/slog"

	"rewardsfarmer-go/core/eventbus"
	"rewardsfarmer-go/domain/account"
	"rewardsfarmer-go/infrastructure/browser"
	"rewardsfarmer-go/infrastructure/profile"
	"rewardsfarmer-go/infrastructure/rewardsapi"
)

// FactoryConfig holds what every opened session shares.
type FactoryConfig struct {
	// Browser is the base driver configuration; device fields come from the profile.
	Browser  browser.DriverConfig
	UserInfo rewardsapi.ClientConfig
	Oracle   *OracleConfig
}

// Factory opens started sessions using the persisted device profiles.
type Factory struct {
	config    *FactoryConfig
	profiles  *profile.Store
	eventBus  eventbus.EventBus
	logger    *slog.Logger
	newDriver func(*browser.DriverConfig) browser.Driver
	newClient func(*rewardsapi.ClientConfig) rewardsapi.Client
}

// NewFactory creates a session factory.
func NewFactory(config *FactoryConfig, profiles *profile.Store, bus eventbus.EventBus, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		config:   config,
		profiles: profiles,
		eventBus: bus,
		logger:   logger,
		newDriver: func(c *browser.DriverConfig) browser.Driver {
			return browser.NewChromeDPDriver(c)
		},
		newClient: func(c *rewardsapi.ClientConfig) rewardsapi.Client {
			return rewardsapi.NewHTTPClient(c)
		},
	}
}

// Open builds and starts a session for the account persona. The account's
// proxy is expected to already reflect any global override.
func (f *Factory) Open(ctx context.Context, acc account.Account, p account.Persona) (*Session, error) {
	prof, err := f.profiles.LoadOrCreate(acc, p)
	if err != nil {
		return nil, fmt.Errorf("failed to load device profile: %w", err)
	}

	driverCfg := f.config.Browser
	driverCfg.WindowWidth = prof.Width
	driverCfg.WindowHeight = prof.Height
	driverCfg.DeviceScaleFactor = prof.ScaleFactor
	driverCfg.Mobile = prof.Mobile
	driverCfg.UserAgent = prof.UserAgent
	driverCfg.Proxy = acc.Proxy
	driverCfg.UserDataDir = f.profiles.Dir(acc, p)

	clientCfg := f.config.UserInfo
	clientCfg.UserAgent = prof.UserAgent
	clientCfg.Proxy = acc.Proxy

	s := New(&Config{
		Account:  acc,
		Persona:  p,
		Driver:   f.newDriver(&driverCfg),
		UserInfo: f.newClient(&clientCfg),
		Oracle:   f.config.Oracle,
		EventBus: f.eventBus,
		Logger:   f.logger.With("username", acc.Username, "persona", p.String()),
	})
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
