package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rewardsfarmer-go/application"
	"rewardsfarmer-go/application/search"
	"rewardsfarmer-go/application/session"
	"rewardsfarmer-go/core/eventbus"
	"rewardsfarmer-go/domain/account"
	"rewardsfarmer-go/domain/activity"
	"rewardsfarmer-go/domain/points"
	"rewardsfarmer-go/infrastructure/browser"
	"rewardsfarmer-go/infrastructure/config"
	"rewardsfarmer-go/infrastructure/hotterms"
	"rewardsfarmer-go/infrastructure/notify"
	"rewardsfarmer-go/infrastructure/profile"
	"rewardsfarmer-go/infrastructure/prompt"
	"rewardsfarmer-go/infrastructure/repository"
	"rewardsfarmer-go/infrastructure/rewardsapi"
	"rewardsfarmer-go/resources"
)

const eventBufferSize = 256

// app holds the wired components of one batch run.
type app struct {
	batch    *application.Batch
	eventBus eventbus.EventBus
	mongoDB  *repository.MongoDB
	logger   *slog.Logger
}

func wireApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	a.eventBus = eventbus.New(eventBufferSize, logger)
	newReporter(logger).attach(a.eventBus)

	if cfg.Mongo.Enabled() {
		db, err := openMongo(ctx, cfg, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.mongoDB = db
	}

	var repo account.Repository
	switch cfg.Accounts.Source {
	case config.SourceMongo:
		repo = repository.NewMongoAccountRepository(a.mongoDB, logger)
	default:
		repo = repository.NewFileAccountRepository(cfg.Accounts.File, logger)
	}

	var results points.ResultStore
	if a.mongoDB != nil {
		results = repository.NewMongoResultStore(a.mongoDB, logger)
	}

	var activities *activity.Registry
	if cfg.Run.Activities {
		activities = activity.NewRegistry()
		if err := activity.NewLoader(activities).LoadFromFS(resources.ActivityFiles); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to load activities: %w", err)
		}
		logger.Info("Activities loaded", "count", activities.Count())
	}

	factory := session.NewFactory(&session.FactoryConfig{
		Browser:  driverConfig(cfg),
		UserInfo: userInfoConfig(cfg),
		Oracle:   oracleConfig(cfg),
	}, profile.NewStore(cfg.ProfileRoot, logger), a.eventBus, logger)

	terms := hotterms.NewClient(hotTermsConfig(cfg), logger)
	searcher := search.NewRunner(searchConfig(cfg), terms, a.eventBus, logger)

	opener := application.NewBrowserOpener(&application.BrowserOpenerConfig{
		Factory:    factory,
		Auth:       authConfig(cfg),
		Confirmer:  prompt.NewConsole(nil, nil),
		Activities: activities,
		Searcher:   searcher,
	})

	notifier := newNotifier(cfg.Notify, logger)

	coordinator := application.NewCoordinator(&application.CoordinatorConfig{
		Opener:        opener,
		EventBus:      a.eventBus,
		Notifier:      notifier,
		TargetBalance: cfg.Run.TargetBalance,
		Logger:        logger,
	})

	a.batch = application.NewBatch(&application.BatchConfig{
		Accounts:       account.NewService(repo, logger),
		Runner:         coordinator,
		Results:        results,
		Notifier:       notifier,
		GlobalProxy:    cfg.Proxy,
		AccountTimeout: cfg.Run.AccountTimeout,
		Logger:         logger,
	})
	return a, nil
}

// Close releases the event bus and the database connection.
func (a *app) Close() {
	if a.eventBus != nil {
		a.eventBus.Close()
	}
	if a.mongoDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongoDB.Close(ctx); err != nil {
			a.logger.Warn("Failed to close MongoDB", "error", err)
		}
	}
}

func openMongo(ctx context.Context, cfg config.Config, logger *slog.Logger) (*repository.MongoDB, error) {
	mongoCfg := repository.DefaultMongoDBConfig()
	mongoCfg.URI = cfg.Mongo.URI
	if cfg.Mongo.Database != "" {
		mongoCfg.Database = cfg.Mongo.Database
	}
	return repository.NewMongoDB(ctx, mongoCfg, logger)
}

func newNotifier(cfg config.NotifyConfig, logger *slog.Logger) *notify.Notifier {
	var channels []notify.Channel
	if cfg.TelegramToken != "" {
		channels = append(channels, notify.NewTelegram(cfg.TelegramAPI, cfg.TelegramToken, cfg.TelegramChatID, cfg.Timeout))
	}
	if cfg.DiscordWebhook != "" {
		channels = append(channels, notify.NewDiscord(cfg.DiscordWebhook, cfg.Timeout))
	}
	if cfg.PushPlusToken != "" {
		channels = append(channels, notify.NewPushPlus(cfg.PushPlusURL, cfg.PushPlusToken, cfg.Timeout))
	}
	return notify.New(logger, channels...)
}

func driverConfig(cfg config.Config) browser.DriverConfig {
	d := *browser.DefaultDriverConfig()
	d.Headless = !cfg.Browser.Visible
	d.Lang = cfg.Browser.Locale()
	d.ExecPath = cfg.Browser.ExecPath
	return d
}

func userInfoConfig(cfg config.Config) rewardsapi.ClientConfig {
	c := *rewardsapi.DefaultClientConfig()
	if cfg.Oracle.UserInfoURL != "" {
		c.URL = cfg.Oracle.UserInfoURL
	}
	c.Attempts = cfg.Oracle.UserInfoAttempts
	c.RetryWait = cfg.Oracle.UserInfoWait
	return c
}

func oracleConfig(cfg config.Config) *session.OracleConfig {
	o := session.DefaultOracleConfig()
	o.Settle = cfg.Oracle.Settle
	o.Tier = points.AboveTier(cfg.Run.BaseTier)
	return o
}

func authConfig(cfg config.Config) *session.AuthConfig {
	a := session.DefaultAuthConfig()
	a.ProbeCycles = cfg.Auth.ProbeCycles
	a.LandmarkTimeout = cfg.Auth.LandmarkTimeout
	a.ConfirmRetries = cfg.Auth.ConfirmRetries
	a.ConfirmWait = cfg.Auth.ConfirmWait
	a.SearchPolls = cfg.Auth.SearchPolls
	a.SearchPollWait = cfg.Auth.SearchPollWait
	return a
}

func searchConfig(cfg config.Config) *search.Config {
	return &search.Config{
		RepollEvery:            cfg.Search.RepollEvery,
		Cooldown:               cfg.Search.Cooldown,
		Retries:                cfg.Search.Retries,
		RetryBackoff:           cfg.Search.RetryBackoff,
		MaxConsecutiveFailures: cfg.Search.MaxConsecutiveFailures,
		WaitMin:                cfg.Search.WaitMin,
		WaitMax:                cfg.Search.WaitMax,
		RefillDelay:            cfg.Search.RefillDelay,
	}
}

func hotTermsConfig(cfg config.Config) *hotterms.Config {
	h := hotterms.DefaultConfig()
	if cfg.Search.HotTermsURL != "" {
		h.BaseURL = cfg.Search.HotTermsURL
	}
	h.Proxy = cfg.Proxy
	return h
}
