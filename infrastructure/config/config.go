// Package config loads the run configuration from config.yaml, environment
// variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "yaml"
	envPrefix  = "REWARDS"
	homeDir    = ".rewardsfarmer"
)

// Keys shared with the CLI flag bindings.
const (
	KeyLogLevel        = "log.level"
	KeyVisible         = "browser.visible"
	KeyLang            = "browser.lang"
	KeyGeo             = "browser.geo"
	KeyExecPath        = "browser.exec_path"
	KeyProxy           = "proxy"
	KeyAccountsFile    = "accounts.file"
	KeyAccountsSource  = "accounts.source"
	KeyMongoURI        = "mongo.uri"
	KeyMongoDatabase   = "mongo.database"
	KeyTelegram        = "notify.telegram"
	KeyTelegramAPI     = "notify.telegram_api"
	KeyDiscord         = "notify.discord"
	KeyPushPlus        = "notify.pushplus"
	KeyPushPlusURL     = "notify.pushplus_url"
	KeyNotifyTimeout   = "notify.timeout"
	KeyAccountTimeout  = "run.account_timeout"
	KeyTargetBalance   = "run.target_balance"
	KeyActivities      = "run.activities"
	KeyBaseTier        = "run.base_tier"
	KeyProfileRoot     = "profiles.root"
	KeyProbeCycles     = "auth.probe_cycles"
	KeyLandmarkTimeout = "auth.landmark_timeout"
	KeyConfirmRetries  = "auth.confirm_retries"
	KeyConfirmWait     = "auth.confirm_wait"
	KeySearchPolls     = "auth.search_polls"
	KeySearchPollWait  = "auth.search_poll_wait"
	KeySettle          = "oracle.settle"
	KeyUserInfoURL     = "oracle.userinfo_url"
	KeyUserInfoTries   = "oracle.userinfo_attempts"
	KeyUserInfoWait    = "oracle.userinfo_wait"
	KeyRepollEvery     = "search.repoll_every"
	KeyCooldown        = "search.cooldown"
	KeyRetries         = "search.retries"
	KeyRetryBackoff    = "search.retry_backoff"
	KeyMaxFailures     = "search.max_consecutive_failures"
	KeyWaitMin         = "search.wait_min"
	KeyWaitMax         = "search.wait_max"
	KeyRefillDelay     = "search.refill_delay"
	KeyHotTermsURL     = "search.hotterms_url"
)

// Account sources.
const (
	SourceFile  = "file"
	SourceMongo = "mongo"
)

// Config is the typed run configuration. It is read once and passed by value.
type Config struct {
	LogLevel string

	Browser  BrowserConfig
	Proxy    string
	Accounts AccountsConfig
	Mongo    MongoConfig
	Notify   NotifyConfig
	Run      RunConfig
	Auth     AuthConfig
	Oracle   OracleConfig
	Search   SearchConfig

	ProfileRoot string
}

// BrowserConfig holds browser launch options.
type BrowserConfig struct {
	Visible  bool
	Lang     string
	Geo      string
	ExecPath string
}

// AccountsConfig selects where accounts are read from.
type AccountsConfig struct {
	Source string
	File   string
}

// MongoConfig holds the MongoDB connection used for accounts and run history.
type MongoConfig struct {
	URI      string
	Database string
}

// Enabled reports whether a MongoDB URI was configured.
func (m MongoConfig) Enabled() bool {
	return m.URI != ""
}

// NotifyConfig holds notification channel credentials. Empty values disable a channel.
type NotifyConfig struct {
	TelegramToken  string
	TelegramChatID string
	TelegramAPI    string
	DiscordWebhook string
	PushPlusToken  string
	PushPlusURL    string
	Timeout        time.Duration
}

// RunConfig holds batch-level options.
type RunConfig struct {
	// AccountTimeout bounds one account's run. Zero disables the bound.
	AccountTimeout time.Duration
	// TargetBalance triggers a goal notification when reached. Zero disables it.
	TargetBalance int
	Activities    bool
	BaseTier      string
}

// AuthConfig holds login bounds.
type AuthConfig struct {
	ProbeCycles     int
	LandmarkTimeout time.Duration
	ConfirmRetries  int
	ConfirmWait     time.Duration
	SearchPolls     int
	SearchPollWait  time.Duration
}

// OracleConfig holds balance reading options.
type OracleConfig struct {
	Settle           time.Duration
	UserInfoURL      string
	UserInfoAttempts int
	UserInfoWait     time.Duration
}

// SearchConfig holds task loop options.
type SearchConfig struct {
	RepollEvery            int
	Cooldown               time.Duration
	Retries                int
	RetryBackoff           time.Duration
	MaxConsecutiveFailures int
	WaitMin                time.Duration
	WaitMax                time.Duration
	RefillDelay            time.Duration
	HotTermsURL            string
}

// defaults lists the default value of every key.
var defaults = map[string]any{
	KeyLogLevel:        "info",
	KeyVisible:         false,
	KeyLang:            "en",
	KeyGeo:             "US",
	KeyExecPath:        "",
	KeyProxy:           "",
	KeyAccountsFile:    "accounts.yaml",
	KeyAccountsSource:  SourceFile,
	KeyMongoURI:        "",
	KeyMongoDatabase:   "rewardsfarmer",
	KeyTelegram:        "",
	KeyTelegramAPI:     "https://api.telegram.org",
	KeyDiscord:         "",
	KeyPushPlus:        "",
	KeyPushPlusURL:     "https://www.pushplus.plus/send",
	KeyNotifyTimeout:   15 * time.Second,
	KeyAccountTimeout:  time.Duration(0),
	KeyTargetBalance:   0,
	KeyActivities:      true,
	KeyBaseTier:        "Level1",
	KeyProfileRoot:     "sessions",
	KeyProbeCycles:     5,
	KeyLandmarkTimeout: 5 * time.Second,
	KeyConfirmRetries:  10,
	KeyConfirmWait:     15 * time.Second,
	KeySearchPolls:     30,
	KeySearchPollWait:  time.Second,
	KeySettle:          8 * time.Second,
	KeyUserInfoURL:     "https://cn.bing.com/rewards/panelflyout/getuserinfo",
	KeyUserInfoTries:   5,
	KeyUserInfoWait:    time.Second,
	KeyRepollEvery:     4,
	KeyCooldown:        10 * time.Minute,
	KeyRetries:         3,
	KeyRetryBackoff:    5 * time.Second,
	KeyMaxFailures:     12,
	KeyWaitMin:         18 * time.Second,
	KeyWaitMax:         30 * time.Second,
	KeyRefillDelay:     2 * time.Second,
	KeyHotTermsURL:     "https://api.gmya.net/Api/",
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	v := viper.New()
	setDefaults(v)
	cfg, _ := fromViper(v)
	return cfg
}

// NewViper returns a viper instance with defaults, env binding and search paths set.
// Callers may bind CLI flags on it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, homeDir))
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// LoadEnvFile loads variables from an optional .env file into the process environment.
// A missing file is not an error.
func LoadEnvFile(path string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to load env file", "path", path, "error", err)
		}
		return
	}
	logger.Debug("Loaded env file", "path", path)
}

// Load reads the config file (explicit path, or the search paths when empty)
// and returns the typed configuration. A missing config file is not an error.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = NewViper()
	}
	if path != "" {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		LogLevel: v.GetString(KeyLogLevel),
		Browser: BrowserConfig{
			Visible:  v.GetBool(KeyVisible),
			Lang:     v.GetString(KeyLang),
			Geo:      v.GetString(KeyGeo),
			ExecPath: v.GetString(KeyExecPath),
		},
		Proxy: v.GetString(KeyProxy),
		Accounts: AccountsConfig{
			Source: strings.ToLower(v.GetString(KeyAccountsSource)),
			File:   v.GetString(KeyAccountsFile),
		},
		Mongo: MongoConfig{
			URI:      v.GetString(KeyMongoURI),
			Database: v.GetString(KeyMongoDatabase),
		},
		Notify: NotifyConfig{
			TelegramAPI:    v.GetString(KeyTelegramAPI),
			DiscordWebhook: v.GetString(KeyDiscord),
			PushPlusToken:  v.GetString(KeyPushPlus),
			PushPlusURL:    v.GetString(KeyPushPlusURL),
			Timeout:        v.GetDuration(KeyNotifyTimeout),
		},
		Run: RunConfig{
			AccountTimeout: v.GetDuration(KeyAccountTimeout),
			TargetBalance:  v.GetInt(KeyTargetBalance),
			Activities:     v.GetBool(KeyActivities),
			BaseTier:       v.GetString(KeyBaseTier),
		},
		Auth: AuthConfig{
			ProbeCycles:     v.GetInt(KeyProbeCycles),
			LandmarkTimeout: v.GetDuration(KeyLandmarkTimeout),
			ConfirmRetries:  v.GetInt(KeyConfirmRetries),
			ConfirmWait:     v.GetDuration(KeyConfirmWait),
			SearchPolls:     v.GetInt(KeySearchPolls),
			SearchPollWait:  v.GetDuration(KeySearchPollWait),
		},
		Oracle: OracleConfig{
			Settle:           v.GetDuration(KeySettle),
			UserInfoURL:      v.GetString(KeyUserInfoURL),
			UserInfoAttempts: v.GetInt(KeyUserInfoTries),
			UserInfoWait:     v.GetDuration(KeyUserInfoWait),
		},
		Search: SearchConfig{
			RepollEvery:            v.GetInt(KeyRepollEvery),
			Cooldown:               v.GetDuration(KeyCooldown),
			Retries:                v.GetInt(KeyRetries),
			RetryBackoff:           v.GetDuration(KeyRetryBackoff),
			MaxConsecutiveFailures: v.GetInt(KeyMaxFailures),
			WaitMin:                v.GetDuration(KeyWaitMin),
			WaitMax:                v.GetDuration(KeyWaitMax),
			RefillDelay:            v.GetDuration(KeyRefillDelay),
			HotTermsURL:            v.GetString(KeyHotTermsURL),
		},
		ProfileRoot: v.GetString(KeyProfileRoot),
	}

	if telegram := v.GetString(KeyTelegram); telegram != "" {
		token, chatID, ok := strings.Cut(telegram, ",")
		if !ok || token == "" || chatID == "" {
			return Config{}, fmt.Errorf("%s must be TOKEN,CHAT_ID", KeyTelegram)
		}
		cfg.Notify.TelegramToken = strings.TrimSpace(token)
		cfg.Notify.TelegramChatID = strings.TrimSpace(chatID)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the bounds the engine relies on.
func (c Config) Validate() error {
	switch c.Accounts.Source {
	case SourceFile:
		if c.Accounts.File == "" {
			return fmt.Errorf("%s is empty", KeyAccountsFile)
		}
	case SourceMongo:
		if !c.Mongo.Enabled() {
			return fmt.Errorf("%s=%s requires %s", KeyAccountsSource, SourceMongo, KeyMongoURI)
		}
	default:
		return fmt.Errorf("unknown %s %q", KeyAccountsSource, c.Accounts.Source)
	}
	if c.Auth.ProbeCycles < 1 || c.Auth.ConfirmRetries < 1 || c.Auth.SearchPolls < 1 {
		return errors.New("auth bounds must be positive")
	}
	if c.Search.RepollEvery < 1 {
		return fmt.Errorf("%s must be positive", KeyRepollEvery)
	}
	if c.Search.WaitMax < c.Search.WaitMin {
		return fmt.Errorf("%s is below %s", KeyWaitMax, KeyWaitMin)
	}
	if c.Run.AccountTimeout < 0 || c.Run.TargetBalance < 0 {
		return errors.New("run bounds must not be negative")
	}
	return nil
}

// Locale returns the browser language tag, e.g. "en-US".
func (b BrowserConfig) Locale() string {
	if b.Geo == "" {
		return b.Lang
	}
	return b.Lang + "-" + strings.ToUpper(b.Geo)
}
