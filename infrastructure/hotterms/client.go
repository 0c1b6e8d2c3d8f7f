// Package hotterms fetches trending search terms from public hot-list providers.
package hotterms

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://api.gmya.net/Api/"
	successCode    = 200
)

// DefaultProviders are the hot-list endpoints appended to the base URL.
var DefaultProviders = []string{"BaiduHot", "TouTiaoHot", "DouYinHot", "WeiBoHot"}

// Config contains configuration for the hot-term client.
type Config struct {
	BaseURL   string
	Providers []string
	Timeout   time.Duration
	UserAgent string
	Proxy     string

	// Fallback is used when every provider fails.
	Fallback []string
}

// DefaultConfig returns default hot-term client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   DefaultBaseURL,
		Providers: DefaultProviders,
		Timeout:   10 * time.Second,
		Fallback:  DefaultFallback,
	}
}

// Client fetches search terms. It never fails: on total provider failure it
// returns a shuffled copy of the fallback list.
type Client struct {
	config  *Config
	client  *resty.Client
	logger  *slog.Logger
	shuffle func(n int, swap func(i, j int))
}

// NewClient creates a new hot-term client.
func NewClient(config *Config, logger *slog.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().
		SetTimeout(config.Timeout).
		SetHeader("accept", "application/json")
	if config.UserAgent != "" {
		client.SetHeader("user-agent", config.UserAgent)
	}
	if config.Proxy != "" {
		client.SetProxy(config.Proxy)
	}

	return &Client{
		config:  config,
		client:  client,
		logger:  logger.With("component", "hotterms"),
		shuffle: rand.Shuffle,
	}
}

// Fetch returns terms from the first provider that answers, trying providers in random order.
func (c *Client) Fetch(ctx context.Context) []string {
	providers := append([]string(nil), c.config.Providers...)
	c.shuffle(len(providers), func(i, j int) {
		providers[i], providers[j] = providers[j], providers[i]
	})

	for _, provider := range providers {
		if ctx.Err() != nil {
			break
		}
		terms, err := c.fetchProvider(ctx, provider)
		if err != nil {
			c.logger.Warn("Hot-term provider failed", "provider", provider, "error", err)
			continue
		}
		c.logger.Info("Fetched hot terms", "provider", provider, "count", len(terms))
		return c.shuffled(terms)
	}

	c.logger.Warn("All hot-term providers failed, using fallback list", "count", len(c.config.Fallback))
	return c.shuffled(c.config.Fallback)
}

func (c *Client) fetchProvider(ctx context.Context, provider string) ([]string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(c.config.BaseURL + provider)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	var payload struct {
		Code int `json:"code"`
		Data []struct {
			Title string `json:"title"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if payload.Code != successCode {
		return nil, fmt.Errorf("provider returned code %d", payload.Code)
	}

	terms := make([]string, 0, len(payload.Data))
	for _, item := range payload.Data {
		if t := strings.TrimSpace(item.Title); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("provider returned no terms")
	}
	return terms, nil
}

func (c *Client) shuffled(terms []string) []string {
	out := append([]string(nil), terms...)
	c.shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
