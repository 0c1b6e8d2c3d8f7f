// Package rewardsapi provides the client for the rewards user-info endpoint.
package rewardsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"rewardsfarmer-go/infrastructure/browser"
)

// ErrDisabled is returned by NoOpClient.
var ErrDisabled = errors.New("user-info endpoint is disabled")

// DefaultUserInfoURL is the flyout endpoint reporting the search-side balance.
const DefaultUserInfoURL = "https://cn.bing.com/rewards/panelflyout/getuserinfo"

// Client reads the user-info endpoint using the browser's cookies.
type Client interface {
	// UserInfo fetches balance and membership. Retries are handled by the client.
	UserInfo(ctx context.Context, cookies []browser.Cookie) (*UserInfo, error)
}

// UserInfo is the decoded user-info payload.
type UserInfo struct {
	Balance       int
	IsRewardsUser bool
}

// ClientConfig contains configuration for the user-info client.
type ClientConfig struct {
	URL       string
	Timeout   time.Duration
	Attempts  int
	RetryWait time.Duration
	UserAgent string
	Proxy     string
}

// DefaultClientConfig returns default user-info client configuration.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		URL:       DefaultUserInfoURL,
		Timeout:   10 * time.Second,
		Attempts:  5,
		RetryWait: time.Second,
	}
}

// HTTPClient implements Client with resty.
type HTTPClient struct {
	config *ClientConfig
	client *resty.Client
}

// NewHTTPClient creates a new resty-based user-info client.
func NewHTTPClient(config *ClientConfig) *HTTPClient {
	if config == nil {
		config = DefaultClientConfig()
	}
	attempts := config.Attempts
	if attempts < 1 {
		attempts = 1
	}

	client := resty.New().
		SetTimeout(config.Timeout).
		SetRetryCount(attempts - 1).
		SetRetryWaitTime(config.RetryWait).
		SetRetryMaxWaitTime(config.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() != http.StatusOK
		}).
		SetHeader("accept", "application/json")

	if config.UserAgent != "" {
		client.SetHeader("user-agent", config.UserAgent)
	}
	if config.Proxy != "" {
		client.SetProxy(config.Proxy)
	}

	return &HTTPClient{config: config, client: client}
}

// UserInfo fetches the user-info payload.
func (c *HTTPClient) UserInfo(ctx context.Context, cookies []browser.Cookie) (*UserInfo, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetCookies(toHTTPCookies(cookies)).
		Get(c.config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to request user info: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	var payload struct {
		UserInfo *struct {
			Balance       int  `json:"balance"`
			IsRewardsUser bool `json:"isRewardsUser"`
		} `json:"userInfo"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	if payload.UserInfo == nil {
		return nil, fmt.Errorf("user info missing from response")
	}

	return &UserInfo{
		Balance:       payload.UserInfo.Balance,
		IsRewardsUser: payload.UserInfo.IsRewardsUser,
	}, nil
}

func toHTTPCookies(cookies []browser.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)

// NoOpClient is a user-info client that always fails, for tests or offline runs.
type NoOpClient struct{}

// NewNoOpClient creates a no-operation user-info client.
func NewNoOpClient() *NoOpClient {
	return &NoOpClient{}
}

func (c *NoOpClient) UserInfo(ctx context.Context, cookies []browser.Cookie) (*UserInfo, error) {
	return nil, ErrDisabled
}

var _ Client = (*NoOpClient)(nil)
