package session

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"rewardsfarmer-go/core/timing"
	"rewardsfarmer-go/infrastructure/browser"
)

// BrowserController wraps the driver with the retry and dismissal helpers
// shared by the authenticator, the oracle and the activity runner.
type BrowserController struct {
	driver browser.Driver
	logger *slog.Logger
	sleep  timing.SleepFunc

	// RetryWait is the pause after a failed navigation before the refresh-and-retry.
	RetryWait time.Duration
}

// NewBrowserController creates a new browser controller.
func NewBrowserController(driver browser.Driver, logger *slog.Logger) *BrowserController {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserController{
		driver:    driver,
		logger:    logger,
		sleep:     timing.Sleep,
		RetryWait: 10 * time.Second,
	}
}

// Driver returns the underlying driver.
func (c *BrowserController) Driver() browser.Driver {
	return c.driver
}

// Navigate opens rawURL. A failed navigation gets one refresh-and-retry.
func (c *BrowserController) Navigate(ctx context.Context, rawURL string) error {
	if !c.driver.IsRunning() {
		return browser.ErrBrowserNotRunning
	}
	err := c.driver.Navigate(ctx, rawURL)
	if err == nil {
		return nil
	}

	c.logger.Warn("Navigation failed, refreshing", "url", rawURL, "error", err)
	if reloadErr := c.driver.Reload(ctx); reloadErr != nil {
		c.logger.Debug("Reload failed", "error", reloadErr)
	}
	if sleepErr := c.sleep(ctx, c.RetryWait); sleepErr != nil {
		return sleepErr
	}
	return c.driver.Navigate(ctx, rawURL)
}

// Refresh reloads the current page.
func (c *BrowserController) Refresh(ctx context.Context) error {
	if !c.driver.IsRunning() {
		return browser.ErrBrowserNotRunning
	}
	return c.driver.Reload(ctx)
}

// ClickIfPresent clicks selector when it currently matches an element.
func (c *BrowserController) ClickIfPresent(ctx context.Context, selector string) bool {
	ok, err := c.driver.Exists(ctx, selector)
	if err != nil || !ok {
		return false
	}
	if err := c.driver.Click(ctx, selector); err != nil {
		c.logger.Debug("Click failed", "selector", selector, "error", err)
		return false
	}
	return true
}

// DismissAny clicks every present selector and reports whether anything was dismissed.
func (c *BrowserController) DismissAny(ctx context.Context, selectors []string) bool {
	dismissed := false
	for _, sel := range selectors {
		if c.ClickIfPresent(ctx, sel) {
			c.logger.Debug("Dismissed interstitial", "selector", sel)
			dismissed = true
		}
	}
	return dismissed
}

// AtRoot reports whether the active tab is on host with an empty or "/" path.
func (c *BrowserController) AtRoot(ctx context.Context, host string) bool {
	current, err := c.driver.CurrentURL(ctx)
	if err != nil {
		return false
	}
	return isRoot(current, host)
}

// GetCookies retrieves all browser cookies.
func (c *BrowserController) GetCookies(ctx context.Context) ([]browser.Cookie, error) {
	if !c.driver.IsRunning() {
		return nil, browser.ErrBrowserNotRunning
	}
	return c.driver.GetCookies(ctx)
}

// IsRunning returns true if the browser is active.
func (c *BrowserController) IsRunning() bool {
	return c.driver.IsRunning()
}

func isRoot(rawURL, host string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Hostname() == host && (u.Path == "" || u.Path == "/")
}
