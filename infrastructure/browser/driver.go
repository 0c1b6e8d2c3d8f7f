// Package browser provides browser automation infrastructure.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrBrowserNotRunning is returned by every operation issued before Start or after Stop.
var ErrBrowserNotRunning = errors.New("browser not running")

// Driver defines the interface for browser automation.
// Selectors are CSS selectors, or XPath expressions when they start with "/".
type Driver interface {
	// Start launches the browser and applies device emulation.
	Start(ctx context.Context) error

	// Stop closes the browser and releases resources.
	Stop() error

	// IsRunning returns true if the browser is active.
	IsRunning() bool

	// Navigate navigates the active tab to the specified URL.
	Navigate(ctx context.Context, url string) error

	// Reload refreshes the current page.
	Reload(ctx context.Context) error

	// CurrentURL returns the URL of the active tab.
	CurrentURL(ctx context.Context) (string, error)

	// WaitVisible waits up to timeout for an element to become visible.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// WaitClickable waits up to timeout for an element to be visible and enabled.
	WaitClickable(ctx context.Context, selector string, timeout time.Duration) error

	// Exists reports whether the selector currently matches any element, without waiting.
	Exists(ctx context.Context, selector string) (bool, error)

	// Click clicks on the first element matching selector.
	Click(ctx context.Context, selector string) error

	// SendKeys types text into an element.
	SendKeys(ctx context.Context, selector, text string) error

	// Submit submits the form owning the element.
	Submit(ctx context.Context, selector string) error

	// Text returns the visible text of an element.
	Text(ctx context.Context, selector string) (string, error)

	// Evaluate runs a JavaScript expression and unmarshals its result into out. out may be nil.
	Evaluate(ctx context.Context, expression string, out any) error

	// GetCookies retrieves all browser cookies.
	GetCookies(ctx context.Context) ([]Cookie, error)

	// SwitchToNewTab waits up to timeout for a tab opened by the page and makes it active.
	SwitchToNewTab(ctx context.Context, timeout time.Duration) error

	// CloseTab closes the active tab and returns to the previous one.
	// Closing the original tab is a no-op.
	CloseTab(ctx context.Context) error
}

// Cookie represents a browser cookie.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	HTTPOnly bool
	Secure   bool
}

// DriverConfig holds configuration for browser drivers.
type DriverConfig struct {
	// Headless runs the browser without a visible window.
	Headless bool

	// WindowWidth is the browser window width.
	WindowWidth int

	// WindowHeight is the browser window height.
	WindowHeight int

	// Mobile enables touch and mobile viewport emulation.
	Mobile bool

	// DeviceScaleFactor is the emulated device pixel ratio.
	DeviceScaleFactor float64

	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string

	// Lang is the browser UI language and Accept-Language value, e.g. "en-US".
	Lang string

	// Proxy is an optional proxy URL. Credentials in the URL are answered through the fetch domain.
	Proxy string

	// DisableGPU disables GPU acceleration.
	DisableGPU bool

	// MuteAudio mutes browser audio.
	MuteAudio bool

	// HideScrollbars hides scrollbars.
	HideScrollbars bool

	// UserDataDir specifies a custom user data directory.
	UserDataDir string

	// ExecPath is the browser executable. Empty uses the chromedp lookup.
	ExecPath string
}

// DefaultDriverConfig returns default browser configuration.
func DefaultDriverConfig() *DriverConfig {
	return &DriverConfig{
		Headless:          true,
		WindowWidth:       1280,
		WindowHeight:      900,
		DeviceScaleFactor: 1,
		Lang:              "en-US",
		MuteAudio:         true,
		HideScrollbars:    true,
	}
}
