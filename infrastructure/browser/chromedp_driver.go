package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

const (
	defaultActionTimeout = 30 * time.Second
	tabPollInterval      = 500 * time.Millisecond
)

// tab is a chromedp context attached to one page target.
type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
	id     target.ID
}

// ChromeDPDriver implements Driver using chromedp.
type ChromeDPDriver struct {
	config      *DriverConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	tabs        []tab // tabs opened by the page, most recent last
	mu          sync.Mutex
	running     bool
}

// NewChromeDPDriver creates a new ChromeDP-based browser driver.
func NewChromeDPDriver(config *DriverConfig) *ChromeDPDriver {
	if config == nil {
		config = DefaultDriverConfig()
	}
	return &ChromeDPDriver{
		config: config,
	}
}

// by picks the chromedp query strategy for a selector.
func by(selector string) chromedp.QueryOption {
	if strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "(/") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// proxyServer returns the proxy address without credentials, plus the credentials if any.
func proxyServer(raw string) (server, user, pass string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid proxy %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", "", "", fmt.Errorf("invalid proxy %q: missing host", raw)
	}
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	return u.Scheme + "://" + u.Host, user, pass, nil
}

// buildExecAllocatorOptions builds chromedp options from config.
func (d *ChromeDPDriver) buildExecAllocatorOptions() ([]chromedp.ExecAllocatorOption, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.config.Headless),
		chromedp.Flag("hide-scrollbars", d.config.HideScrollbars),
		chromedp.Flag("mute-audio", d.config.MuteAudio),
		chromedp.Flag("disable-gpu", d.config.DisableGPU),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(d.config.WindowWidth, d.config.WindowHeight),
	)

	if d.config.Lang != "" {
		opts = append(opts, chromedp.Flag("lang", d.config.Lang))
	}
	if d.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(d.config.UserAgent))
	}
	if d.config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(d.config.UserDataDir))
	}
	if d.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(d.config.ExecPath))
	}
	if d.config.Proxy != "" {
		server, _, _, err := proxyServer(d.config.Proxy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chromedp.ProxyServer(server))
	}

	return opts, nil
}

// emulationActions applies the device profile to a tab.
func (d *ChromeDPDriver) emulationActions() []chromedp.Action {
	scale := d.config.DeviceScaleFactor
	if scale <= 0 {
		scale = 1
	}

	actions := []chromedp.Action{
		emulation.SetDeviceMetricsOverride(int64(d.config.WindowWidth), int64(d.config.WindowHeight), scale, d.config.Mobile),
	}
	if d.config.UserAgent != "" {
		ua := emulation.SetUserAgentOverride(d.config.UserAgent)
		if d.config.Lang != "" {
			ua = ua.WithAcceptLanguage(d.config.Lang)
		}
		actions = append(actions, ua)
	}
	if d.config.Mobile {
		actions = append(actions, emulation.SetTouchEmulationEnabled(true).WithMaxTouchPoints(5))
	}
	return actions
}

// enableProxyAuth answers proxy authentication challenges for one tab.
func (d *ChromeDPDriver) enableProxyAuth(tabCtx context.Context) error {
	if d.config.Proxy == "" {
		return nil
	}
	_, user, pass, err := proxyServer(d.config.Proxy)
	if err != nil || user == "" {
		return err
	}

	chromedp.ListenTarget(tabCtx, func(ev any) {
		switch e := ev.(type) {
		case *fetch.EventRequestPaused:
			go func() {
				_ = chromedp.Run(tabCtx, fetch.ContinueRequest(e.RequestID))
			}()
		case *fetch.EventAuthRequired:
			go func() {
				_ = chromedp.Run(tabCtx, fetch.ContinueWithAuth(e.RequestID, &fetch.AuthChallengeResponse{
					Response: fetch.AuthChallengeResponseResponseProvideCredentials,
					Username: user,
					Password: pass,
				}))
			}()
		}
	})

	return chromedp.Run(tabCtx, fetch.Enable().WithHandleAuthRequests(true))
}

// Start launches the browser and applies device emulation.
func (d *ChromeDPDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("browser already running")
	}

	opts, err := d.buildExecAllocatorOptions()
	if err != nil {
		return err
	}

	// The browser lifecycle is independent of the caller's context; Stop ends it.
	d.allocCtx, d.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	d.ctx, d.cancel = chromedp.NewContext(d.allocCtx)

	if err := d.enableProxyAuth(d.ctx); err != nil {
		d.cleanup()
		return fmt.Errorf("failed to enable proxy auth: %w", err)
	}
	if err := chromedp.Run(d.ctx, d.emulationActions()...); err != nil {
		d.cleanup()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	d.running = true
	return nil
}

// Stop closes the browser and releases resources.
func (d *ChromeDPDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.cleanup()
	return nil
}

func (d *ChromeDPDriver) cleanup() {
	for i := len(d.tabs) - 1; i >= 0; i-- {
		d.tabs[i].cancel()
	}
	d.tabs = nil

	d.running = false
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.allocCancel != nil {
		d.allocCancel()
		d.allocCancel = nil
	}
	d.ctx = nil
	d.allocCtx = nil
}

// IsRunning returns true if the browser is active.
func (d *ChromeDPDriver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// activeContext snapshots the context of the tab operations run against.
func (d *ChromeDPDriver) activeContext() (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running || d.ctx == nil {
		return nil, ErrBrowserNotRunning
	}
	if n := len(d.tabs); n > 0 {
		return d.tabs[n-1].ctx, nil
	}
	return d.ctx, nil
}

// run executes actions on the active tab, bounded by timeout and the caller's context.
func (d *ChromeDPDriver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	browserCtx, err := d.activeContext()
	if err != nil {
		return err
	}

	if timeout <= 0 {
		timeout = defaultActionTimeout
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return context.DeadlineExceeded
		}
	}

	execCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()

	// Run in a goroutine so the caller's cancellation is observed as well.
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(execCtx, actions...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

// Navigate navigates to the specified URL.
func (d *ChromeDPDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, 0, chromedp.Navigate(url))
}

// Reload refreshes the current page.
func (d *ChromeDPDriver) Reload(ctx context.Context) error {
	return d.run(ctx, 0, chromedp.Reload())
}

// CurrentURL returns the URL of the active tab.
func (d *ChromeDPDriver) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := d.run(ctx, 5*time.Second, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// WaitVisible waits for an element to become visible.
func (d *ChromeDPDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return d.run(ctx, timeout, chromedp.WaitVisible(selector, by(selector)))
}

// WaitClickable waits for an element to be visible and enabled.
func (d *ChromeDPDriver) WaitClickable(ctx context.Context, selector string, timeout time.Duration) error {
	return d.run(ctx, timeout,
		chromedp.WaitVisible(selector, by(selector)),
		chromedp.WaitEnabled(selector, by(selector)),
	)
}

// Exists reports whether the selector matches any element right now.
func (d *ChromeDPDriver) Exists(ctx context.Context, selector string) (bool, error) {
	var nodes []*cdp.Node
	if err := d.run(ctx, 5*time.Second,
		chromedp.Nodes(selector, &nodes, by(selector), chromedp.AtLeast(0)),
	); err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

// Click clicks on an element by selector.
func (d *ChromeDPDriver) Click(ctx context.Context, selector string) error {
	return d.run(ctx, 10*time.Second, chromedp.Click(selector, by(selector), chromedp.NodeVisible))
}

// SendKeys sends keystrokes to an element.
func (d *ChromeDPDriver) SendKeys(ctx context.Context, selector, text string) error {
	return d.run(ctx, 10*time.Second, chromedp.SendKeys(selector, text, by(selector)))
}

// Submit submits the form owning the element.
func (d *ChromeDPDriver) Submit(ctx context.Context, selector string) error {
	return d.run(ctx, 10*time.Second, chromedp.Submit(selector, by(selector)))
}

// Text returns the visible text of an element.
func (d *ChromeDPDriver) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := d.run(ctx, 10*time.Second, chromedp.Text(selector, &text, by(selector))); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Evaluate runs a JavaScript expression on the active tab.
func (d *ChromeDPDriver) Evaluate(ctx context.Context, expression string, out any) error {
	if out == nil {
		var discard any
		out = &discard
	}
	return d.run(ctx, 10*time.Second, chromedp.Evaluate(expression, out))
}

// GetCookies retrieves all browser cookies.
func (d *ChromeDPDriver) GetCookies(ctx context.Context) ([]Cookie, error) {
	var networkCookies []*network.Cookie
	if err := d.run(ctx, 10*time.Second,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			networkCookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	); err != nil {
		return nil, fmt.Errorf("failed to get cookies: %w", err)
	}

	cookies := make([]Cookie, len(networkCookies))
	for i, nc := range networkCookies {
		cookies[i] = Cookie{
			Name:     nc.Name,
			Value:    nc.Value,
			Domain:   nc.Domain,
			Path:     nc.Path,
			HTTPOnly: nc.HTTPOnly,
			Secure:   nc.Secure,
		}
	}

	return cookies, nil
}

// knownTargets returns the IDs of the original tab and every attached tab.
func (d *ChromeDPDriver) knownTargets() (context.Context, map[target.ID]bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running || d.ctx == nil {
		return nil, nil, ErrBrowserNotRunning
	}

	known := make(map[target.ID]bool, len(d.tabs)+1)
	if c := chromedp.FromContext(d.ctx); c != nil && c.Target != nil {
		known[c.Target.TargetID] = true
	}
	for _, t := range d.tabs {
		known[t.id] = true
	}
	return d.ctx, known, nil
}

// SwitchToNewTab attaches to the most recently opened page target.
func (d *ChromeDPDriver) SwitchToNewTab(ctx context.Context, timeout time.Duration) error {
	rootCtx, known, err := d.knownTargets()
	if err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for {
		infos, err := chromedp.Targets(rootCtx)
		if err != nil {
			return fmt.Errorf("failed to list tabs: %w", err)
		}
		for _, info := range infos {
			if info.Type != "page" || known[info.TargetID] {
				continue
			}

			tabCtx, cancel := chromedp.NewContext(rootCtx, chromedp.WithTargetID(info.TargetID))
			if err := d.enableProxyAuth(tabCtx); err != nil {
				cancel()
				return fmt.Errorf("failed to enable proxy auth: %w", err)
			}
			if err := chromedp.Run(tabCtx, d.emulationActions()...); err != nil {
				cancel()
				return fmt.Errorf("failed to attach tab: %w", err)
			}

			d.mu.Lock()
			d.tabs = append(d.tabs, tab{ctx: tabCtx, cancel: cancel, id: info.TargetID})
			d.mu.Unlock()
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("no new tab within %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(tabPollInterval):
		}
	}
}

// CloseTab closes the active tab and returns to the previous one.
func (d *ChromeDPDriver) CloseTab(ctx context.Context) error {
	d.mu.Lock()
	if !d.running || d.ctx == nil {
		d.mu.Unlock()
		return ErrBrowserNotRunning
	}
	n := len(d.tabs)
	if n == 0 {
		d.mu.Unlock()
		return nil
	}
	last := d.tabs[n-1]
	d.tabs = d.tabs[:n-1]
	d.mu.Unlock()

	defer last.cancel()
	if err := chromedp.Run(last.ctx, page.Close()); err != nil {
		return fmt.Errorf("failed to close tab: %w", err)
	}
	return nil
}

// Ensure ChromeDPDriver implements Driver
var _ Driver = (*ChromeDPDriver)(nil)
