package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"rewardsfarmer-go/core/event"
	"rewardsfarmer-go/core/eventbus"
	"rewardsfarmer-go/core/timing"
	"rewardsfarmer-go/domain/account"
	"rewardsfarmer-go/infrastructure/browser"
	"rewardsfarmer-go/infrastructure/rewardsapi"
)

var errNotFound = errors.New("element not found")

// mockDriver is a scriptable implementation of browser.Driver for testing.
// Selectors listed in visible satisfy waits, Exists and clicks.
type mockDriver struct {
	mu sync.Mutex

	running  bool
	startErr error
	visible  map[string]bool
	texts    map[string]string
	url      string
	cookies  []browser.Cookie

	navigateErrs []error
	dashboard    string // JSON returned for the dashboard script
	evalErr      error
	switchErr    error

	onNavigate func(m *mockDriver, url string)
	onClick    func(m *mockDriver, selector string)
	onReload   func(m *mockDriver)

	navigations []string
	clicks      []string
	keys        map[string]string
	scripts     []string
	reloads     int
	waits       map[string]int
	switched    int
	closed      int
}

func newMockDriver() *mockDriver {
	return &mockDriver{
		running: true,
		visible: make(map[string]bool),
		texts:   make(map[string]string),
		keys:    make(map[string]string),
	}
}

func (m *mockDriver) show(selectors ...string) {
	for _, s := range selectors {
		m.visible[s] = true
	}
}

func (m *mockDriver) hide(selectors ...string) {
	for _, s := range selectors {
		delete(m.visible, s)
	}
}

func (m *mockDriver) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.running = true
	return nil
}

func (m *mockDriver) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

func (m *mockDriver) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *mockDriver) Navigate(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navigations = append(m.navigations, url)
	if len(m.navigateErrs) > 0 {
		err := m.navigateErrs[0]
		m.navigateErrs = m.navigateErrs[1:]
		if err != nil {
			return err
		}
	}
	m.url = url
	if m.onNavigate != nil {
		m.onNavigate(m, url)
	}
	return nil
}

func (m *mockDriver) Reload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads++
	if m.onReload != nil {
		m.onReload(m)
	}
	return nil
}

func (m *mockDriver) CurrentURL(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.url, nil
}

func (m *mockDriver) isVisible(selector string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.visible[selector] {
		return nil
	}
	return errNotFound
}

func (m *mockDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	m.mu.Lock()
	if m.waits == nil {
		m.waits = make(map[string]int)
	}
	m.waits[selector]++
	m.mu.Unlock()
	return m.isVisible(selector)
}

func (m *mockDriver) WaitClickable(ctx context.Context, selector string, timeout time.Duration) error {
	return m.isVisible(selector)
}

func (m *mockDriver) Exists(ctx context.Context, selector string) (bool, error) {
	return m.isVisible(selector) == nil, nil
}

func (m *mockDriver) Click(ctx context.Context, selector string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.visible[selector] {
		return errNotFound
	}
	m.clicks = append(m.clicks, selector)
	if m.onClick != nil {
		m.onClick(m, selector)
	}
	return nil
}

func (m *mockDriver) SendKeys(ctx context.Context, selector, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.visible[selector] {
		return errNotFound
	}
	m.keys[selector] = text
	return nil
}

func (m *mockDriver) Submit(ctx context.Context, selector string) error {
	return m.isVisible(selector)
}

func (m *mockDriver) Text(ctx context.Context, selector string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.texts[selector]
	if !ok {
		return "", errNotFound
	}
	return text, nil
}

func (m *mockDriver) Evaluate(ctx context.Context, expression string, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts = append(m.scripts, expression)
	if m.evalErr != nil {
		return m.evalErr
	}
	if out == nil {
		return nil
	}
	payload := m.dashboard
	if payload == "" {
		payload = "null"
	}
	return json.Unmarshal([]byte(payload), out)
}

func (m *mockDriver) GetCookies(ctx context.Context) ([]browser.Cookie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cookies, nil
}

func (m *mockDriver) SwitchToNewTab(ctx context.Context, timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.switchErr != nil {
		return m.switchErr
	}
	m.switched++
	return nil
}

func (m *mockDriver) CloseTab(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

var _ browser.Driver = (*mockDriver)(nil)

// mockUserInfo is a canned rewardsapi.Client.
type mockUserInfo struct {
	mu    sync.Mutex
	info  *rewardsapi.UserInfo
	err   error
	calls int
}

func (m *mockUserInfo) UserInfo(ctx context.Context, cookies []browser.Cookie) (*rewardsapi.UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.info, nil
}

// recordingBus is a synchronous eventbus.EventBus.
type recordingBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (b *recordingBus) Publish(e event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}
func (b *recordingBus) Subscribe(handler eventbus.EventHandler) string { return "" }
func (b *recordingBus) SubscribeSession(sessionID string, handler eventbus.EventHandler) string {
	return ""
}
func (b *recordingBus) Unsubscribe(subscriptionID string) {}
func (b *recordingBus) Close()                            {}

func (b *recordingBus) snapshot() []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]event.Event(nil), b.events...)
}

var testAccount = account.Account{Username: "alice@example.com", Password: `p"a\ss`}

// newTestSession builds a session whose waits return immediately.
func newTestSession(driver *mockDriver, client rewardsapi.Client, bus eventbus.EventBus) *Session {
	s := New(&Config{
		Account:  testAccount,
		Persona:  account.Desktop,
		Driver:   driver,
		UserInfo: client,
		EventBus: bus,
	})
	s.browserCtrl.sleep = timing.NoSleep
	s.oracle.setSleep(timing.NoSleep)
	return s
}

func TestBrowserController_NavigateRetriesOnce(t *testing.T) {
	driver := newMockDriver()
	driver.navigateErrs = []error{errors.New("net::ERR_TIMED_OUT")}
	ctrl := NewBrowserController(driver, nil)
	ctrl.sleep = timing.NoSleep

	if err := ctrl.Navigate(context.Background(), "https://example.com/"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if len(driver.navigations) != 2 {
		t.Errorf("navigations = %d, want 2", len(driver.navigations))
	}
	if driver.reloads != 1 {
		t.Errorf("reloads = %d, want 1", driver.reloads)
	}
}

func TestBrowserController_NavigateFailsAfterRetry(t *testing.T) {
	driver := newMockDriver()
	boom := errors.New("net::ERR_TIMED_OUT")
	driver.navigateErrs = []error{boom, boom}
	ctrl := NewBrowserController(driver, nil)
	ctrl.sleep = timing.NoSleep

	err := ctrl.Navigate(context.Background(), "https://example.com/")
	if !errors.Is(err, boom) {
		t.Errorf("Navigate() error = %v, want %v", err, boom)
	}
	if len(driver.navigations) != 2 {
		t.Errorf("navigations = %d, want 2", len(driver.navigations))
	}
}

func TestBrowserController_NotRunning(t *testing.T) {
	driver := newMockDriver()
	driver.running = false
	ctrl := NewBrowserController(driver, nil)

	if err := ctrl.Navigate(context.Background(), "https://example.com/"); !errors.Is(err, browser.ErrBrowserNotRunning) {
		t.Errorf("Navigate() error = %v, want ErrBrowserNotRunning", err)
	}
	if err := ctrl.Refresh(context.Background()); !errors.Is(err, browser.ErrBrowserNotRunning) {
		t.Errorf("Refresh() error = %v, want ErrBrowserNotRunning", err)
	}
	if _, err := ctrl.GetCookies(context.Background()); !errors.Is(err, browser.ErrBrowserNotRunning) {
		t.Errorf("GetCookies() error = %v, want ErrBrowserNotRunning", err)
	}
}

func TestBrowserController_DismissAny(t *testing.T) {
	driver := newMockDriver()
	driver.show("#iNext", "#idSIButton9")
	ctrl := NewBrowserController(driver, nil)

	if !ctrl.DismissAny(context.Background(), interstitials) {
		t.Fatal("DismissAny() = false, want true")
	}
	if len(driver.clicks) != 2 {
		t.Errorf("clicks = %v, want 2", driver.clicks)
	}

	empty := newMockDriver()
	if NewBrowserController(empty, nil).DismissAny(context.Background(), interstitials) {
		t.Error("DismissAny() = true on a page without interstitials")
	}
}

func TestIsRoot(t *testing.T) {
	tests := []struct {
		url  string
		host string
		want bool
	}{
		{"https://www.bing.com/", "www.bing.com", true},
		{"https://www.bing.com", "www.bing.com", true},
		{"https://www.bing.com/?toWww=1", "www.bing.com", true},
		{"https://www.bing.com/search?q=x", "www.bing.com", false},
		{"https://cn.bing.com/", "www.bing.com", false},
		{"://bad", "www.bing.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := isRoot(tt.url, tt.host); got != tt.want {
				t.Errorf("isRoot(%q, %q) = %v, want %v", tt.url, tt.host, got, tt.want)
			}
		})
	}
}

func TestSession_StartStop(t *testing.T) {
	driver := newMockDriver()
	driver.running = false
	s := newTestSession(driver, nil, nil)

	if s.ID() != "alice@example.com/desktop" {
		t.Errorf("ID() = %q", s.ID())
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !driver.IsRunning() {
		t.Error("driver should be running after Start")
	}

	s.Stop()
	s.Stop()
	if driver.IsRunning() {
		t.Error("driver should be stopped after Stop")
	}
}

func TestSession_StartError(t *testing.T) {
	driver := newMockDriver()
	driver.running = false
	driver.startErr = errors.New("chrome not found")
	s := newTestSession(driver, nil, nil)

	if err := s.Start(context.Background()); !errors.Is(err, driver.startErr) {
		t.Errorf("Start() error = %v, want wrapped %v", err, driver.startErr)
	}
}
