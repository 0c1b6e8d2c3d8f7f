package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"rewardsfarmer-go/core/event"
	"rewardsfarmer-go/core/state"
	"rewardsfarmer-go/core/timing"
)

var (
	// ErrAuthFailed wraps every error that ends a login in the Failed state.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrConfirmationExhausted is returned when the platform never accepted the login.
	ErrConfirmationExhausted = errors.New("platform confirmation retries exhausted")
	// ErrNoLandmark is returned when no login landmark appeared and nothing could be dismissed.
	ErrNoLandmark = errors.New("no login landmark found")
	// ErrNoConfirmer is returned when a second factor is required but no confirmer is set.
	ErrNoConfirmer = errors.New("second factor required but no confirmer configured")
)

// Selectors used on the identity provider and the rewards pages.
const (
	portalLandmark       = `html[data-role-name="MeePortal"]`
	usernameLandmark     = "#usernameEntry"
	primaryButton        = `[data-testid="primaryButton"]`
	secondaryButton      = `[data-testid="secondaryButton"]`
	passwordField        = `input[name="passwd"]`
	otherWaysToSignIn    = `//span[contains(text(), "Other ways to sign in")]`
	useYourPassword      = `//span[contains(text(), "Use your password")]`
	secondFactorCode     = "#idRemoteNGC_DisplaySign"
	cookieBannerSelector = "#cookie-banner button"
	searchCookieBanner   = "#bnp_btn_accept"
)

// interstitials are the buttons clicked to get past identity-provider prompts.
var interstitials = []string{
	"#iLandingViewAction",
	"#iShowSkip",
	"#iNext",
	"#iLooksGood",
	"#idSIButton9",
	".ms-Button.ms-Button--primary",
	primaryButton,
}

// Confirmer blocks until the operator has confirmed an out-of-band login step.
type Confirmer interface {
	Confirm(ctx context.Context, message string) error
}

// AuthConfig holds the login endpoints and bounds.
type AuthConfig struct {
	LoginURL       string
	ConfirmURL     string
	PlatformHost   string
	SearchLoginURL string
	SearchHost     string

	ProbeCycles     int
	LandmarkTimeout time.Duration
	InputTimeout    time.Duration
	PostSubmitWait  time.Duration
	ConfirmRetries  int
	ConfirmWait     time.Duration
	SearchPolls     int
	SearchPollWait  time.Duration
}

// DefaultAuthConfig returns default login configuration.
func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		LoginURL:       "https://login.live.com/",
		ConfirmURL:     "https://account.microsoft.com/",
		PlatformHost:   "account.microsoft.com",
		SearchLoginURL: "https://www.bing.com/fd/auth/signin?action=interactive&provider=windows_live_id&return_url=https%3A%2F%2Fwww.bing.com%2F",
		SearchHost:     "www.bing.com",

		ProbeCycles:     5,
		LandmarkTimeout: 5 * time.Second,
		InputTimeout:    10 * time.Second,
		PostSubmitWait:  5 * time.Second,
		ConfirmRetries:  10,
		ConfirmWait:     15 * time.Second,
		SearchPolls:     30,
		SearchPollWait:  time.Second,
	}
}

// Authenticator drives one login attempt for a session.
type Authenticator struct {
	session   *Session
	config    *AuthConfig
	confirmer Confirmer
	sleep     timing.SleepFunc
	logger    *slog.Logger

	mu    sync.RWMutex
	state state.AuthState
}

// NewAuthenticator creates an authenticator for the session.
func NewAuthenticator(s *Session, config *AuthConfig, confirmer Confirmer) *Authenticator {
	if config == nil {
		config = DefaultAuthConfig()
	}
	return &Authenticator{
		session:   s,
		config:    config,
		confirmer: confirmer,
		sleep:     timing.Sleep,
		logger:    s.Logger().With("component", "auth"),
		state:     state.StateStart,
	}
}

// State returns the current authentication state.
func (a *Authenticator) State() state.AuthState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Login authenticates the session against the identity provider, the rewards
// platform and the search surface, and returns the starting balance.
func (a *Authenticator) Login(ctx context.Context) (int, error) {
	a.mu.Lock()
	a.state = state.StateStart
	a.mu.Unlock()

	a.logger.Info("Logging in")
	next, err := a.probe(ctx)
	if err != nil {
		return 0, a.fail(err)
	}
	if err := a.transitionTo(next); err != nil {
		return 0, a.fail(err)
	}

	if next == state.StateAwaitingCredentials {
		if err := a.signIn(ctx); err != nil {
			return 0, a.fail(err)
		}
	}
	if s := a.State(); !s.IsAuthenticated() {
		return 0, a.fail(fmt.Errorf("login stopped in state %s", s))
	}

	ctrl := a.session.GetBrowserController()
	ctrl.ClickIfPresent(ctx, cookieBannerSelector)
	a.logger.Info("Logged in", "state", a.State())

	balance, err := a.session.Oracle().AccountBalance(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read starting balance: %w", err)
	}
	a.logger.Info("Account balance", "points", balance)

	a.authenticateSearch(ctx)
	return balance, nil
}

// probe opens the identity provider and decides which landmark is showing.
func (a *Authenticator) probe(ctx context.Context) (state.AuthState, error) {
	ctrl := a.session.GetBrowserController()
	driver := a.session.Driver()

	if err := ctrl.Navigate(ctx, a.config.LoginURL); err != nil {
		return state.StateFailed, fmt.Errorf("failed to open login page: %w", err)
	}

	for cycle := 1; cycle <= a.config.ProbeCycles; cycle++ {
		if err := ctx.Err(); err != nil {
			return state.StateFailed, err
		}
		if driver.WaitVisible(ctx, portalLandmark, a.config.LandmarkTimeout) == nil {
			return state.StateAlreadyAuthenticated, nil
		}
		if driver.WaitVisible(ctx, usernameLandmark, a.config.LandmarkTimeout) == nil {
			return state.StateAwaitingCredentials, nil
		}
		if cycle == a.config.ProbeCycles {
			break
		}
		if ctrl.DismissAny(ctx, interstitials) {
			a.logger.Debug("Dismissed interstitials, probing again", "cycle", cycle)
		} else {
			a.logger.Debug("No landmark yet, reloading", "cycle", cycle)
		}
		if err := ctrl.Refresh(ctx); err != nil {
			a.logger.Warn("Refresh failed", "error", err)
		}
	}
	return state.StateFailed, fmt.Errorf("%w after %d probe cycles", ErrNoLandmark, a.config.ProbeCycles)
}

// signIn runs AwaitingCredentials through to Authenticated.
func (a *Authenticator) signIn(ctx context.Context) error {
	if err := a.submitUsername(ctx); err != nil {
		return err
	}

	if err := a.submitPassword(ctx); err != nil {
		a.logger.Warn("Password step failed, second factor required", "error", err)
		if err := a.transitionTo(state.StateAwaitingSecondFactor); err != nil {
			return err
		}
		if err := a.awaitSecondFactor(ctx); err != nil {
			return err
		}
	}

	if err := a.transitionTo(state.StateAwaitingPlatformConfirmation); err != nil {
		return err
	}
	if err := a.confirmPlatform(ctx); err != nil {
		return err
	}
	return a.transitionTo(state.StateAuthenticated)
}

func (a *Authenticator) submitUsername(ctx context.Context) error {
	driver := a.session.Driver()
	timeout := a.config.InputTimeout

	if err := driver.WaitVisible(ctx, usernameLandmark, timeout); err != nil {
		return fmt.Errorf("username field: %w", err)
	}
	a.logger.Info("Writing email")
	if err := driver.SendKeys(ctx, usernameLandmark, a.session.Account().Username); err != nil {
		return fmt.Errorf("failed to type username: %w", err)
	}
	if err := driver.WaitClickable(ctx, primaryButton, timeout); err != nil {
		return fmt.Errorf("primary button: %w", err)
	}
	if err := driver.Click(ctx, primaryButton); err != nil {
		return fmt.Errorf("failed to submit username: %w", err)
	}
	return nil
}

// submitPassword fills the password by script so quotes and backslashes survive.
func (a *Authenticator) submitPassword(ctx context.Context) error {
	ctrl := a.session.GetBrowserController()
	driver := a.session.Driver()
	timeout := a.config.InputTimeout

	if ctrl.ClickIfPresent(ctx, otherWaysToSignIn) {
		a.logger.Debug("Switching to password sign-in")
		if err := driver.WaitClickable(ctx, useYourPassword, timeout); err == nil {
			if err := driver.Click(ctx, useYourPassword); err != nil {
				a.logger.Debug("Failed to pick password option", "error", err)
			}
		}
	} else {
		ctrl.ClickIfPresent(ctx, useYourPassword)
	}

	if err := driver.WaitClickable(ctx, passwordField, timeout); err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	if err := driver.WaitClickable(ctx, primaryButton, timeout); err != nil {
		return fmt.Errorf("primary button: %w", err)
	}

	a.logger.Info("Writing password")
	if err := driver.Evaluate(ctx, fillScript(passwordField, a.session.Account().Password), nil); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}
	if err := driver.Click(ctx, primaryButton); err != nil {
		return fmt.Errorf("failed to submit password: %w", err)
	}
	if err := a.sleep(ctx, a.config.PostSubmitWait); err != nil {
		return err
	}

	// "Faster sign-in with biometrics" prompt.
	ctrl.ClickIfPresent(ctx, secondaryButton)
	return nil
}

// awaitSecondFactor shows the on-screen code and blocks on the operator.
func (a *Authenticator) awaitSecondFactor(ctx context.Context) error {
	if a.confirmer == nil {
		return ErrNoConfirmer
	}

	username := a.session.Account().Username
	message := fmt.Sprintf("Second factor required for %s.", username)
	if code, err := a.session.Driver().Text(ctx, secondFactorCode); err == nil && strings.TrimSpace(code) != "" {
		message = fmt.Sprintf("Second factor required for %s, approve code %s.", username, strings.TrimSpace(code))
	}
	a.logger.Warn("Waiting for operator confirmation")

	if err := a.confirmer.Confirm(ctx, message); err != nil {
		return fmt.Errorf("second factor not confirmed: %w", err)
	}
	return nil
}

// confirmPlatform opens the confirmation URL until the portal accepts the login.
func (a *Authenticator) confirmPlatform(ctx context.Context) error {
	ctrl := a.session.GetBrowserController()
	driver := a.session.Driver()

	for attempt := 1; attempt <= a.config.ConfirmRetries; attempt++ {
		if err := ctrl.Navigate(ctx, a.config.ConfirmURL); err != nil {
			a.logger.Warn("Confirmation navigation failed", "attempt", attempt, "error", err)
		} else {
			ctrl.DismissAny(ctx, interstitials)
			if driver.WaitVisible(ctx, portalLandmark, a.config.LandmarkTimeout) == nil ||
				ctrl.AtRoot(ctx, a.config.PlatformHost) {
				return nil
			}
		}

		if attempt < a.config.ConfirmRetries {
			if err := a.sleep(ctx, a.config.ConfirmWait); err != nil {
				return err
			}
		}
	}
	return ErrConfirmationExhausted
}

// authenticateSearch carries the login over to the search surface.
// Exhausting the polls is logged; the run continues.
func (a *Authenticator) authenticateSearch(ctx context.Context) {
	ctrl := a.session.GetBrowserController()
	if err := ctrl.Navigate(ctx, a.config.SearchLoginURL); err != nil {
		a.logger.Warn("Failed to open search sign-in", "error", err)
		return
	}

	for poll := 1; poll <= a.config.SearchPolls; poll++ {
		if ctrl.AtRoot(ctx, a.config.SearchHost) {
			ctrl.ClickIfPresent(ctx, searchCookieBanner)
			if a.session.Oracle().IsRewardsUser(ctx) {
				a.logger.Info("Search sign-in confirmed")
				return
			}
		}
		if err := a.sleep(ctx, a.config.SearchPollWait); err != nil {
			return
		}
	}
	a.logger.Warn("Search sign-in not confirmed", "polls", a.config.SearchPolls)
}

func (a *Authenticator) fail(err error) error {
	if !a.State().IsTerminal() {
		if transErr := a.transitionTo(state.StateFailed); transErr != nil {
			a.logger.Error("Failed to transition to failed", "error", transErr)
		}
	}
	a.logger.Error("Login failed", "error", err)
	return fmt.Errorf("%w: %w", ErrAuthFailed, err)
}

// State transition helpers

func (a *Authenticator) transitionTo(newState state.AuthState) error {
	a.mu.Lock()
	oldState := a.state

	if !oldState.CanTransitionTo(newState) {
		a.mu.Unlock()
		return state.NewTransitionError(oldState, newState,
			fmt.Sprintf("allowed: %v", oldState.ValidTransitions()))
	}

	a.state = newState
	a.mu.Unlock()

	a.session.Publish(event.NewAuthStateChanged(a.session.ID(), oldState, newState))
	a.logger.Debug("State changed", "from", oldState, "to", newState)
	return nil
}

// fillScript returns a script setting the value of selector's input and
// notifying the page's listeners.
func fillScript(selector, value string) string {
	return fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) { throw new Error("field not found"); }
  el.focus();
  el.value = "%s";
  el.dispatchEvent(new Event("input", { bubbles: true }));
  el.dispatchEvent(new Event("change", { bubbles: true }));
  return true;
})()`, quoteJS(selector), escapeJS(value))
}

var jsEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\u2028", `\u2028`,
	"\u2029", `\u2029`,
)

// escapeJS escapes s for use inside a double-quoted JavaScript string literal.
func escapeJS(s string) string {
	return jsEscaper.Replace(s)
}

func quoteJS(s string) string {
	return `"` + escapeJS(s) + `"`
}
