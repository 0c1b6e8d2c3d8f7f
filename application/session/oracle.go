package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rewardsfarmer-go/core/timing"
	"rewardsfarmer-go/domain/points"
	"rewardsfarmer-go/infrastructure/rewardsapi"
)

// ErrNoDashboard is returned when the dashboard page exposes no state object.
var ErrNoDashboard = errors.New("dashboard state not available")

const (
	DefaultDashboardURL      = "https://rewards.bing.com/"
	DefaultDashboardLandmark = "#reward_header_rewards"

	dashboardScript = `typeof dashboard === "undefined" ? null : dashboard`
)

// BalanceReader reads the account balance through one channel.
type BalanceReader interface {
	Balance(ctx context.Context) (int, error)
}

// OracleConfig holds configuration for the points oracle.
type OracleConfig struct {
	DashboardURL      string
	DashboardLandmark string
	LandmarkTimeout   time.Duration
	// Settle is the pause after the dashboard loads before its state is read.
	Settle time.Duration
	// Tier decides whether mobile searches are counted for the active level.
	Tier points.TierPredicate
}

// DefaultOracleConfig returns default oracle configuration.
func DefaultOracleConfig() *OracleConfig {
	return &OracleConfig{
		DashboardURL:      DefaultDashboardURL,
		DashboardLandmark: DefaultDashboardLandmark,
		LandmarkTimeout:   15 * time.Second,
		Settle:            8 * time.Second,
		Tier:              points.AboveTier(points.DefaultBaseTier),
	}
}

// DashboardReader reads the dashboard state object by script. It navigates
// to the dashboard route first because the state only exists there.
type DashboardReader struct {
	ctrl   *BrowserController
	config *OracleConfig
	sleep  timing.SleepFunc
	logger *slog.Logger
}

// Dashboard opens the dashboard route and returns its decoded state.
func (r *DashboardReader) Dashboard(ctx context.Context) (*points.Dashboard, error) {
	if err := r.ctrl.Navigate(ctx, r.config.DashboardURL); err != nil {
		return nil, fmt.Errorf("failed to open dashboard: %w", err)
	}
	r.ctrl.ClickIfPresent(ctx, cookieBannerSelector)
	if err := r.ctrl.Driver().WaitVisible(ctx, r.config.DashboardLandmark, r.config.LandmarkTimeout); err != nil {
		r.logger.Warn("Dashboard landmark not found", "error", err)
	}
	if err := r.sleep(ctx, r.config.Settle); err != nil {
		return nil, err
	}

	var d *points.Dashboard
	if err := r.ctrl.Driver().Evaluate(ctx, dashboardScript, &d); err != nil {
		return nil, fmt.Errorf("failed to read dashboard: %w", err)
	}
	if d == nil {
		return nil, ErrNoDashboard
	}
	return d, nil
}

// Balance returns the dashboard's available points.
func (r *DashboardReader) Balance(ctx context.Context) (int, error) {
	d, err := r.Dashboard(ctx)
	if err != nil {
		return 0, err
	}
	return d.Balance(), nil
}

// UserInfoReader reads the user-info endpoint with the session's cookies.
// It works from any page, so it is used between searches.
type UserInfoReader struct {
	ctrl   *BrowserController
	client rewardsapi.Client
}

// Info fetches the user-info payload.
func (r *UserInfoReader) Info(ctx context.Context) (*rewardsapi.UserInfo, error) {
	cookies, err := r.ctrl.GetCookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	return r.client.UserInfo(ctx, cookies)
}

// Balance returns the search-side balance.
func (r *UserInfoReader) Balance(ctx context.Context) (int, error) {
	info, err := r.Info(ctx)
	if err != nil {
		return 0, err
	}
	return info.Balance, nil
}

var (
	_ BalanceReader = (*DashboardReader)(nil)
	_ BalanceReader = (*UserInfoReader)(nil)
)

// Oracle composes the two balance channels. The dashboard is authoritative
// and used on the dashboard route; the user-info endpoint is used mid-search
// and reports points.NoBalance instead of failing.
type Oracle struct {
	dashboard *DashboardReader
	userInfo  *UserInfoReader
	tier      points.TierPredicate
	logger    *slog.Logger
}

// NewOracle creates an oracle over the controller's browser and the user-info client.
func NewOracle(ctrl *BrowserController, client rewardsapi.Client, config *OracleConfig, logger *slog.Logger) *Oracle {
	if config == nil {
		config = DefaultOracleConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	tier := config.Tier
	if tier == nil {
		tier = points.AboveTier(points.DefaultBaseTier)
	}
	if client == nil {
		client = rewardsapi.NewNoOpClient()
	}
	return &Oracle{
		dashboard: &DashboardReader{ctrl: ctrl, config: config, sleep: timing.Sleep, logger: logger},
		userInfo:  &UserInfoReader{ctrl: ctrl, client: client},
		tier:      tier,
		logger:    logger,
	}
}

// AccountBalance reads the authoritative balance from the dashboard.
func (o *Oracle) AccountBalance(ctx context.Context) (int, error) {
	return o.dashboard.Balance(ctx)
}

// SearchBalance reads the balance from the user-info endpoint.
// It returns points.NoBalance when the endpoint could not be read.
func (o *Oracle) SearchBalance(ctx context.Context) int {
	balance, err := o.userInfo.Balance(ctx)
	if err != nil {
		o.logger.Warn("Failed to read search balance", "error", err)
		return points.NoBalance
	}
	return balance
}

// RemainingActions derives the remaining search quota from the dashboard counters.
func (o *Oracle) RemainingActions(ctx context.Context) (points.Quota, error) {
	d, err := o.dashboard.Dashboard(ctx)
	if err != nil {
		return points.Quota{}, err
	}
	return d.Remaining(o.tier), nil
}

// IsRewardsUser reports whether the search surface recognizes the member. False when unreadable.
func (o *Oracle) IsRewardsUser(ctx context.Context) bool {
	info, err := o.userInfo.Info(ctx)
	if err != nil {
		o.logger.Debug("Failed to read user info", "error", err)
		return false
	}
	return info.IsRewardsUser
}

func (o *Oracle) setSleep(fn timing.SleepFunc) {
	o.dashboard.sleep = fn
}
