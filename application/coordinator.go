// Package application provides the application layer for orchestrating account runs.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"rewardsfarmer-go/core/event"
	"rewardsfarmer-go/core/eventbus"
	"rewardsfarmer-go/domain/account"
	"rewardsfarmer-go/domain/points"
	"rewardsfarmer-go/infrastructure/logging"
)

// Notifier delivers a message to the configured channels. notify.Notifier satisfies it.
type Notifier interface {
	Send(ctx context.Context, title, message string)
}

// Result is the outcome of one account run.
type Result struct {
	Username       string
	StartingPoints int
	FinalPoints    int
	Earned         int
	// Err is set when the run could not complete.
	Err error
	// WorkerErrors holds persona worker failures that did not abort the run.
	WorkerErrors []error

	authenticated bool
}

func (r *Result) String() string {
	if r.Err != nil && !r.authenticated {
		return fmt.Sprintf("%s: failed: %v", r.Username, r.Err)
	}
	s := fmt.Sprintf("%s: earned %d points, now at %d", r.Username, r.Earned, r.FinalPoints)
	if r.Err != nil {
		s += fmt.Sprintf(" (stopped: %v)", r.Err)
	} else if len(r.WorkerErrors) > 0 {
		s += fmt.Sprintf(" (%d worker errors)", len(r.WorkerErrors))
	}
	return s
}

// Coordinator runs one account end to end: authenticate the desktop session,
// run activities, then drive the desktop and mobile searches concurrently.
type Coordinator struct {
	opener        SessionOpener
	eventBus      eventbus.EventBus
	notifier      Notifier
	targetBalance int
	logger        *slog.Logger
}

// CoordinatorConfig holds configuration for the Coordinator.
type CoordinatorConfig struct {
	Opener   SessionOpener
	EventBus eventbus.EventBus
	Notifier Notifier
	// TargetBalance triggers a goal notification once reached; 0 disables it.
	TargetBalance int
	Logger        *slog.Logger
}

// NewCoordinator creates a new account coordinator.
func NewCoordinator(cfg *CoordinatorConfig) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Coordinator{
		opener:        cfg.Opener,
		eventBus:      cfg.EventBus,
		notifier:      cfg.Notifier,
		targetBalance: cfg.TargetBalance,
		logger:        cfg.Logger,
	}
}

// Run executes the full account sequence. The returned error is also recorded
// in the result; worker failures are isolated and reported in WorkerErrors.
func (c *Coordinator) Run(ctx context.Context, acc account.Account) (*Result, error) {
	logger := c.logger.With("username", acc.Username)
	ctx = logging.With(ctx, logger)
	result := &Result{Username: acc.Username}
	c.publish(event.NewAccountStarted(acc.Username))
	logger.Info("Account run started")

	finish := func(err error) (*Result, error) {
		result.Err = err
		result.Earned = result.FinalPoints - result.StartingPoints
		c.publish(event.NewAccountFinished(acc.Username, result.StartingPoints, result.FinalPoints, err))
		if err != nil {
			logger.Error("Account run failed", "error", err)
		} else {
			logger.Info("Account run finished", "earned", result.Earned, "balance", result.FinalPoints)
		}
		return result, err
	}

	desktop, err := c.opener.Open(ctx, acc, account.Desktop)
	if err != nil {
		return finish(err)
	}
	defer desktop.Close()

	start, err := desktop.Login(ctx)
	if err != nil {
		return finish(fmt.Errorf("desktop login: %w", err))
	}
	result.authenticated = true
	result.StartingPoints = start
	result.FinalPoints = start
	ledger := points.NewLedger(start)

	completed := desktop.RunActivities(ctx)
	logger.Info("Activities done", "completed", completed)

	quota, err := desktop.Remaining(ctx)
	if err != nil {
		return finish(fmt.Errorf("failed to read remaining searches: %w", err))
	}
	c.publish(event.NewQuotaPolled(desktop.ID(), quota.Desktop, quota.Mobile))
	logger.Info("Remaining searches", "quota", quota.String())

	if !quota.IsZero() {
		result.WorkerErrors = c.runWorkers(ctx, acc, desktop, quota, ledger)
		result.FinalPoints = ledger.Value()
	}

	if c.targetBalance > 0 && result.FinalPoints >= c.targetBalance {
		c.publish(event.NewGoalReached(acc.Username, result.FinalPoints, c.targetBalance))
		if c.notifier != nil {
			c.notifier.Send(ctx, "Goal reached",
				fmt.Sprintf("%s reached %d points (target %d)", acc.Username, result.FinalPoints, c.targetBalance))
		}
	}

	if err := ctx.Err(); err != nil {
		return finish(err)
	}
	return finish(nil)
}

// runWorkers drives both personas concurrently and returns their failures.
func (c *Coordinator) runWorkers(ctx context.Context, acc account.Account, desktop PersonaSession, quota points.Quota, ledger *points.Ledger) []error {
	var (
		g    errgroup.Group
		errs [2]error
	)

	if quota.Desktop > 0 {
		g.Go(func() error {
			errs[0] = c.guard(ctx, desktop.ID(), func() error {
				final, err := desktop.Search(ctx, quota.Desktop, ledger)
				ledger.RaiseTo(final)
				return err
			})
			return nil
		})
	}

	if quota.Mobile > 0 {
		g.Go(func() error {
			mctx := logging.WithAttrs(ctx, "persona", account.Mobile.String())
			errs[1] = c.guard(mctx, acc.SessionID(account.Mobile), func() error {
				return c.runMobile(mctx, acc, quota.Mobile, ledger)
			})
			return nil
		})
	}

	_ = g.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	return failed
}

func (c *Coordinator) runMobile(ctx context.Context, acc account.Account, n int, ledger *points.Ledger) error {
	mobile, err := c.opener.Open(ctx, acc, account.Mobile)
	if err != nil {
		return err
	}
	defer mobile.Close()

	balance, err := mobile.Login(ctx)
	if err != nil {
		return fmt.Errorf("mobile login: %w", err)
	}
	ledger.RaiseTo(balance)

	final, err := mobile.Search(ctx, n, ledger)
	ledger.RaiseTo(final)
	return err
}

// guard runs fn, converting a panic into an error, and reports failures.
func (c *Coordinator) guard(ctx context.Context, sessionID string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("worker panic: %v", rec)
		}
		if err != nil {
			logging.From(ctx).Error("Worker failed", "session_id", sessionID, "error", err)
			c.publish(event.NewWorkerFailed(sessionID, err))
		}
	}()
	return fn()
}

func (c *Coordinator) publish(e event.Event) {
	if c.eventBus != nil {
		c.eventBus.Publish(e)
	}
}
