// Package search implements the per-persona task loop: search, verify the
// balance, re-poll the remaining quota and pace the account.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rewardsfarmer-go/core/event"
	"rewardsfarmer-go/core/eventbus"
	"rewardsfarmer-go/core/timing"
	"rewardsfarmer-go/domain/account"
	"rewardsfarmer-go/domain/points"
)

// Oracle is the part of the points oracle the loop reads.
type Oracle interface {
	// SearchBalance returns points.NoBalance when the balance is unreadable.
	SearchBalance(ctx context.Context) int
	RemainingActions(ctx context.Context) (points.Quota, error)
}

// Target is one persona's search surface and the oracle reading its session.
type Target struct {
	SessionID string
	Persona   account.Persona
	Surface   Surface
	Oracle    Oracle
}

// Config holds configuration for the task loop.
type Config struct {
	// RepollEvery is the number of actions between quota re-polls.
	RepollEvery int
	// Cooldown is the pause after a re-poll that left work to do.
	Cooldown time.Duration
	// Retries is how many times one action is attempted before it counts as failed.
	Retries      int
	RetryBackoff time.Duration
	// MaxConsecutiveFailures ends the loop after that many non-productive actions in a row.
	MaxConsecutiveFailures int
	// WaitMin and WaitMax bound the randomized pause after each search.
	WaitMin     time.Duration
	WaitMax     time.Duration
	RefillDelay time.Duration
}

// DefaultConfig returns default task loop configuration.
func DefaultConfig() *Config {
	return &Config{
		RepollEvery:            4,
		Cooldown:               10 * time.Minute,
		Retries:                3,
		RetryBackoff:           5 * time.Second,
		MaxConsecutiveFailures: 12,
		WaitMin:                18 * time.Second,
		WaitMax:                30 * time.Second,
		RefillDelay:            2 * time.Second,
	}
}

// Runner executes the task loop for one persona at a time.
type Runner struct {
	config   *Config
	terms    TermSource
	eventBus eventbus.EventBus
	logger   *slog.Logger

	sleep timing.SleepFunc
	wait  func() time.Duration
}

// NewRunner creates a task loop runner.
func NewRunner(config *Config, terms TermSource, bus eventbus.EventBus, logger *slog.Logger) *Runner {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		config:   config,
		terms:    terms,
		eventBus: bus,
		logger:   logger.With("component", "search"),
		sleep:    timing.Sleep,
	}
	r.wait = func() time.Duration {
		return timing.Between(r.config.WaitMin, r.config.WaitMax)
	}
	return r
}

// Run performs up to n verified searches on target. Productive searches raise
// the ledger. It returns the highest balance observed, or the ledger value
// when no balance could be read.
func (r *Runner) Run(ctx context.Context, target Target, n int, ledger *points.Ledger) (int, error) {
	logger := r.logger.With("session_id", target.SessionID)
	highest := points.NoBalance
	result := func() int {
		if highest == points.NoBalance {
			return ledger.Value()
		}
		return highest
	}

	if n <= 0 {
		logger.Info("No searches remaining")
		return result(), nil
	}

	pool := newTermPool(r.terms, r.config.RefillDelay, logger)
	if err := pool.prepare(ctx, n); err != nil {
		return result(), err
	}

	logger.Info("Starting searches", "remaining", n)
	every := r.config.RepollEvery
	if every < 1 {
		every = DefaultConfig().RepollEvery
	}
	quota := n
	actions := 0
	failures := 0

	for quota > 0 {
		if err := ctx.Err(); err != nil {
			return result(), err
		}

		term, err := pool.pop(ctx)
		if err != nil {
			return result(), fmt.Errorf("failed to get search term: %w", err)
		}

		before := ledger.Value()
		outcome := r.attempt(ctx, target, term, logger)
		actions++

		productive := outcome.Productive(before)
		if outcome.Succeeded && outcome.ObservedBalance > highest {
			highest = outcome.ObservedBalance
		}
		if productive {
			ledger.RaiseTo(outcome.ObservedBalance)
			quota--
			failures = 0
		} else {
			failures++
		}
		r.publish(event.NewSearchPerformed(target.SessionID, term, productive, outcome.ObservedBalance))
		logger.Info("Search performed", "term", term, "productive", productive,
			"balance", outcome.ObservedBalance, "remaining", quota)

		if r.config.MaxConsecutiveFailures > 0 && failures >= r.config.MaxConsecutiveFailures {
			logger.Warn("Too many non-productive searches, stopping", "failures", failures)
			break
		}

		if actions%every == 0 {
			q, err := target.Oracle.RemainingActions(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return result(), ctx.Err()
				}
				logger.Warn("Failed to re-poll quota, keeping local count", "error", err)
			} else {
				quota = q.For(target.Persona)
				r.publish(event.NewQuotaPolled(target.SessionID, q.Desktop, q.Mobile))
				logger.Info("Quota re-polled", "quota", q.String())
			}
			if quota <= 0 {
				break
			}
			logger.Info("Cooling down", "duration", r.config.Cooldown)
			if err := r.sleep(ctx, r.config.Cooldown); err != nil {
				return result(), err
			}
		}
	}

	logger.Info("Searches finished", "actions", actions, "balance", result())
	return result(), nil
}

// attempt performs one search with local retries and reads the balance.
func (r *Runner) attempt(ctx context.Context, target Target, term string, logger *slog.Logger) points.Outcome {
	retries := r.config.Retries
	if retries < 1 {
		retries = 1
	}

	for try := 1; try <= retries; try++ {
		err := target.Surface.Search(ctx, term)
		if err == nil {
			if err := r.sleep(ctx, r.wait()); err != nil {
				return points.Outcome{Attempted: true, ObservedBalance: points.NoBalance}
			}
			balance := target.Oracle.SearchBalance(ctx)
			return points.Outcome{
				Attempted:       true,
				Succeeded:       balance != points.NoBalance,
				ObservedBalance: balance,
			}
		}
		if ctx.Err() != nil {
			break
		}

		logger.Warn("Search failed", "term", term, "try", try, "error", err)
		if try < retries {
			if err := r.sleep(ctx, r.config.RetryBackoff); err != nil {
				break
			}
		}
	}
	return points.Outcome{Attempted: true, ObservedBalance: points.NoBalance}
}

func (r *Runner) publish(e event.Event) {
	if r.eventBus != nil {
		r.eventBus.Publish(e)
	}
}
