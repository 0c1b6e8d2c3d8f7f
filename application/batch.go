package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rewardsfarmer-go/domain/account"
	"rewardsfarmer-go/domain/points"
)

// AccountLister yields the accounts of one batch. account.Service satisfies it.
type AccountLister interface {
	ListForRun(ctx context.Context, globalProxy string) ([]account.Account, error)
}

// AccountRunner runs one account. Coordinator satisfies it.
type AccountRunner interface {
	Run(ctx context.Context, acc account.Account) (*Result, error)
}

// BatchConfig holds configuration for the Batch driver.
type BatchConfig struct {
	Accounts AccountLister
	Runner   AccountRunner
	Results  points.ResultStore // optional
	Notifier Notifier           // optional
	// GlobalProxy overrides every account's proxy when set.
	GlobalProxy string
	// AccountTimeout bounds each account run; 0 disables it.
	AccountTimeout time.Duration
	Logger         *slog.Logger
}

// Batch runs every account in turn and reports one summary.
type Batch struct {
	config *BatchConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewBatch creates a batch driver.
func NewBatch(cfg *BatchConfig) *Batch {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{
		config: cfg,
		logger: logger.With("component", "batch"),
		now:    time.Now,
	}
}

// Run executes all accounts sequentially. Account failures never stop the
// batch; only a failure to list accounts or cancellation does.
func (b *Batch) Run(ctx context.Context) ([]*Result, error) {
	accounts, err := b.config.Accounts.ListForRun(ctx, b.config.GlobalProxy)
	if err != nil {
		return nil, err
	}
	b.logger.Info("Batch started", "accounts", len(accounts))

	results := make([]*Result, 0, len(accounts))
	for i, acc := range accounts {
		if ctx.Err() != nil {
			break
		}
		b.logger.Info("Running account", "index", i+1, "total", len(accounts), "username", acc.Username)

		started := b.now()
		result := b.runAccount(ctx, acc)
		results = append(results, result)
		b.save(ctx, result, started)
	}

	b.report(ctx, results)
	b.logger.Info("Batch finished", "accounts", len(results))
	return results, ctx.Err()
}

// runAccount applies the account timeout and turns errors and panics into a result.
func (b *Batch) runAccount(ctx context.Context, acc account.Account) (result *Result) {
	if b.config.AccountTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.AccountTimeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("Account run panicked", "username", acc.Username, "error", rec)
			result = &Result{Username: acc.Username, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	result, err := b.config.Runner.Run(ctx, acc)
	if result == nil {
		result = &Result{Username: acc.Username}
	}
	if err != nil && result.Err == nil {
		result.Err = err
	}
	return result
}

func (b *Batch) save(ctx context.Context, result *Result, started time.Time) {
	if b.config.Results == nil {
		return
	}
	record := points.RunResult{
		Username:       result.Username,
		StartingPoints: result.StartingPoints,
		FinalPoints:    result.FinalPoints,
		Earned:         result.Earned,
		StartedAt:      started,
		FinishedAt:     b.now(),
	}
	if result.Err != nil {
		record.Error = result.Err.Error()
	}
	if err := b.config.Results.Save(context.WithoutCancel(ctx), record); err != nil {
		b.logger.Warn("Failed to save run result", "username", result.Username, "error", err)
	}
}

// report sends one consolidated notification for the whole batch.
func (b *Batch) report(ctx context.Context, results []*Result) {
	if b.config.Notifier == nil || len(results) == 0 {
		return
	}
	lines := make([]string, 0, len(results)+1)
	total := 0
	for _, r := range results {
		lines = append(lines, r.String())
		total += r.Earned
	}
	lines = append(lines, fmt.Sprintf("Total earned: %d", total))
	b.config.Notifier.Send(context.WithoutCancel(ctx), "Rewards summary", strings.Join(lines, "\n"))
}
