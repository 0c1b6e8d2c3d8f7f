package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
)

// ErrNoAccounts is returned when the repository yields no usable account.
var ErrNoAccounts = errors.New("no accounts configured")

// Service prepares the account list for a batch run.
type Service struct {
	repo    Repository
	logger  *slog.Logger
	shuffle func(n int, swap func(i, j int))
}

// NewService creates a new account service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		logger:  logger.With("component", "account"),
		shuffle: rand.Shuffle,
	}
}

// ListForRun loads accounts, drops invalid and duplicate entries, applies the
// global proxy override and returns them in random order.
func (s *Service) ListForRun(ctx context.Context, globalProxy string) ([]Account, error) {
	loaded, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	seen := make(map[string]struct{}, len(loaded))
	accounts := make([]Account, 0, len(loaded))
	for _, acc := range loaded {
		if err := acc.Validate(); err != nil {
			s.logger.Warn("Skipping account", "error", err)
			continue
		}
		if _, dup := seen[acc.Username]; dup {
			s.logger.Warn("Skipping duplicate account", "username", acc.Username)
			continue
		}
		seen[acc.Username] = struct{}{}

		acc.Proxy = acc.EffectiveProxy(globalProxy)
		accounts = append(accounts, acc)
	}

	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}

	s.shuffle(len(accounts), func(i, j int) {
		accounts[i], accounts[j] = accounts[j], accounts[i]
	})

	return accounts, nil
}
