package points

import (
	"context"
	"time"
)

// RunResult is the persisted outcome of one account run.
type RunResult struct {
	Username       string
	StartingPoints int
	FinalPoints    int
	Earned         int
	Error          string // empty when the run completed
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Failed reports whether the run ended with an error.
func (r RunResult) Failed() bool {
	return r.Error != ""
}

// ResultStore persists run results.
type ResultStore interface {
	Save(ctx context.Context, result RunResult) error
}
