// Package points holds the balance bookkeeping shared by the search personas.
package points

import "sync"

// NoBalance is reported when the balance could not be read.
const NoBalance = -1

// Ledger is the best-known account balance. It never decreases.
// It is the only state shared between concurrently running personas.
type Ledger struct {
	mu    sync.Mutex
	value int
}

// NewLedger creates a ledger seeded with the starting balance.
func NewLedger(start int) *Ledger {
	return &Ledger{value: start}
}

// RaiseTo sets the ledger to max(current, v) and returns the resulting value.
func (l *Ledger) RaiseTo(v int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v > l.value {
		l.value = v
	}
	return l.value
}

// Value returns the current ledger value.
func (l *Ledger) Value() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}
