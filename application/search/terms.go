package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoTerms is returned when the term source never produced a single term.
var ErrNoTerms = errors.New("no search terms available")

// TermSource supplies search terms. hotterms.Client satisfies it.
type TermSource interface {
	Fetch(ctx context.Context) []string
}

// termPool hands out terms and refills from its source when drained.
// Refills after the first are paced by the limiter.
type termPool struct {
	source  TermSource
	limiter *rate.Limiter
	logger  *slog.Logger

	terms   []string
	last    string
	fetches int
}

func newTermPool(source TermSource, refillDelay time.Duration, logger *slog.Logger) *termPool {
	return &termPool{
		source:  source,
		limiter: rate.NewLimiter(rate.Every(refillDelay), 1),
		logger:  logger,
	}
}

// refill appends one fetch worth of terms to the pool.
func (p *termPool) refill(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	terms := p.source.Fetch(ctx)
	p.fetches++
	p.terms = append(p.terms, terms...)
	p.logger.Debug("Refilled term pool", "fetched", len(terms), "size", len(p.terms))
	return nil
}

// prepare fills the pool for n actions: one fetch, plus exactly one more when
// the first came back short.
func (p *termPool) prepare(ctx context.Context, n int) error {
	if err := p.refill(ctx); err != nil {
		return err
	}
	if len(p.terms) < n {
		p.logger.Info("Fewer terms than searches, refilling once", "terms", len(p.terms), "searches", n)
		return p.refill(ctx)
	}
	return nil
}

// pop returns the next term, refilling synchronously when the pool is empty.
// An empty refill repeats the previous term.
func (p *termPool) pop(ctx context.Context) (string, error) {
	if len(p.terms) == 0 {
		if err := p.refill(ctx); err != nil {
			return "", err
		}
	}
	if len(p.terms) == 0 {
		if p.last == "" {
			return "", ErrNoTerms
		}
		p.logger.Warn("Term source returned nothing, repeating last term")
		return p.last, nil
	}

	term := p.terms[0]
	p.terms = p.terms[1:]
	p.last = term
	return term, nil
}
