package application

import (
	"context"
	"fmt"

	"rewardsfarmer-go/application/search"
	"rewardsfarmer-go/application/session"
	"rewardsfarmer-go/domain/account"
	"rewardsfarmer-go/domain/activity"
	"rewardsfarmer-go/domain/points"
)

// PersonaSession is one authenticated-or-not browser session as seen by the
// coordinator.
type PersonaSession interface {
	ID() string
	// Login authenticates the session and returns the starting balance.
	Login(ctx context.Context) (int, error)
	// RunActivities runs the scripted activities and reports how many completed.
	RunActivities(ctx context.Context) int
	Remaining(ctx context.Context) (points.Quota, error)
	// Search performs up to n verified searches and returns the highest observed balance.
	Search(ctx context.Context, n int, ledger *points.Ledger) (int, error)
	Close()
}

// SessionOpener opens a started session for an account persona.
type SessionOpener interface {
	Open(ctx context.Context, acc account.Account, p account.Persona) (PersonaSession, error)
}

// BrowserOpener opens chromedp-backed persona sessions.
type BrowserOpener struct {
	factory    *session.Factory
	auth       *session.AuthConfig
	confirmer  session.Confirmer
	activities *activity.Registry
	searcher   *search.Runner
}

// BrowserOpenerConfig holds the collaborators of a BrowserOpener.
type BrowserOpenerConfig struct {
	Factory    *session.Factory
	Auth       *session.AuthConfig
	Confirmer  session.Confirmer
	Activities *activity.Registry // nil disables scripted activities
	Searcher   *search.Runner
}

// NewBrowserOpener creates a BrowserOpener.
func NewBrowserOpener(cfg *BrowserOpenerConfig) *BrowserOpener {
	return &BrowserOpener{
		factory:    cfg.Factory,
		auth:       cfg.Auth,
		confirmer:  cfg.Confirmer,
		activities: cfg.Activities,
		searcher:   cfg.Searcher,
	}
}

// Open starts a browser session for the persona.
func (o *BrowserOpener) Open(ctx context.Context, acc account.Account, p account.Persona) (PersonaSession, error) {
	s, err := o.factory.Open(ctx, acc, p)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s session: %w", p, err)
	}
	return &browserPersona{
		session:    s,
		auth:       session.NewAuthenticator(s, o.auth, o.confirmer),
		activities: o.activities,
		searcher:   o.searcher,
	}, nil
}

type browserPersona struct {
	session    *session.Session
	auth       *session.Authenticator
	activities *activity.Registry
	searcher   *search.Runner
}

func (b *browserPersona) ID() string {
	return b.session.ID()
}

func (b *browserPersona) Login(ctx context.Context) (int, error) {
	return b.auth.Login(ctx)
}

func (b *browserPersona) RunActivities(ctx context.Context) int {
	if b.activities == nil {
		return 0
	}
	return session.NewActivityRunner(b.session).RunAll(ctx, b.activities.Enabled())
}

func (b *browserPersona) Remaining(ctx context.Context) (points.Quota, error) {
	return b.session.Oracle().RemainingActions(ctx)
}

func (b *browserPersona) Search(ctx context.Context, n int, ledger *points.Ledger) (int, error) {
	target := search.Target{
		SessionID: b.session.ID(),
		Persona:   b.session.Persona(),
		Surface:   search.NewBrowserSurface(b.session.Driver()),
		Oracle:    b.session.Oracle(),
	}
	return b.searcher.Run(ctx, target, n, ledger)
}

func (b *browserPersona) Close() {
	b.session.Stop()
}
