package search

import (
	"context"
	"fmt"
	"time"

	"rewardsfarmer-go/infrastructure/browser"
)

const (
	DefaultSearchURL = "https://www.bing.com/"

	searchBox     = "#sb_form_q"
	clearBoxJS    = `(() => { const el = document.querySelector("#sb_form_q"); if (el) { el.value = ""; } })()`
	searchTimeout = 10 * time.Second
)

// Surface performs one search.
type Surface interface {
	Search(ctx context.Context, term string) error
}

// BrowserSurface searches through the persona's browser.
type BrowserSurface struct {
	driver  browser.Driver
	url     string
	timeout time.Duration
}

// NewBrowserSurface creates a surface searching on DefaultSearchURL.
func NewBrowserSurface(driver browser.Driver) *BrowserSurface {
	return &BrowserSurface{driver: driver, url: DefaultSearchURL, timeout: searchTimeout}
}

// Search opens the search page, types term and submits the form.
func (s *BrowserSurface) Search(ctx context.Context, term string) error {
	if err := s.driver.Navigate(ctx, s.url); err != nil {
		return fmt.Errorf("failed to open search page: %w", err)
	}
	if err := s.driver.WaitClickable(ctx, searchBox, s.timeout); err != nil {
		return fmt.Errorf("search box: %w", err)
	}
	if err := s.driver.Evaluate(ctx, clearBoxJS, nil); err != nil {
		return fmt.Errorf("failed to clear search box: %w", err)
	}
	if err := s.driver.SendKeys(ctx, searchBox, term); err != nil {
		return fmt.Errorf("failed to type term: %w", err)
	}
	if err := s.driver.Submit(ctx, searchBox); err != nil {
		return fmt.Errorf("failed to submit search: %w", err)
	}
	return nil
}
