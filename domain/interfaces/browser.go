package interfaces

import (
	"context"
)

// BrowserController drives a real page and exposes it to the engine.
type BrowserController interface {
	DOM
	NavigationSource
	MutationSource

	// Navigate navigates to a URL and waits for the load to settle
	Navigate(ctx context.Context, url string) error

	// Click clicks the element carrying the given target marker
	Click(ctx context.Context, targetID string) error

	// Type replaces the value of the element carrying the given target marker
	Type(ctx context.Context, targetID string, text string) error

	// Close closes the browser
	Close() error
}
