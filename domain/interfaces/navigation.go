package interfaces

import "ai_registry/domain/entities"

// NavigationSource notifies subscribers about URL changes, both full document loads
// and same-document history navigation (push, replace, pop).
type NavigationSource interface {
	// Subscribe registers fn and returns a function that removes it.
	// The returned function is safe to call more than once.
	Subscribe(fn func(entities.NavigationEvent)) (unsubscribe func())

	CurrentURL() string
}
