package watcher

import (
	"strings"

	"ai_registry/application/scanner"
	"ai_registry/domain/interfaces"
)

// WatchedAttributes are the attribute changes that can alter classification.
var WatchedAttributes = map[string]bool{
	"disabled": true,
	"hidden":   true,
	"style":    true,
	"class":    true,
}

// Qualifies reports whether a mutation batch may have changed the set of
// interactive elements: an added node matches or contains an interactive
// selector, or a watched attribute changed on a node matching one.
func Qualifies(records []interfaces.MutationRecord) bool {
	for _, r := range records {
		switch r.Kind {
		case interfaces.MutationChildList:
			for _, n := range r.Added {
				if scanner.ContainsInteractive(n) {
					return true
				}
			}
		case interfaces.MutationAttributes:
			if WatchedAttributes[strings.ToLower(r.AttributeName)] && scanner.IsInteractiveCandidate(r.Target) {
				return true
			}
		}
	}
	return false
}
