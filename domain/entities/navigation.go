package entities

// NavigationKind distinguishes document replacement from history-API navigation.
type NavigationKind string

const (
	NavigationFull    NavigationKind = "full"
	NavigationPush    NavigationKind = "push"
	NavigationReplace NavigationKind = "replace"
	NavigationPop     NavigationKind = "pop"
)

// SameDocument reports whether the navigation kept the current document alive.
func (k NavigationKind) SameDocument() bool {
	return k != NavigationFull
}

// NavigationEvent is delivered by a navigation source when the page URL may have changed.
type NavigationEvent struct {
	URL  string         `json:"url"`
	Kind NavigationKind `json:"kind"`
}
