package interfaces

// MutationKind mirrors the MutationObserver record types the watcher cares about
type MutationKind string

const (
	MutationChildList  MutationKind = "childList"
	MutationAttributes MutationKind = "attributes"
)

// MutationRecord describes one observed change
type MutationRecord struct {
	Kind          MutationKind
	Target        Node
	Added         []Node
	AttributeName string
}

// MutationSource delivers batches of subtree mutation records.
type MutationSource interface {
	// Observe registers fn and returns a function that stops delivery.
	Observe(fn func([]MutationRecord)) (stop func())
}
