package interfaces

import (
	"context"
	"errors"

	"ai_registry/domain/entities"
)

// ErrNoSnapshot is returned by Fetch when nothing has been persisted yet.
var ErrNoSnapshot = errors.New("no registry snapshot persisted")

// SyncGateway persists registry snapshots outside the engine
type SyncGateway interface {
	// Fetch returns the last persisted snapshot
	Fetch(ctx context.Context) (*entities.RegistrySnapshot, error)

	// Push persists snapshot as the latest one
	Push(ctx context.Context, snapshot *entities.RegistrySnapshot) error
}
