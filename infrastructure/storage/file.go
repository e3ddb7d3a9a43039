package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"
)

// ErrNoSnapshot is returned by Fetch before the first Push.
var ErrNoSnapshot = interfaces.ErrNoSnapshot

type fileGateway struct {
	mu   sync.Mutex
	path string
}

// NewFileGateway - creates a gateway that keeps the latest snapshot in one JSON file
func NewFileGateway(path string) (interfaces.SyncGateway, error) {
	if path == "" {
		return nil, errors.New("snapshot file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &fileGateway{path: path}, nil
}

// Fetch - loads the snapshot from file
func (g *fileGateway) Fetch(ctx context.Context) (*entities.RegistrySnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	data, err := os.ReadFile(g.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}

	var snapshot entities.RegistrySnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", g.path, err)
	}
	return &snapshot, nil
}

// Push - writes the snapshot through a temp file so readers never see a partial document
func (g *fileGateway) Push(ctx context.Context, snapshot *entities.RegistrySnapshot) error {
	if snapshot == nil {
		return errors.New("nil snapshot")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(g.path), ".registry-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), g.path)
}
