package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"

	_ "modernc.org/sqlite"
)

// Revision summarizes one pushed snapshot.
type Revision struct {
	ID           int64
	Version      string
	CurrentPath  string
	ElementCount int
	PushedAt     time.Time
}

// DB keeps every pushed snapshot; Fetch returns the newest.
type DB struct {
	sql *sql.DB
}

var _ interfaces.SyncGateway = (*DB)(nil)

func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS registry_snapshots (
  id            INTEGER PRIMARY KEY,
  version       TEXT NOT NULL,
  current_path  TEXT NOT NULL,
  element_count INTEGER NOT NULL,
  body          TEXT NOT NULL,
  pushed_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_snapshots_path ON registry_snapshots(current_path, id);
    `); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

func (d *DB) Fetch(ctx context.Context) (*entities.RegistrySnapshot, error) {
	var body string
	err := d.sql.QueryRowContext(ctx, "SELECT body FROM registry_snapshots ORDER BY id DESC LIMIT 1").Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	var snapshot entities.RegistrySnapshot
	if err := json.Unmarshal([]byte(body), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode stored snapshot: %w", err)
	}
	return &snapshot, nil
}

func (d *DB) Push(ctx context.Context, snapshot *entities.RegistrySnapshot) error {
	if snapshot == nil {
		return errors.New("nil snapshot")
	}
	body, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx,
		`INSERT INTO registry_snapshots(version, current_path, element_count, body, pushed_at) VALUES(?,?,?,?,?)`,
		snapshot.Version, snapshot.CurrentPath, len(snapshot.RuntimeElements), string(body), time.Now().UTC())
	return err
}

// History lists the newest revisions first. limit <= 0 returns all of them.
func (d *DB) History(ctx context.Context, limit int) ([]Revision, error) {
	q := "SELECT id, version, current_path, element_count, pushed_at FROM registry_snapshots ORDER BY id DESC"
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.ID, &r.Version, &r.CurrentPath, &r.ElementCount, &r.PushedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep revisions and reports how many were deleted.
func (d *DB) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := d.sql.ExecContext(ctx,
		`DELETE FROM registry_snapshots WHERE id NOT IN (SELECT id FROM registry_snapshots ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
