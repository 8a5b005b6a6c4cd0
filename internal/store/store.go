package store

import (
	"context"
	"time"

	"github.com/tfcanon/tfcanon/pkg/models"
)

// Snapshot is one persisted transform run: its canonical envelope plus
// summary metadata. Snapshots are immutable once written.
type Snapshot struct {
	ID          int64     `json:"id"`
	SourcePath  string    `json:"source_path"`
	CreatedAt   time.Time `json:"created_at"`
	Resources   int       `json:"resources"`
	DataSources int       `json:"data_sources"`
	Ignored     int       `json:"ignored"`
	Hash        string    `json:"hash"`
	Envelope    []byte    `json:"-"`
}

// DiffResult lists how classified addresses changed between two snapshots.
// Changed means the canonical record bytes differ for the same address.
type DiffResult struct {
	From    int64    `json:"from"`
	To      int64    `json:"to"`
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Changed []string `json:"changed"`
}

// Stats summarizes store contents.
type Stats struct {
	Snapshots int `json:"snapshots"`
	Records   int `json:"records"`
}

// Store defines the interface for persisting and querying snapshots.
type Store interface {
	// Init initializes the store (creates tables, indexes, etc.).
	Init(ctx context.Context) error

	// Close closes the store connection.
	Close() error

	// SaveSnapshot persists a snapshot and its records, returning the new ID.
	SaveSnapshot(ctx context.Context, snap Snapshot, records []models.Record) (int64, error)

	// GetSnapshot retrieves a snapshot by ID. Returns nil when absent.
	GetSnapshot(ctx context.Context, id int64) (*Snapshot, error)

	// LatestSnapshot returns the newest snapshot, optionally restricted to
	// one source path. Returns nil when none exists.
	LatestSnapshot(ctx context.Context, sourcePath string) (*Snapshot, error)

	// ListSnapshots returns the most recent snapshots, newest first.
	ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error)

	// ListRecords returns the records of a snapshot in stored order.
	ListRecords(ctx context.Context, snapshotID int64) ([]models.Record, error)

	// Diff compares the records of two snapshots by address.
	Diff(ctx context.Context, fromID, toID int64) (*DiffResult, error)

	// Stats returns store counters.
	Stats(ctx context.Context) (*Stats, error)

	// Reset deletes all snapshots and records.
	Reset(ctx context.Context) error
}
