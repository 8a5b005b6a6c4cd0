package graph

import (
	"context"
)

// ImpactResult is the blast radius of one address: everything that would
// be affected, directly or transitively, if that address changed.
type ImpactResult struct {
	Root              string         `json:"root"`
	SnapshotID        int64          `json:"snapshot_id"`
	Affected          []string       `json:"affected"`
	AffectedByService map[string]int `json:"affected_by_service"`
}

// Engine abstracts dependency graph traversal. Implementations may use
// in-memory BFS (LocalEngine) or a native graph database like Memgraph
// (MemgraphEngine).
type Engine interface {
	// Impact returns all addresses that transitively depend on address.
	// snapshotID 0 means the latest snapshot.
	Impact(ctx context.Context, snapshotID int64, address string) (*ImpactResult, error)

	// Deps returns all addresses that address transitively depends on.
	Deps(ctx context.Context, snapshotID int64, address string) ([]string, error)

	// Close releases any resources held by the engine.
	Close() error
}
