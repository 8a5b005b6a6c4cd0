package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/tfcanon/tfcanon/internal/store"
	"github.com/tfcanon/tfcanon/pkg/models"
)

// LocalEngine implements Engine using in-memory BFS over snapshot records.
type LocalEngine struct {
	store store.Store
}

// NewLocalEngine creates an Engine that traverses in-memory adjacency lists.
func NewLocalEngine(st store.Store) *LocalEngine {
	return &LocalEngine{store: st}
}

func (e *LocalEngine) loadRecords(ctx context.Context, snapshotID int64) (int64, []models.Record, error) {
	if snapshotID == 0 {
		snap, err := e.store.LatestSnapshot(ctx, "")
		if err != nil {
			return 0, nil, err
		}
		if snap == nil {
			return 0, nil, fmt.Errorf("no snapshots stored")
		}
		snapshotID = snap.ID
	}
	records, err := e.store.ListRecords(ctx, snapshotID)
	if err != nil {
		return 0, nil, err
	}
	return snapshotID, records, nil
}

// Impact returns all addresses that transitively depend on address.
func (e *LocalEngine) Impact(ctx context.Context, snapshotID int64, address string) (*ImpactResult, error) {
	id, records, err := e.loadRecords(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	adj := buildAdjacency(records)
	affected := bfs(address, adj.upstream)
	if affected == nil {
		affected = []string{}
	}
	sort.Strings(affected)

	serviceByAddr := make(map[string]string, len(records))
	for _, r := range records {
		serviceByAddr[r.Address] = string(r.Service)
	}
	byService := make(map[string]int)
	for _, addr := range affected {
		if svc, ok := serviceByAddr[addr]; ok {
			byService[svc]++
		}
	}

	return &ImpactResult{
		Root:              address,
		SnapshotID:        id,
		Affected:          affected,
		AffectedByService: byService,
	}, nil
}

// Deps returns all addresses that address transitively depends on.
func (e *LocalEngine) Deps(ctx context.Context, snapshotID int64, address string) ([]string, error) {
	_, records, err := e.loadRecords(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	adj := buildAdjacency(records)
	deps := bfs(address, adj.downstream)
	sort.Strings(deps)
	return deps, nil
}

// Close is a no-op for the local engine.
func (e *LocalEngine) Close() error { return nil }
