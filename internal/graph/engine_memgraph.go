package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// MemgraphEngine implements Engine using Memgraph via the Bolt protocol.
// Snapshots are pushed with Sync; traversals fall back to the LocalEngine
// whenever the database is unavailable or a query fails.
type MemgraphEngine struct {
	driver     neo4j.DriverWithContext
	newSession sessionFactory
	fallback   *LocalEngine
	logger     *slog.Logger
}

// NewMemgraphEngine creates an Engine backed by Memgraph.
func NewMemgraphEngine(uri, username, password string, fallback *LocalEngine, logger *slog.Logger) (*MemgraphEngine, error) {
	auth := neo4j.NoAuth()
	if username != "" {
		auth = neo4j.BasicAuth(username, password, "")
	}

	driver, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("creating memgraph driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("memgraph connectivity check failed: %w", err)
	}

	logger.Info("memgraph engine initialized", "uri", uri)
	return &MemgraphEngine{
		driver:     driver,
		newSession: newNeo4jSessionFactory(driver),
		fallback:   fallback,
		logger:     logger,
	}, nil
}

// Close closes the Memgraph driver connection.
func (e *MemgraphEngine) Close() error {
	return e.driver.Close(context.Background())
}

// Sync replaces the graph in Memgraph with the given snapshot's records
// and dependency edges.
func (e *MemgraphEngine) Sync(ctx context.Context, snapshotID int64) error {
	id, records, err := e.fallback.loadRecords(ctx, snapshotID)
	if err != nil {
		return err
	}

	session := e.newSession(ctx)
	defer session.Close(ctx) //nolint:errcheck // best-effort cleanup

	if _, err := session.Run(ctx, `MATCH (n:Resource) DETACH DELETE n`, nil); err != nil {
		return fmt.Errorf("clearing graph: %w", err)
	}

	for _, r := range records {
		_, err := session.Run(ctx, `
			MERGE (n:Resource {address: $address})
			SET n.type = $type, n.name = $name, n.service = $service,
			    n.mode = $mode, n.snapshot_id = $snapshot
		`, map[string]any{
			"address":  r.Address,
			"type":     r.Type,
			"name":     r.Name,
			"service":  string(r.Service),
			"mode":     string(r.Mode),
			"snapshot": id,
		})
		if err != nil {
			return fmt.Errorf("merging node %s: %w", r.Address, err)
		}
	}

	for _, edge := range DependencyEdges(records) {
		_, err := session.Run(ctx, `
			MATCH (from:Resource {address: $from}), (to:Resource {address: $to})
			MERGE (from)-[:DEPENDS_ON]->(to)
		`, map[string]any{"from": edge.From, "to": edge.To})
		if err != nil {
			return fmt.Errorf("merging edge %s -> %s: %w", edge.From, edge.To, err)
		}
	}

	e.logger.Info("memgraph sync completed", "snapshot", id, "records", len(records))
	return nil
}

// Impact returns all addresses that transitively depend on address, using
// Cypher traversal.
func (e *MemgraphEngine) Impact(ctx context.Context, snapshotID int64, address string) (*ImpactResult, error) {
	session := e.newSession(ctx)
	defer session.Close(ctx) //nolint:errcheck // best-effort cleanup

	// Edge direction: (from)-[:DEPENDS_ON]->(to) means "from depends on to".
	// If address changes, affected = all nodes with a path TO it.
	result, err := session.Run(ctx, `
		MATCH (affected:Resource)-[:DEPENDS_ON*1..]->(root:Resource {address: $address})
		WHERE affected.address <> $address
		WITH DISTINCT affected
		RETURN affected.address AS address, affected.service AS service
		ORDER BY address
	`, map[string]any{"address": address})
	if err != nil {
		e.logger.Warn("memgraph impact failed, falling back", "error", err)
		return e.fallback.Impact(ctx, snapshotID, address)
	}

	impact := &ImpactResult{
		Root:              address,
		SnapshotID:        snapshotID,
		Affected:          []string{},
		AffectedByService: make(map[string]int),
	}
	for result.Next(ctx) {
		rec := result.Record()
		addr, _ := rec.Get("address")
		svc, _ := rec.Get("service")
		if a, ok := addr.(string); ok {
			impact.Affected = append(impact.Affected, a)
		}
		if s, ok := svc.(string); ok {
			impact.AffectedByService[s]++
		}
	}
	if err := result.Err(); err != nil {
		e.logger.Warn("memgraph result error, falling back", "error", err)
		return e.fallback.Impact(ctx, snapshotID, address)
	}

	sort.Strings(impact.Affected)
	return impact, nil
}

// Deps returns all addresses that address transitively depends on.
func (e *MemgraphEngine) Deps(ctx context.Context, snapshotID int64, address string) ([]string, error) {
	session := e.newSession(ctx)
	defer session.Close(ctx) //nolint:errcheck // best-effort cleanup

	result, err := session.Run(ctx, `
		MATCH (root:Resource {address: $address})-[:DEPENDS_ON*1..]->(dep:Resource)
		WHERE dep.address <> $address
		WITH DISTINCT dep
		RETURN dep.address AS address
		ORDER BY address
	`, map[string]any{"address": address})
	if err != nil {
		e.logger.Warn("memgraph deps failed, falling back", "error", err)
		return e.fallback.Deps(ctx, snapshotID, address)
	}

	var deps []string
	for result.Next(ctx) {
		addr, _ := result.Record().Get("address")
		if a, ok := addr.(string); ok {
			deps = append(deps, a)
		}
	}
	if err := result.Err(); err != nil {
		e.logger.Warn("memgraph result error, falling back", "error", err)
		return e.fallback.Deps(ctx, snapshotID, address)
	}

	sort.Strings(deps)
	return deps, nil
}
