// Package graph builds and traverses the dependency graph implied by the
// depends_on fields of classified records.
package graph

import (
	"strings"

	"github.com/tfcanon/tfcanon/pkg/models"
)

// Edge is one dependency: From depends on To. Both ends are record
// addresses ("type.name").
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DependencyEdges derives the edge list from record depends_on entries.
// Entries wrapped as "${...}" expressions are unwrapped before matching.
func DependencyEdges(records []models.Record) []Edge {
	var edges []Edge
	seen := make(map[Edge]struct{})
	for _, r := range records {
		for _, dep := range r.DependsOn {
			e := Edge{From: r.Address, To: depAddress(dep)}
			if e.To == "" || e.From == e.To {
				continue
			}
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			edges = append(edges, e)
		}
	}
	return edges
}

// depAddress normalizes one depends_on entry to a bare address.
func depAddress(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		s = strings.TrimSpace(s[2 : len(s)-1])
	}
	return s
}

// adjacency holds both directions of the dependency graph.
type adjacency struct {
	// downstream[a] = addresses a depends on
	downstream map[string][]string
	// upstream[a] = addresses that depend on a
	upstream map[string][]string
}

func buildAdjacency(records []models.Record) *adjacency {
	adj := &adjacency{
		downstream: make(map[string][]string),
		upstream:   make(map[string][]string),
	}
	for _, e := range DependencyEdges(records) {
		adj.downstream[e.From] = append(adj.downstream[e.From], e.To)
		adj.upstream[e.To] = append(adj.upstream[e.To], e.From)
	}
	return adj
}

// bfs returns all addresses reachable from start via next, excluding start.
func bfs(start string, next map[string][]string) []string {
	visited := map[string]bool{start: true}
	queue := []string{start}
	var out []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, n := range next[current] {
			if visited[n] {
				continue
			}
			visited[n] = true
			out = append(out, n)
			queue = append(queue, n)
		}
	}
	return out
}
