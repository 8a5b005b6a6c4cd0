package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tfcanon/tfcanon/pkg/models"
)

// GraphData holds a dependency graph snapshot for export.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []Edge      `json:"edges"`
}

// GraphNode is the export view of one record.
type GraphNode struct {
	Address string         `json:"address"`
	Type    string         `json:"type"`
	Name    string         `json:"name"`
	Service models.Service `json:"service"`
	Mode    models.Mode    `json:"mode"`
}

// ExportJSON returns the dependency graph as a JSON string.
func ExportJSON(records []models.Record) (string, error) {
	data := GraphData{
		Nodes: []GraphNode{},
		Edges: []Edge{},
	}
	for _, r := range records {
		data.Nodes = append(data.Nodes, GraphNode{
			Address: r.Address,
			Type:    r.Type,
			Name:    r.Name,
			Service: r.Service,
			Mode:    r.Mode,
		})
	}
	sort.Slice(data.Nodes, func(i, j int) bool { return data.Nodes[i].Address < data.Nodes[j].Address })
	if edges := DependencyEdges(records); edges != nil {
		data.Edges = edges
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ExportDOT returns the dependency graph in Graphviz DOT format, nodes
// colored per logical service.
func ExportDOT(records []models.Record) string {
	var b strings.Builder
	b.WriteString("digraph tfcanon {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled];\n\n")

	sorted := make([]models.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Address < sorted[j].Address })

	for _, r := range sorted {
		b.WriteString(fmt.Sprintf("  %q [label=\"%s\\n(%s)\", fillcolor=%q];\n",
			r.Address, r.Address, r.Service, serviceColor(r.Service)))
	}

	b.WriteString("\n")

	for _, e := range DependencyEdges(records) {
		b.WriteString(fmt.Sprintf("  %q -> %q [label=\"depends_on\"];\n", e.From, e.To))
	}

	b.WriteString("}\n")
	return b.String()
}

func serviceColor(svc models.Service) string {
	switch svc {
	case models.ServiceEC2:
		return "lightblue"
	case models.ServiceIAM:
		return "lightsalmon"
	case models.ServiceRDS:
		return "lightgoldenrod"
	case models.ServiceS3:
		return "lightgreen"
	case models.ServiceVPC:
		return "plum"
	default:
		return "lightgray"
	}
}
