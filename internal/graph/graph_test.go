package graph

import (
	"reflect"
	"testing"

	"github.com/tfcanon/tfcanon/pkg/models"
)

func rec(rtype, name string, svc models.Service, deps ...string) models.Record {
	if deps == nil {
		deps = []string{}
	}
	return models.Record{
		Address:    rtype + "." + name,
		Type:       rtype,
		Name:       name,
		Service:    svc,
		Mode:       models.ModeResource,
		DependsOn:  deps,
		Attributes: map[string]any{},
	}
}

func TestDependencyEdges(t *testing.T) {
	records := []models.Record{
		rec("aws_instance", "web", models.ServiceEC2, "aws_subnet.main", "aws_iam_role.app"),
		rec("aws_subnet", "main", models.ServiceVPC, "aws_vpc.main"),
		rec("aws_vpc", "main", models.ServiceVPC),
	}

	edges := DependencyEdges(records)
	want := []Edge{
		{From: "aws_instance.web", To: "aws_subnet.main"},
		{From: "aws_instance.web", To: "aws_iam_role.app"},
		{From: "aws_subnet.main", To: "aws_vpc.main"},
	}
	if !reflect.DeepEqual(edges, want) {
		t.Errorf("edges = %v, want %v", edges, want)
	}
}

func TestDependencyEdges_UnwrapsExpressions(t *testing.T) {
	records := []models.Record{
		rec("aws_instance", "web", models.ServiceEC2, "${aws_vpc.main}", "  ${ aws_subnet.a } "),
	}
	edges := DependencyEdges(records)
	want := []Edge{
		{From: "aws_instance.web", To: "aws_vpc.main"},
		{From: "aws_instance.web", To: "aws_subnet.a"},
	}
	if !reflect.DeepEqual(edges, want) {
		t.Errorf("edges = %v, want %v", edges, want)
	}
}

func TestDependencyEdges_SkipsSelfEmptyAndDuplicates(t *testing.T) {
	records := []models.Record{
		rec("aws_vpc", "main", models.ServiceVPC, "aws_vpc.main", "", "aws_eip.x", "aws_eip.x"),
	}
	edges := DependencyEdges(records)
	want := []Edge{{From: "aws_vpc.main", To: "aws_eip.x"}}
	if !reflect.DeepEqual(edges, want) {
		t.Errorf("edges = %v, want %v", edges, want)
	}
}

func TestBFS(t *testing.T) {
	next := map[string][]string{
		"a": {"b", "c"},
		"b": {"d"},
		"c": {"d"},
		"d": {"a"}, // cycle back to start
	}
	got := bfs("a", next)
	if len(got) != 3 {
		t.Fatalf("reachable = %v, want b, c, d", got)
	}
	seen := map[string]bool{}
	for _, n := range got {
		seen[n] = true
	}
	for _, want := range []string{"b", "c", "d"} {
		if !seen[want] {
			t.Errorf("missing %s in %v", want, got)
		}
	}
	if seen["a"] {
		t.Error("bfs included the start node")
	}
}
