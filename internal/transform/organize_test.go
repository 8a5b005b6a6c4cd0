package transform

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/tfcanon/tfcanon/pkg/models"
)

func TestOrganize_AllServiceKeysPresent(t *testing.T) {
	env := Organize(nil, false)
	if env.Version != "1.0" || env.Provider != "aws" {
		t.Errorf("header = %s/%s", env.Version, env.Provider)
	}
	if len(env.Services) != len(models.Services) {
		t.Fatalf("services = %d, want %d", len(env.Services), len(models.Services))
	}
	for _, svc := range models.Services {
		b := env.Services[svc]
		if b == nil {
			t.Fatalf("service %s missing", svc)
		}
		if b.Resources == nil || b.DataSources == nil {
			t.Errorf("service %s has nil bucket slices", svc)
		}
	}
	if env.Ignored != nil {
		t.Error("ignored present without diagnostics")
	}
}

func TestOrganize_IgnoredPresenceTracksFlag(t *testing.T) {
	env := Organize(nil, true)
	if env.Ignored == nil {
		t.Fatal("ignored absent with diagnostics requested")
	}
	if len(*env.Ignored) != 0 {
		t.Errorf("ignored = %v, want empty", *env.Ignored)
	}

	out, err := MarshalCanonical(env)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"ignored":[]`) {
		t.Errorf("serialized envelope lacks empty ignored list: %s", out)
	}

	out, err = MarshalCanonical(Organize(nil, false))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), `"ignored"`) {
		t.Errorf("serialized envelope carries ignored without diagnostics: %s", out)
	}
}

func TestOrganize_RecordSort(t *testing.T) {
	mk := func(rtype, name string) models.Record {
		return models.Record{
			Address: rtype + "." + name, Type: rtype, Name: name,
			Service: models.ServiceVPC, Mode: models.ModeResource,
			DependsOn: []string{}, Attributes: map[string]any{},
		}
	}
	res := CollectResult{Resources: []models.Record{
		mk("aws_subnet", "b"),
		mk("aws_route", "z"),
		mk("aws_subnet", "a"),
		mk("aws_nat_gateway", "a"),
	}}

	env := Organize([]CollectResult{res}, false)
	got := env.Services[models.ServiceVPC].Resources
	want := []string{"aws_nat_gateway.a", "aws_route.z", "aws_subnet.a", "aws_subnet.b"}
	for i, addr := range want {
		if got[i].Address != addr {
			t.Errorf("position %d = %s, want %s", i, got[i].Address, addr)
		}
	}
}

func TestOrganize_DuplicateAddressesStable(t *testing.T) {
	mk := func(bucket string) models.Record {
		return models.Record{
			Address: "aws_s3_bucket.logs", Type: "aws_s3_bucket", Name: "logs",
			Service: models.ServiceS3, Mode: models.ModeResource,
			DependsOn:  []string{},
			Attributes: map[string]any{"bucket": bucket},
		}
	}
	env := Organize([]CollectResult{
		{Resources: []models.Record{mk("first")}},
		{Resources: []models.Record{mk("second")}},
	}, false)

	got := env.Services[models.ServiceS3].Resources
	if len(got) != 2 {
		t.Fatalf("records = %d, want 2", len(got))
	}
	if got[0].Attributes["bucket"] != "first" || got[1].Attributes["bucket"] != "second" {
		t.Errorf("duplicate order not stable: %v, %v",
			got[0].Attributes["bucket"], got[1].Attributes["bucket"])
	}
}

func TestOrganize_IgnoredSort(t *testing.T) {
	env := Organize([]CollectResult{{Ignored: []models.IgnoredItem{
		{Kind: "resource", Type: "azurerm_b", Name: "x", Reason: models.ReasonNonAWSProvider},
		{Kind: "data", Type: "google_a", Name: "y", Reason: models.ReasonNonAWSProvider},
		{Kind: "file", Path: "bad.tf", Reason: models.ReasonParseError},
		{Kind: "resource", Type: "azurerm_a", Name: "x", Reason: models.ReasonNonAWSProvider},
	}}}, true)

	items := *env.Ignored
	wantKinds := []string{"data", "file", "resource", "resource"}
	for i, k := range wantKinds {
		if items[i].Kind != k {
			t.Fatalf("position %d kind = %s, want %s", i, items[i].Kind, k)
		}
	}
	if items[2].Type != "azurerm_a" || items[3].Type != "azurerm_b" {
		t.Errorf("resource items not sorted by type: %s, %s", items[2].Type, items[3].Type)
	}
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	doc := mapShapeDoc()

	first, err := MarshalCanonical(Organize([]CollectResult{Collect(doc, true)}, true))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, err := MarshalCanonical(Organize([]CollectResult{Collect(mapShapeDoc(), true)}, true))
		if err != nil {
			t.Fatal(err)
		}
		if string(first) != string(again) {
			t.Fatalf("canonical output unstable on iteration %d:\n%s\n%s", i, first, again)
		}
	}
}

// Covers the full pipeline for one realistic document: classification,
// metadata extraction, expression tagging and literal count preservation.
func TestOrganize_Scenario(t *testing.T) {
	doc := Document{
		"resource": map[string]any{
			"aws_instance": map[string]any{
				"web": map[string]any{
					"count":         json.Number("2"),
					"ami":           "${var.ami_id}",
					"instance_type": "t3.micro",
					"depends_on":    []any{"aws_vpc.main"},
				},
			},
			"aws_vpc": map[string]any{
				"main": map[string]any{"cidr_block": "10.0.0.0/16"},
			},
			"azurerm_storage_account": map[string]any{
				"sa": map[string]any{},
			},
		},
	}

	env := Organize([]CollectResult{Collect(doc, true)}, true)
	out, err := MarshalCanonical(env)
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)

	for _, fragment := range []string{
		`"version":"1.0"`,
		`"provider":"aws"`,
		`"address":"aws_instance.web"`,
		`"count":2`,
		`"ami":{"$expr":"var.ami_id"}`,
		`"depends_on":["aws_vpc.main"]`,
		`"address":"aws_vpc.main"`,
		`"type":"azurerm_storage_account"`,
		`"reason":"non_aws_provider"`,
	} {
		if !strings.Contains(s, fragment) {
			t.Errorf("envelope missing %s:\n%s", fragment, s)
		}
	}
	if strings.Contains(s, `"count":2.0`) {
		t.Error("integer count serialized as float")
	}
}
