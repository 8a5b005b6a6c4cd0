package transform

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalize_ExpressionDetection(t *testing.T) {
	cases := []struct {
		in   string
		want any
	}{
		{"${var.foo}", map[string]any{"$expr": "var.foo"}},
		{"  ${ var.foo }  ", map[string]any{"$expr": "var.foo"}},
		{"${}", map[string]any{"$expr": ""}},
		{"prefix-${var.foo}", "prefix-${var.foo}"},
		{"${var.foo}-suffix", "${var.foo}-suffix"},
		{"plain string", "plain string"},
		{"", ""},
	}
	for _, c := range cases {
		got := Normalize(c.in)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("Normalize(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNormalize_DropsExecutionKeys(t *testing.T) {
	in := map[string]any{
		"ami":         "ami-123",
		"provisioner": []any{map[string]any{"local-exec": map[string]any{"command": "echo"}}},
		"connection":  map[string]any{"type": "ssh"},
		"ebs_block_device": []any{
			map[string]any{
				"device_name": "/dev/sdh",
				"provisioner": "nested",
			},
		},
	}

	got, ok := Normalize(in).(map[string]any)
	if !ok {
		t.Fatalf("Normalize returned %T, want map", Normalize(in))
	}
	if _, present := got["provisioner"]; present {
		t.Error("provisioner key survived normalization")
	}
	if _, present := got["connection"]; present {
		t.Error("connection key survived normalization")
	}
	nested := got["ebs_block_device"].([]any)[0].(map[string]any)
	if _, present := nested["provisioner"]; present {
		t.Error("nested provisioner key survived normalization")
	}
	if nested["device_name"] != "/dev/sdh" {
		t.Errorf("device_name = %v", nested["device_name"])
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	in := map[string]any{
		"name":  "${var.name}",
		"mixed": "a-${var.b}-c",
		"tags":  map[string]any{"Env": "${var.env}"},
		"list":  []any{"${var.x}", json.Number("3"), true, nil},
	}

	once := Normalize(in)
	twice := Normalize(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Normalize not idempotent:\nonce:  %v\ntwice: %v", once, twice)
	}
}

func TestNormalize_PreservesScalars(t *testing.T) {
	for _, v := range []any{json.Number("2"), json.Number("1.5"), true, false, nil} {
		if got := Normalize(v); !reflect.DeepEqual(got, v) {
			t.Errorf("Normalize(%v) = %v, want unchanged", v, got)
		}
	}
}

func TestNormalize_PreservesListOrder(t *testing.T) {
	in := []any{"c", "a", "b"}
	got := Normalize(in).([]any)
	if !reflect.DeepEqual(got, []any{"c", "a", "b"}) {
		t.Errorf("list order changed: %v", got)
	}
}

func TestExprOrVal_OnlyRewritesStrings(t *testing.T) {
	if got := exprOrVal(json.Number("2")); got != json.Number("2") {
		t.Errorf("exprOrVal(2) = %v", got)
	}
	want := map[string]any{"$expr": "var.n"}
	if got := exprOrVal("${var.n}"); !reflect.DeepEqual(got, want) {
		t.Errorf("exprOrVal = %v, want %v", got, want)
	}
	// Unlike Normalize, it never descends into collections.
	list := []any{"${var.n}"}
	if got := exprOrVal(list); !reflect.DeepEqual(got, list) {
		t.Errorf("exprOrVal descended into list: %v", got)
	}
}
