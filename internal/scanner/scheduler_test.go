package scanner

import (
	"context"
	"testing"

	"github.com/tfcanon/tfcanon/internal/alert"
	"github.com/tfcanon/tfcanon/internal/config"
)

type captureAlerter struct {
	events []alert.Event
}

func (c *captureAlerter) Name() string { return "capture" }

func (c *captureAlerter) Send(_ context.Context, event alert.Event) error {
	c.events = append(c.events, event)
	return nil
}

func TestNewScheduler_IntervalValidation(t *testing.T) {
	r := New(nil, &config.Config{}, discardLogger())

	if _, err := NewScheduler(r, nil, nil, "not-a-duration", discardLogger()); err == nil {
		t.Error("expected error for invalid interval")
	}
	if _, err := NewScheduler(r, nil, nil, "30s", discardLogger()); err == nil {
		t.Error("expected error for sub-minute interval")
	}
	if _, err := NewScheduler(r, nil, nil, "4h", discardLogger()); err != nil {
		t.Errorf("4h rejected: %v", err)
	}
}

func TestScheduler_DriftAlert(t *testing.T) {
	dir := t.TempDir()
	writeTF(t, dir, "main.tf", `resource "aws_vpc" "main" { cidr_block = "10.0.0.0/16" }`)
	st := testSQLiteStore(t)

	cfg := &config.Config{}
	cfg.Sources.Terraform = []config.TerraformSource{{Path: dir}}
	runner := New(st, cfg, discardLogger())

	capture := &captureAlerter{}
	sched, err := NewScheduler(runner, st, capture, "1h", discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	// First pass: no previous snapshot, no alert.
	sched.RunOnce(context.Background())
	if len(capture.events) != 0 {
		t.Fatalf("alert on first run: %+v", capture.events)
	}

	// Unchanged source: identical hash, still no alert.
	sched.RunOnce(context.Background())
	if len(capture.events) != 0 {
		t.Fatalf("alert without drift: %+v", capture.events)
	}

	// Changed source: hash differs, one drift alert.
	writeTF(t, dir, "main.tf", `resource "aws_vpc" "main" { cidr_block = "10.1.0.0/16" }`)
	sched.RunOnce(context.Background())
	if len(capture.events) != 1 {
		t.Fatalf("events = %d, want 1", len(capture.events))
	}
	ev := capture.events[0]
	if ev.EventType != alert.EventDrift || ev.Severity != "warning" {
		t.Errorf("event = %+v", ev)
	}
	if ev.SourcePath != dir || ev.Hash == ev.PreviousHash || ev.PreviousHash == "" {
		t.Errorf("event hashes = %+v", ev)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	st := testSQLiteStore(t)
	runner := New(st, &config.Config{}, discardLogger())
	sched, err := NewScheduler(runner, st, nil, "1h", discardLogger())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	sched.Stop()
}
