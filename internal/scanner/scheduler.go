package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tfcanon/tfcanon/internal/alert"
	"github.com/tfcanon/tfcanon/internal/store"
)

// Scheduler re-runs the configured sources periodically and raises a drift
// alert whenever a source's canonical envelope hash changes between runs.
type Scheduler struct {
	runner   *Runner
	store    store.Store
	alerter  alert.Alerter
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewScheduler creates a scheduler. The interval string is parsed with
// time.ParseDuration (e.g. "4h", "30m", "1h30m").
func NewScheduler(r *Runner, st store.Store, al alert.Alerter, interval string, logger *slog.Logger) (*Scheduler, error) {
	d, err := time.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("invalid scan schedule %q: %w (use Go duration format: 4h, 30m, etc.)", interval, err)
	}
	if d < 1*time.Minute {
		return nil, fmt.Errorf("scan interval must be at least 1m, got %s", d)
	}
	return &Scheduler{
		runner:   r,
		store:    st,
		alerter:  al,
		interval: d,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins the scheduling loop. Call Stop() to terminate.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("scan scheduler started", "interval", s.interval.String())

		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// RunOnce executes one scheduled pass over all configured sources.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, src := range s.runner.cfg.Sources.Terraform {
		prev, err := s.store.LatestSnapshot(ctx, src.Path)
		if err != nil {
			s.logger.Warn("loading previous snapshot", "path", src.Path, "error", err)
		}

		res, err := s.runner.Run(ctx, Request{
			Paths:          []string{src.Path},
			IncludeIgnored: true,
			Save:           true,
		})
		if err != nil {
			s.logger.Error("scheduled run failed", "path", src.Path, "error", err)
			continue
		}
		s.logger.Info("scheduled run completed",
			"path", src.Path, "snapshot", res.SnapshotID,
			"resources", res.Resources, "data_sources", res.Data)

		if prev == nil || prev.Hash == res.Hash || s.alerter == nil {
			continue
		}
		event := alert.Event{
			Source:       "scheduler",
			EventType:    alert.EventDrift,
			Severity:     "warning",
			SourcePath:   src.Path,
			SnapshotID:   res.SnapshotID,
			Hash:         res.Hash,
			PreviousHash: prev.Hash,
			Message: fmt.Sprintf("canonical output for %s changed (snapshot %d -> %d)",
				src.Path, prev.ID, res.SnapshotID),
			Timestamp: time.Now().UTC(),
		}
		if err := s.alerter.Send(ctx, event); err != nil {
			s.logger.Warn("sending drift alert", "path", src.Path, "error", err)
		}
	}
}

// Stop halts the scheduler and waits for it to finish.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
}
