package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tfcanon/tfcanon/internal/config"
	"github.com/tfcanon/tfcanon/internal/parser"
	"github.com/tfcanon/tfcanon/internal/parser/hcl"
	"github.com/tfcanon/tfcanon/internal/store"
	"github.com/tfcanon/tfcanon/internal/transform"
	"github.com/tfcanon/tfcanon/pkg/models"
)

// Request describes one transform run: configuration discovered on disk
// (Paths) and/or supplied in memory (Files).
type Request struct {
	Paths          []string
	Files          []transform.RequestFile
	IncludeIgnored bool
	Save           bool
}

// Result is returned after a run completes.
type Result struct {
	SnapshotID int64
	Envelope   *models.Envelope
	Canonical  []byte
	Hash       string
	Resources  int
	Data       int
	Ignored    int
	Warnings   []string
}

// Runner executes transform runs and optionally persists them as snapshots.
type Runner struct {
	store  store.Store
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a Runner. The store may be nil when persistence is not wanted.
func New(st store.Store, cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{store: st, cfg: cfg, logger: logger}
}

// Run parses every input unit, collects declarations per document, and
// organizes the merged envelope. Unit failures never abort the run: a
// file that fails to parse becomes a file-level diagnostic (when
// requested) and processing continues with its siblings.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	var (
		results  []transform.CollectResult
		warnings []string
	)

	for _, path := range req.Paths {
		files, err := parser.GatherFiles(path)
		if err != nil {
			return Result{}, err
		}
		if len(files) == 0 {
			warnings = append(warnings, fmt.Sprintf("no .tf files under %s", path))
			continue
		}
		for _, f := range files {
			doc, err := hcl.ParseFile(f)
			if err != nil {
				r.logger.Warn("parse failed", "file", f, "error", err)
				if req.IncludeIgnored {
					results = append(results, transform.CollectResult{
						Ignored: []models.IgnoredItem{{
							Kind:    "file",
							Path:    f,
							Reason:  models.ReasonParseError,
							Message: err.Error(),
						}},
					})
				}
				continue
			}
			results = append(results, transform.Collect(doc, req.IncludeIgnored))
		}
	}

	for _, f := range req.Files {
		path := f.Path
		if path == "" {
			path = "<memory>"
		}
		doc, err := hcl.Parse(path, []byte(f.Content))
		if err != nil {
			r.logger.Warn("parse failed", "file", path, "error", err)
			if req.IncludeIgnored {
				results = append(results, transform.CollectResult{
					Ignored: []models.IgnoredItem{{
						Kind:    "file",
						Path:    path,
						Reason:  models.ReasonParseError,
						Message: err.Error(),
					}},
				})
			}
			continue
		}
		results = append(results, transform.Collect(doc, req.IncludeIgnored))
	}

	env := transform.Organize(results, req.IncludeIgnored)
	canonical, err := transform.MarshalCanonical(env)
	if err != nil {
		return Result{}, fmt.Errorf("marshaling envelope: %w", err)
	}
	sum := sha256.Sum256(canonical)

	res := Result{
		Envelope:  env,
		Canonical: canonical,
		Hash:      hex.EncodeToString(sum[:]),
		Warnings:  warnings,
	}
	var records []models.Record
	for _, svc := range models.Services {
		b := env.Services[svc]
		res.Resources += len(b.Resources)
		res.Data += len(b.DataSources)
		records = append(records, b.Resources...)
		records = append(records, b.DataSources...)
	}
	if env.Ignored != nil {
		res.Ignored = len(*env.Ignored)
	}

	if req.Save && r.store != nil {
		id, err := r.store.SaveSnapshot(ctx, store.Snapshot{
			SourcePath:  strings.Join(req.Paths, ", "),
			CreatedAt:   time.Now().UTC(),
			Resources:   res.Resources,
			DataSources: res.Data,
			Ignored:     res.Ignored,
			Hash:        res.Hash,
			Envelope:    canonical,
		}, records)
		if err != nil {
			return Result{}, fmt.Errorf("saving snapshot: %w", err)
		}
		res.SnapshotID = id
	}

	return res, nil
}

// RunConfigured runs every source configured under sources.terraform,
// saving a snapshot per source. Diagnostics are always collected for
// configured runs so drift reports carry full detail.
func (r *Runner) RunConfigured(ctx context.Context) []Result {
	var out []Result
	for _, src := range r.cfg.Sources.Terraform {
		res, err := r.Run(ctx, Request{
			Paths:          []string{src.Path},
			IncludeIgnored: true,
			Save:           true,
		})
		if err != nil {
			r.logger.Error("configured run failed", "path", src.Path, "error", err)
			continue
		}
		out = append(out, res)
	}
	return out
}
