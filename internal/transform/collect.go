package transform

import (
	"fmt"

	"github.com/tfcanon/tfcanon/pkg/models"
)

// Document is the structural output of the upstream configuration parser.
// Its "resource" and "data" sections arrive in one of two equivalent
// shapes: a mapping, or a sequence of single-key mappings.
type Document map[string]any

// entry is one (key, value) pair from a section after shape normalization.
// Duplicate keys are legal: the same type may appear in several sequence
// entries and every instance must be visited.
type entry struct {
	key string
	val any
}

// entries absorbs the dict-or-list shape ambiguity into a single ordered
// sequence of (key, value) pairs. Anything else yields no entries.
func entries(section any) []entry {
	switch s := section.(type) {
	case []any:
		var out []entry
		for _, e := range s {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, mapEntries(m)...)
		}
		return out
	case map[string]any:
		return mapEntries(s)
	default:
		return nil
	}
}

// mapEntries flattens one mapping into entries. Iteration order over a
// Go map is randomized, but the final envelope sort is total, so entry
// order here never reaches the output.
func mapEntries(src map[string]any) []entry {
	out := make([]entry, 0, len(src))
	for k, v := range src {
		out = append(out, entry{key: k, val: v})
	}
	return out
}

// CollectResult aggregates one document's classified declarations.
type CollectResult struct {
	Resources   []models.Record
	DataSources []models.Record
	Ignored     []models.IgnoredItem
}

// Collect walks a parsed document's resource and data sections, builds a
// record per declaration, and routes failures to the ignored list when
// diagnostics are requested. A missing section is treated as empty.
func Collect(doc Document, includeIgnored bool) CollectResult {
	var res CollectResult

	for _, typeEntry := range entries(doc["resource"]) {
		for _, inst := range entries(typeEntry.val) {
			rec, reason := BuildRecord(models.ModeResource, typeEntry.key, inst.key, inst.val)
			if rec != nil {
				res.Resources = append(res.Resources, *rec)
			} else if includeIgnored {
				res.Ignored = append(res.Ignored, models.IgnoredItem{
					Kind:   "resource",
					Type:   typeEntry.key,
					Name:   inst.key,
					Reason: reason,
				})
			}
		}
	}

	for _, typeEntry := range entries(doc["data"]) {
		for _, inst := range entries(typeEntry.val) {
			rec, reason := BuildRecord(models.ModeData, typeEntry.key, inst.key, inst.val)
			if rec != nil {
				res.DataSources = append(res.DataSources, *rec)
			} else if includeIgnored {
				res.Ignored = append(res.Ignored, models.IgnoredItem{
					Kind:   "data",
					Type:   typeEntry.key,
					Name:   inst.key,
					Reason: reason,
				})
			}
		}
	}

	return res
}

// String implements fmt.Stringer for debugging.
func (r CollectResult) String() string {
	return fmt.Sprintf("resources=%d data_sources=%d ignored=%d",
		len(r.Resources), len(r.DataSources), len(r.Ignored))
}
