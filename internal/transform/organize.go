package transform

import (
	"encoding/json"
	"sort"

	"github.com/tfcanon/tfcanon/pkg/models"
)

// EnvelopeVersion tags the output document format.
const EnvelopeVersion = "1.0"

// sortRecords orders records by (type, name, address). The sort is stable
// so duplicate addresses keep their collection order.
func sortRecords(recs []models.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Address < b.Address
	})
}

func sortIgnored(items []models.IgnoredItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Reason < b.Reason
	})
}

// Organize merges collector output from any number of documents into the
// final envelope: records partitioned per service, every service key
// present, deterministic ordering throughout. When includeIgnored is set
// the merged diagnostics are attached (possibly empty), otherwise the
// ignored key is absent entirely.
func Organize(results []CollectResult, includeIgnored bool) *models.Envelope {
	services := make(map[models.Service]*models.ServiceBucket, len(models.Services))
	for _, svc := range models.Services {
		services[svc] = &models.ServiceBucket{
			Resources:   []models.Record{},
			DataSources: []models.Record{},
		}
	}

	var ignored []models.IgnoredItem
	for _, res := range results {
		for _, r := range res.Resources {
			b := services[r.Service]
			b.Resources = append(b.Resources, r)
		}
		for _, d := range res.DataSources {
			b := services[d.Service]
			b.DataSources = append(b.DataSources, d)
		}
		ignored = append(ignored, res.Ignored...)
	}

	for _, svc := range models.Services {
		sortRecords(services[svc].Resources)
		sortRecords(services[svc].DataSources)
	}

	env := &models.Envelope{
		Version:  EnvelopeVersion,
		Provider: "aws",
		Services: services,
	}
	if includeIgnored {
		if ignored == nil {
			ignored = []models.IgnoredItem{}
		}
		sortIgnored(ignored)
		env.Ignored = &ignored
	}
	return env
}

// MarshalCanonical serializes an envelope to its canonical compact form:
// map keys sorted, struct fields in declared order, no insignificant
// whitespace. Two equal envelopes always produce identical bytes.
func MarshalCanonical(env *models.Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// MarshalIndented is the human-readable variant of MarshalCanonical.
func MarshalIndented(env *models.Envelope) ([]byte, error) {
	return json.MarshalIndent(env, "", "  ")
}
