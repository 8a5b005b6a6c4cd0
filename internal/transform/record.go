package transform

import (
	"fmt"
	"strings"

	"github.com/tfcanon/tfcanon/pkg/models"
)

// extractMeta pulls the cross-cutting metadata keys out of attrs, removing
// them so they never leak into the record's attributes.
func extractMeta(attrs map[string]any) (count, forEach any, dependsOn []string, providerAlias *string) {
	rawCount, hasCount := attrs["count"]
	rawForEach, hasForEach := attrs["for_each"]
	rawDepends, hasDepends := attrs["depends_on"]
	rawProvider, hasProvider := attrs["provider"]
	delete(attrs, "count")
	delete(attrs, "for_each")
	delete(attrs, "depends_on")
	delete(attrs, "provider")

	if hasCount && rawCount != nil {
		count = exprOrVal(rawCount)
	}
	if hasForEach && rawForEach != nil {
		forEach = exprOrVal(rawForEach)
	}

	dependsOn = []string{}
	if hasDepends && rawDepends != nil {
		if list, ok := rawDepends.([]any); ok {
			for _, d := range list {
				dependsOn = append(dependsOn, stringify(d))
			}
		} else {
			dependsOn = append(dependsOn, stringify(rawDepends))
		}
	}

	if hasProvider {
		if s, ok := rawProvider.(string); ok {
			providerAlias = &s
		}
	}
	return count, forEach, dependsOn, providerAlias
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// BuildRecord validates and assembles a normalized record for one
// declaration. It never fails with an error: a declaration that cannot be
// classified yields a reason instead, and the checks short-circuit in a
// fixed order (provider scope, service mapping, body shape, alias scope).
func BuildRecord(kind models.Mode, rtype, name string, body any) (*models.Record, models.Reason) {
	if !InAWSNamespace(rtype) {
		return nil, models.ReasonNonAWSProvider
	}
	service, ok := ServiceForType(rtype)
	if !ok {
		return nil, models.ReasonUnsupportedService
	}
	bodyMap, ok := body.(map[string]any)
	if !ok {
		return nil, models.ReasonMalformedBlock
	}

	attrs := make(map[string]any, len(bodyMap))
	for k, v := range bodyMap {
		attrs[k] = v
	}
	count, forEach, dependsOn, providerAlias := extractMeta(attrs)

	// The alias only becomes visible after extraction.
	if providerAlias != nil && *providerAlias != "" && !strings.HasPrefix(*providerAlias, "aws") {
		return nil, models.ReasonNonAWSProviderAlias
	}
	if providerAlias != nil && *providerAlias == "" {
		providerAlias = nil
	}

	normAttrs := make(map[string]any, len(attrs))
	for k, v := range attrs {
		normAttrs[k] = Normalize(v)
	}

	return &models.Record{
		Address:       rtype + "." + name,
		Type:          rtype,
		Name:          name,
		Service:       service,
		Mode:          kind,
		ProviderAlias: providerAlias,
		DependsOn:     dependsOn,
		Count:         count,
		ForEach:       forEach,
		Attributes:    normAttrs,
	}, ""
}
