package transform

import (
	"regexp"
	"strings"
)

// exprRe matches a string that is exactly one interpolation expression,
// e.g. "${var.foo}". Strings with literal text around the expression
// ("prefix-${var.foo}") do not match and pass through as literals.
var exprRe = regexp.MustCompile(`^\s*\$\{([^}]*)\}\s*$`)

// Side-channel block names describing imperative execution steps rather
// than desired state. They carry no semantic content for diffing and are
// stripped from every mapping.
var droppedKeys = map[string]struct{}{
	"provisioner": {},
	"connection":  {},
}

// Normalize recursively canonicalizes a value: execution-only keys are
// dropped from mappings, list order is preserved, and a string that is a
// single interpolation expression becomes {"$expr": inner}. The function
// is total and idempotent.
func Normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if _, drop := droppedKeys[k]; drop {
				continue
			}
			out[k] = Normalize(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = Normalize(inner)
		}
		return out
	case string:
		return exprOrString(val)
	default:
		return v
	}
}

// exprOrVal applies expression detection to a value without descending
// into it. Used for count/for_each, where only a bare string expression
// is rewritten and everything else passes through untouched.
func exprOrVal(v any) any {
	if s, ok := v.(string); ok {
		return exprOrString(s)
	}
	return v
}

func exprOrString(s string) any {
	m := exprRe.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return map[string]any{"$expr": strings.TrimSpace(m[1])}
}
