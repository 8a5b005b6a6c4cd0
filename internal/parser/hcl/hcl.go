// Package hcl wraps the HashiCorp configuration parser and flattens its
// syntax tree into the plain nested mapping/list document the transform
// pipeline consumes. Literal expressions evaluate to Go values; anything
// referencing variables, resources or functions is carried as its source
// text wrapped in "${...}", so expression tagging stays downstream.
package hcl

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/tfcanon/tfcanon/internal/transform"
)

// ParseFile reads and parses one .tf file.
func ParseFile(path string) (transform.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(path, src)
}

// Parse parses .tf source into a document. Top-level blocks are grouped by
// type as sequences of single-key mappings, one per block, with one nesting
// level per label — the same shape family the collector absorbs.
func Parse(filename string, src []byte) (transform.Document, error) {
	p := hclparse.NewParser()
	file, diags := p.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", filename, diags)
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("parsing %s: unexpected body type", filename)
	}

	c := &converter{src: src}
	doc := transform.Document{}
	for name, attr := range body.Attributes {
		doc[name] = c.expr(attr.Expr)
	}
	for _, blk := range body.Blocks {
		appendBlock(doc, blk.Type, c.block(blk))
	}
	return doc, nil
}

type converter struct {
	src []byte
}

// block converts one block into its value, nesting one mapping level per
// label: resource "aws_vpc" "main" {...} -> {"aws_vpc": {"main": {...}}}.
func (c *converter) block(blk *hclsyntax.Block) any {
	val := any(c.body(blk.Body))
	for i := len(blk.Labels) - 1; i >= 0; i-- {
		val = map[string]any{blk.Labels[i]: val}
	}
	return val
}

func (c *converter) body(b *hclsyntax.Body) map[string]any {
	out := make(map[string]any, len(b.Attributes)+len(b.Blocks))
	for name, attr := range b.Attributes {
		out[name] = c.expr(attr.Expr)
	}
	for _, blk := range b.Blocks {
		appendBlock(out, blk.Type, c.block(blk))
	}
	return out
}

// appendBlock accumulates repeated blocks of the same type into a list,
// matching the list-of-mappings shape upstream parsers produce.
func appendBlock(dst map[string]any, key string, val any) {
	switch existing := dst[key].(type) {
	case nil:
		dst[key] = []any{val}
	case []any:
		dst[key] = append(existing, val)
	default:
		dst[key] = []any{existing, val}
	}
}

// expr converts an expression. Fully literal expressions become Go values;
// non-literal leaves become "${<source>}" strings.
func (c *converter) expr(e hclsyntax.Expression) any {
	switch ex := e.(type) {
	case *hclsyntax.LiteralValueExpr:
		return ctyToGo(ex.Val)

	case *hclsyntax.TemplateExpr:
		if v, ok := c.eval(ex); ok {
			return v
		}
		// Mixed template: splice literal parts with wrapped expressions.
		var s string
		for _, part := range ex.Parts {
			if lit, ok := part.(*hclsyntax.LiteralValueExpr); ok && lit.Val.Type() == cty.String {
				s += lit.Val.AsString()
				continue
			}
			s += "${" + c.rangeSrc(part.Range()) + "}"
		}
		return s

	case *hclsyntax.TemplateWrapExpr:
		return "${" + c.rangeSrc(ex.Wrapped.Range()) + "}"

	case *hclsyntax.ScopeTraversalExpr:
		return "${" + c.rangeSrc(ex.Range()) + "}"

	case *hclsyntax.TupleConsExpr:
		out := make([]any, len(ex.Exprs))
		for i, item := range ex.Exprs {
			out[i] = c.expr(item)
		}
		return out

	case *hclsyntax.ObjectConsExpr:
		out := make(map[string]any, len(ex.Items))
		for _, item := range ex.Items {
			out[c.objKey(item.KeyExpr)] = c.expr(item.ValueExpr)
		}
		return out

	default:
		if v, ok := c.eval(e); ok {
			return v
		}
		return "${" + c.rangeSrc(e.Range()) + "}"
	}
}

// eval attempts static evaluation with no variables or functions in scope.
func (c *converter) eval(e hclsyntax.Expression) (any, bool) {
	val, diags := e.Value(nil)
	if diags.HasErrors() || !val.IsWhollyKnown() {
		return nil, false
	}
	return ctyToGo(val), true
}

func (c *converter) objKey(e hclsyntax.Expression) string {
	if kw := hcl.ExprAsKeyword(e); kw != "" {
		return kw
	}
	if v, ok := c.eval(e); ok {
		if s, isStr := v.(string); isStr {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return c.rangeSrc(e.Range())
}

func (c *converter) rangeSrc(rng hcl.Range) string {
	if rng.Start.Byte < 0 || rng.End.Byte > len(c.src) || rng.Start.Byte > rng.End.Byte {
		return ""
	}
	return string(c.src[rng.Start.Byte:rng.End.Byte])
}

// ctyToGo converts an evaluated value to plain Go data. Numbers become
// json.Number so serialization preserves the source spelling (2 stays 2,
// never 2.0).
func ctyToGo(val cty.Value) any {
	if val.IsNull() {
		return nil
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString()
	case ty == cty.Number:
		return json.Number(val.AsBigFloat().Text('f', -1))
	case ty == cty.Bool:
		return val.True()
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := []any{}
		for it := val.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			out = append(out, ctyToGo(ev))
		}
		return out
	case ty.IsObjectType() || ty.IsMapType():
		out := map[string]any{}
		for it := val.ElementIterator(); it.Next(); {
			kv, ev := it.Element()
			out[kv.AsString()] = ctyToGo(ev)
		}
		return out
	default:
		return nil
	}
}
