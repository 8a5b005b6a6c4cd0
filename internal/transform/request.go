package transform

import (
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// Request is an in-memory transform request: configuration file contents
// supplied directly instead of discovered on disk. The wire form is JSON
// or YAML (YAML parses both).
type Request struct {
	Files   []RequestFile  `yaml:"files" json:"files"`
	Options RequestOptions `yaml:"options" json:"options"`
}

// RequestFile carries one configuration unit. Path is used only for
// diagnostics and defaults to "<memory>".
type RequestFile struct {
	Path    string `yaml:"path" json:"path"`
	Content string `yaml:"content" json:"content"`
}

// RequestOptions mirrors the CLI transform options.
type RequestOptions struct {
	IncludeIgnored bool `yaml:"include_ignored" json:"include_ignored"`
}

// DecodeRequest reads a transform request from r.
func DecodeRequest(r io.Reader) (*Request, error) {
	var req Request
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	return &req, nil
}
