package skillgraph

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source supplies the static skill graph at startup.
type Source interface {
	Load(ctx context.Context) (Definition, error)
}

// FileSource reads a YAML (or JSON, which YAML accepts) graph definition.
type FileSource struct {
	Path string
}

func (s FileSource) Load(ctx context.Context) (Definition, error) {
	if err := ctx.Err(); err != nil {
		return Definition{}, err
	}
	path := strings.TrimSpace(s.Path)
	if path == "" {
		return Definition{}, fmt.Errorf("skillgraph: file path required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("skillgraph: read %s: %w", path, err)
	}
	def, err := Parse(b)
	if err != nil {
		return Definition{}, fmt.Errorf("skillgraph: parse %s: %w", path, err)
	}
	return def, nil
}

// StaticSource serves an in-memory definition.
type StaticSource struct {
	Def Definition
}

func (s StaticSource) Load(ctx context.Context) (Definition, error) {
	return s.Def, ctx.Err()
}

// Parse decodes a YAML document strictly; unknown fields are rejected.
func Parse(b []byte) (Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Build loads from src and validates the result.
func Build(ctx context.Context, src Source) (*Graph, error) {
	if src == nil {
		return nil, fmt.Errorf("skillgraph: source required")
	}
	def, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return New(def)
}
