// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package project loads and saves paper project files. A project file is
// YAML holding a title, a seed description and optionally an outline; the
// same format, with every stage filled in, is used to export a run.
package project

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-writer/pkg/types"
)

// DefaultFile is the project file name used when none is given.
const DefaultFile = "paper.yaml"

// Load reads a project file. Unknown keys are rejected so typos surface
// instead of being ignored.
func Load(path string) (*types.Paper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project: %w", err)
	}
	return Decode(bytes.NewReader(data))
}

// Decode parses a project document from r.
func Decode(r io.Reader) (*types.Paper, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var p types.Paper
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing project: document is empty")
		}
		return nil, fmt.Errorf("parsing project: %w", err)
	}
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	for i, s := range p.Outline {
		if strings.TrimSpace(s.Title) == "" {
			return nil, fmt.Errorf("parsing project: outline section %d has no title", i+1)
		}
	}
	return &p, nil
}

// Encode writes p as YAML with two-space indentation.
func Encode(w io.Writer, p *types.Paper) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encoding project: %w", err)
	}
	return enc.Close()
}

// Save writes p to path, creating parent directories.
func Save(path string, p *types.Paper) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, p); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
