// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompts renders the text-generation prompts used by the pipeline.
// Built-in templates are embedded; a directory of *.md files can override
// them or add new ones, keyed by file stem.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"github.com/pdiddy/paper-writer/pkg/types"
)

// Names of the built-in prompts.
const (
	Description = "description"
	Outline     = "outline"
	Searcher    = "searcher"
	Citation    = "citation"
)

//go:embed defaults/*.md
var defaults embed.FS

// Data is the value templates are executed with.
type Data struct {
	Title       string
	Description string
	Outline     []types.OutlineSection
	Section     string
	Text        string
}

// PaperData builds template data from a paper.
func PaperData(p *types.Paper) Data {
	return Data{Title: p.Title, Description: p.Description, Outline: p.Outline}
}

// Store holds parsed prompt templates.
type Store struct {
	templates map[string]*template.Template
}

// Load parses the embedded templates and then every *.md file in dir,
// which replaces a built-in template of the same name. An empty dir loads
// only the built-ins.
func Load(dir string) (*Store, error) {
	s := &Store{templates: make(map[string]*template.Template)}
	if err := s.addFS(defaults, "defaults"); err != nil {
		return nil, err
	}
	if dir == "" {
		return s, nil
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("prompts directory: %w", err)
	}
	if err := s.addFS(os.DirFS(dir), "."); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) addFS(fsys fs.FS, root string) error {
	paths, err := fs.Glob(fsys, filepath.ToSlash(filepath.Join(root, "*.md")))
	if err != nil {
		return fmt.Errorf("listing prompts: %w", err)
	}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading prompt %s: %w", p, err)
		}
		name := strings.TrimSuffix(filepath.Base(p), ".md")
		tmpl, err := template.New(name).Option("missingkey=error").Parse(strings.TrimSpace(string(data)))
		if err != nil {
			return fmt.Errorf("parsing prompt %s: %w", name, err)
		}
		s.templates[name] = tmpl
	}
	return nil
}

// Names returns the available prompt names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Render executes the named template with data.
func (s *Store) Render(name string, data Data) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("prompt %q not found; available prompts: %s", name, strings.Join(s.Names(), ", "))
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt %s: %w", name, err)
	}
	return buf.String(), nil
}
