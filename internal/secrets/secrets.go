// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves API keys and credentials. Values come from the
// process environment or from a directory of plain-text files, where the
// filename is the key name and the trimmed contents are the value.
//
// Typical key names: openai-api-key, anthropic-api-key, perplexity-api-key,
// semantic-scholar-api-key, openalex-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// DefaultDir is the secrets directory used when none is configured.
const DefaultDir = ".secrets"

// Set holds secrets loaded from a directory.
type Set struct {
	files  map[string]string
	lookup func(string) (string, bool)
}

// Load reads all files in dir. A missing directory is not an error and
// yields an empty Set. Unreadable files are logged and skipped.
func Load(dir string, log *zap.Logger) (*Set, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Set{files: make(map[string]string), lookup: os.LookupEnv}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			s.files[name] = value
		}
	}
	return s, nil
}

// Len returns the number of secrets loaded from files.
func (s *Set) Len() int {
	return len(s.files)
}

// Resolve returns the value for name. The environment is checked first,
// both as given and in its variable form (openai-api-key becomes
// OPENAI_API_KEY), then the secrets directory. An empty name resolves to
// the empty string; an unknown name is an error.
func (s *Set) Resolve(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	for _, key := range []string{name, EnvName(name)} {
		if v, ok := s.lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
	if v, ok := s.files[name]; ok {
		return v, nil
	}
	return "", fmt.Errorf("secret %q not found in environment or secrets directory", name)
}

// EnvName converts a key name to its environment variable form.
func EnvName(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}
