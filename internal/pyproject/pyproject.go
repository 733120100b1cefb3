// Package pyproject loads the dependency tables from a pyproject.toml file.
package pyproject

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Manifest is the subset of pyproject.toml this tool reads.
type Manifest struct {
	Project Project `toml:"project"`
}

// Project holds the [project] table's dependency declarations.
type Project struct {
	Name                 string              `toml:"name"`
	Dependencies         []string            `toml:"dependencies"`
	OptionalDependencies map[string][]string `toml:"optional-dependencies"`
}

// Load reads and parses a pyproject.toml file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pyproject: %w", err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing pyproject %s: %w", path, err)
	}
	return &m, nil
}

// Requirements returns the base dependencies followed by each requested
// extra group's dependencies in request order. Requesting a group twice
// includes it twice; a group absent from the manifest contributes nothing.
// The raw requirement strings are returned untouched.
func (m *Manifest) Requirements(extras []string) []string {
	reqs := append([]string(nil), m.Project.Dependencies...)
	for _, extra := range extras {
		reqs = append(reqs, m.Project.OptionalDependencies[extra]...)
	}
	return reqs
}
