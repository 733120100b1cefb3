// Package report renders check results for humans and machines.
package report

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/scitrera/cuda-containers/internal/checker"
)

// PrintMissing writes one raw requirement string per line. The lines
// arrive already sorted by canonical name; nothing else is written.
func PrintMissing(w io.Writer, missing []string) error {
	for _, line := range missing {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("writing missing list: %w", err)
		}
	}
	return nil
}

// PrintDiagnostics writes one line per evaluated requirement using the
// declared (non-canonical) name:
//
//	<name>==<version> (installed)
//	<name> (missing)
func PrintDiagnostics(w io.Writer, results []checker.Result) {
	for _, r := range results {
		if r.Installed {
			fmt.Fprintf(w, "%s==%s (installed)\n", r.Requirement.Name, r.Version)
		} else {
			fmt.Fprintf(w, "%s (missing)\n", r.Requirement.Name)
		}
	}
}

// Summary is the machine-readable run report.
type Summary struct {
	Pyproject string      `yaml:"pyproject"`
	Extras    []string    `yaml:"extras,omitempty"`
	Installed []Installed `yaml:"installed"`
	Missing   []string    `yaml:"missing"`
}

// Installed is one satisfied requirement in the summary.
type Installed struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// NewSummary builds a summary from the evaluation results. Missing
// entries keep their sorted order and original specifier text.
func NewSummary(pyprojectPath string, extras []string, results []checker.Result) *Summary {
	s := &Summary{
		Pyproject: pyprojectPath,
		Extras:    extras,
		Installed: []Installed{},
		Missing:   checker.Missing(results),
	}
	for _, r := range results {
		if r.Installed {
			s.Installed = append(s.Installed, Installed{Name: r.Requirement.Name, Version: r.Version})
		}
	}
	return s
}

// WriteSummary marshals the summary to YAML at the given path.
func WriteSummary(path string, s *Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
