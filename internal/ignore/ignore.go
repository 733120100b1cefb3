// Package ignore builds the set of package names excluded from the
// missing-dependency check.
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/scitrera/cuda-containers/internal/pep508"
)

// Set holds canonical package names to skip during evaluation.
type Set map[string]struct{}

// Build canonicalizes the literal names and, if path is non-empty, adds
// the names listed in the file (one per line, blank lines and '#'
// comments skipped).
func Build(names []string, path string) (Set, error) {
	set := make(Set, len(names))
	for _, name := range names {
		set[pep508.CanonicalName(name)] = struct{}{}
	}
	if path != "" {
		if err := set.addFromFile(path); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (s Set) addFromFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening ignore file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s[pep508.CanonicalName(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading ignore file: %w", err)
	}
	return nil
}

// Contains reports whether the canonical name is in the set.
func (s Set) Contains(canonical string) bool {
	_, ok := s[canonical]
	return ok
}
