// Package checker evaluates declared requirements against the
// installed-distribution index.
package checker

import (
	"fmt"
	"sort"

	"github.com/scitrera/cuda-containers/internal/ignore"
	"github.com/scitrera/cuda-containers/internal/pep508"
	"github.com/scitrera/cuda-containers/internal/pymeta"
)

// Result is the classification of one evaluated requirement.
type Result struct {
	Requirement *pep508.Requirement
	Canonical   string // canonical name, cached for sorting
	Installed   bool
	Version     string // resolved version when installed
}

// Checker runs the evaluation pipeline over raw requirement strings.
type Checker struct {
	index  *pymeta.Index
	env    pep508.Environment
	ignore ignore.Set
}

// New creates a checker for the given installed index, marker
// environment and ignore set.
func New(index *pymeta.Index, env pep508.Environment, ignoreSet ignore.Set) *Checker {
	return &Checker{index: index, env: env, ignore: ignoreSet}
}

// Check evaluates the raw requirement strings in order. Ignored names
// and requirements whose marker evaluates false are dropped without a
// result; everything else is classified as installed or missing. A
// malformed requirement aborts the whole run.
func (c *Checker) Check(raws []string) ([]Result, error) {
	var results []Result
	for _, raw := range raws {
		req, err := pep508.Parse(raw)
		if err != nil {
			return nil, err
		}

		canonical := pep508.CanonicalName(req.Name)
		if c.ignore.Contains(canonical) {
			continue
		}

		if req.Marker != nil {
			applies, err := req.Marker.Evaluate(c.env)
			if err != nil {
				return nil, fmt.Errorf("evaluating marker for %q: %w", req.Name, err)
			}
			if !applies {
				continue
			}
		}

		result := Result{Requirement: req, Canonical: canonical}
		if dist, ok := c.index.Lookup(req.Name); ok {
			result.Installed = true
			result.Version = dist.Version
		}
		results = append(results, result)
	}
	return results, nil
}

// Missing returns the raw requirement strings of the not-installed
// results, sorted ascending by canonical name.
func Missing(results []Result) []string {
	var missing []Result
	for _, r := range results {
		if !r.Installed {
			missing = append(missing, r)
		}
	}
	sort.SliceStable(missing, func(i, j int) bool {
		return missing[i].Canonical < missing[j].Canonical
	})

	lines := make([]string, len(missing))
	for i, r := range missing {
		lines[i] = r.Requirement.Raw
	}
	return lines
}
