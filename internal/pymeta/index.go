// Package pymeta indexes the Python distributions installed in
// site-packages directories.
package pymeta

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/scitrera/cuda-containers/internal/pep508"
)

// Distribution is an installed distribution's recorded metadata.
type Distribution struct {
	Name    string // name as recorded in the metadata file
	Version string
	Path    string // metadata directory or file this was read from
}

// Index provides installed-distribution lookup by package name.
type Index struct {
	dists map[string]Distribution // canonical name -> distribution
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{dists: make(map[string]Distribution)}
}

// Scan indexes every *.dist-info and *.egg-info entry found in the given
// directories. Directories that do not exist are skipped: interpreters
// routinely report site paths that were never created.
func (idx *Index) Scan(dirs []string) error {
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("scanning %s: %w", dir, err)
		}
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			dist, ok := readEntry(path, entry.Name(), entry.IsDir())
			if !ok {
				continue
			}
			idx.dists[pep508.CanonicalName(dist.Name)] = dist
		}
	}
	return nil
}

// Lookup finds an installed distribution. The name may use any
// case/separator variation; it is canonicalized before lookup.
func (idx *Index) Lookup(name string) (Distribution, bool) {
	dist, ok := idx.dists[pep508.CanonicalName(name)]
	return dist, ok
}

// Len returns the number of indexed distributions.
func (idx *Index) Len() int {
	return len(idx.dists)
}

func readEntry(path, name string, isDir bool) (Distribution, bool) {
	var metadataPath string
	switch {
	case strings.HasSuffix(name, ".dist-info") && isDir:
		metadataPath = filepath.Join(path, "METADATA")
	case strings.HasSuffix(name, ".egg-info") && isDir:
		metadataPath = filepath.Join(path, "PKG-INFO")
	case strings.HasSuffix(name, ".egg-info"):
		// Older setuptools writes the PKG-INFO content as a bare file.
		metadataPath = path
	default:
		return Distribution{}, false
	}

	dist := Distribution{Path: path}
	if file, err := os.Open(metadataPath); err == nil {
		dist.Name, dist.Version = parseMetadata(file)
		file.Close()
	}
	if dist.Name == "" {
		// Fall back to the directory name, e.g. "foo_bar-1.0.dist-info".
		dist.Name, dist.Version = parseEntryName(name)
	}
	if dist.Name == "" {
		return Distribution{}, false
	}
	return dist, true
}

// parseMetadata extracts the Name and Version headers from a METADATA or
// PKG-INFO file. Headers end at the first blank line.
func parseMetadata(r io.Reader) (name, version string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		if v, ok := strings.CutPrefix(line, "Name:"); ok {
			name = strings.TrimSpace(v)
		} else if v, ok := strings.CutPrefix(line, "Version:"); ok {
			version = strings.TrimSpace(v)
		}
		if name != "" && version != "" {
			break
		}
	}
	return name, version
}

func parseEntryName(entry string) (name, version string) {
	base := strings.TrimSuffix(strings.TrimSuffix(entry, ".dist-info"), ".egg-info")
	if i := strings.IndexByte(base, '-'); i > 0 {
		return base[:i], base[i+1:]
	}
	return base, ""
}
