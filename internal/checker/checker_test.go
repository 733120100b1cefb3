package checker

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scitrera/cuda-containers/internal/ignore"
	"github.com/scitrera/cuda-containers/internal/pep508"
	"github.com/scitrera/cuda-containers/internal/pymeta"
)

// py311 is the marker environment the tests evaluate against.
var py311 = pep508.Environment{
	OSName:            "posix",
	SysPlatform:       "linux",
	PlatformMachine:   "x86_64",
	PlatformSystem:    "Linux",
	PythonVersion:     "3.11",
	PythonFullVersion: "3.11.2",
}

// newIndex builds an installed index containing the given name==version
// pairs.
func newIndex(t *testing.T, installed map[string]string) *pymeta.Index {
	t.Helper()
	site := t.TempDir()
	for name, version := range installed {
		dir := filepath.Join(site, fmt.Sprintf("%s-%s.dist-info", name, version))
		require.NoError(t, os.MkdirAll(dir, 0755))
		metadata := fmt.Sprintf("Name: %s\nVersion: %s\n", name, version)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "METADATA"), []byte(metadata), 0644))
	}
	idx := pymeta.NewIndex()
	require.NoError(t, idx.Scan([]string{site}))
	return idx
}

func newChecker(t *testing.T, installed map[string]string, ignoreNames []string) *Checker {
	t.Helper()
	ignoreSet, err := ignore.Build(ignoreNames, "")
	require.NoError(t, err)
	return New(newIndex(t, installed), py311, ignoreSet)
}

func TestCheck_MissingKeepsOriginalSpecifier(t *testing.T) {
	chk := newChecker(t, map[string]string{"rich": "13.7.0"}, nil)

	results, err := chk.Check([]string{"requests>=2.0", "rich"})
	require.NoError(t, err)

	assert.Equal(t, []string{"requests>=2.0"}, Missing(results))
}

func TestCheck_EmptyInput(t *testing.T) {
	chk := newChecker(t, nil, nil)

	results, err := chk.Check(nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, Missing(results))
}

func TestCheck_IgnoredNameNeverReported(t *testing.T) {
	chk := newChecker(t, nil, []string{"foo"})

	results, err := chk.Check([]string{"foo"})
	require.NoError(t, err)
	assert.Empty(t, results, "ignored requirement must not produce a result")
	assert.Empty(t, Missing(results))
}

func TestCheck_IgnoreMatchesAcrossNameVariants(t *testing.T) {
	chk := newChecker(t, nil, []string{"typing-extensions"})

	results, err := chk.Check([]string{"Typing_Extensions>=4.0"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCheck_FalseMarkerSkipped(t *testing.T) {
	chk := newChecker(t, nil, nil)

	results, err := chk.Check([]string{"bar; python_version < '3.0'"})
	require.NoError(t, err)
	assert.Empty(t, results, "inapplicable requirement must not produce a result")
}

func TestCheck_TrueMarkerEvaluated(t *testing.T) {
	chk := newChecker(t, nil, nil)

	results, err := chk.Check([]string{`bar; python_version >= "3.8"`})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Installed)
	assert.Equal(t, []string{`bar; python_version >= "3.8"`}, Missing(results))
}

func TestCheck_InstalledVersionResolved(t *testing.T) {
	chk := newChecker(t, map[string]string{"rich": "13.7.0"}, nil)

	results, err := chk.Check([]string{"rich>=10"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Installed)
	assert.Equal(t, "13.7.0", results[0].Version)
}

func TestCheck_AnyInstalledVersionSatisfies(t *testing.T) {
	// Specifier compatibility is deliberately not checked: an old
	// version still counts as installed.
	chk := newChecker(t, map[string]string{"rich": "1.0"}, nil)

	results, err := chk.Check([]string{"rich>=999"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Installed)
	assert.Empty(t, Missing(results))
}

func TestCheck_MalformedRequirementAborts(t *testing.T) {
	chk := newChecker(t, nil, nil)

	_, err := chk.Check([]string{"good-pkg", "[bad", "another"})
	require.Error(t, err)
	var parseErr *pep508.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestMissing_SortedByCanonicalName(t *testing.T) {
	chk := newChecker(t, nil, nil)

	raws := []string{
		"Zope.Interface>=5",
		"requests>=2.0",
		"Typing_Extensions",
		"aiohttp",
	}
	results, err := chk.Check(raws)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"aiohttp",
		"requests>=2.0",
		"Typing_Extensions",
		"Zope.Interface>=5",
	}, Missing(results))
}

func TestCheck_Idempotent(t *testing.T) {
	chk := newChecker(t, map[string]string{"rich": "13.7.0"}, nil)
	raws := []string{"requests>=2.0", "rich", "bar; python_version < '3.0'"}

	first, err := chk.Check(raws)
	require.NoError(t, err)
	second, err := chk.Check(raws)
	require.NoError(t, err)

	assert.Equal(t, Missing(first), Missing(second))
}
