package pyenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"markers": {
			"os_name": "posix",
			"sys_platform": "linux",
			"platform_machine": "x86_64",
			"platform_python_implementation": "CPython",
			"platform_release": "6.1.0-18-amd64",
			"platform_system": "Linux",
			"platform_version": "#1 SMP Debian",
			"python_version": "3.11",
			"python_full_version": "3.11.2",
			"implementation_name": "cpython",
			"implementation_version": "3.11.2"
		},
		"site_packages": [
			"/usr/lib/python3.11/site-packages",
			"/usr/lib/python3.11/site-packages",
			"/home/user/.local/lib/python3.11/site-packages",
			""
		]
	}`)

	info, err := parseProbe(out)
	require.NoError(t, err)

	assert.Equal(t, "posix", info.Markers.OSName)
	assert.Equal(t, "linux", info.Markers.SysPlatform)
	assert.Equal(t, "3.11", info.Markers.PythonVersion)
	assert.Equal(t, "3.11.2", info.Markers.PythonFullVersion)
	assert.Equal(t, "cpython", info.Markers.ImplementationName)
	assert.Equal(t, "CPython", info.Markers.PlatformPythonImplementation)

	// Duplicates and empty entries are dropped, order preserved.
	assert.Equal(t, []string{
		"/usr/lib/python3.11/site-packages",
		"/home/user/.local/lib/python3.11/site-packages",
	}, info.SitePackages)
}

func TestParseProbe_InvalidJSON(t *testing.T) {
	_, err := parseProbe([]byte("Traceback (most recent call last):"))
	assert.Error(t, err)
}

func TestParseProbe_MissingPythonVersion(t *testing.T) {
	_, err := parseProbe([]byte(`{"markers": {}, "site_packages": []}`))
	assert.Error(t, err)
}

func TestProbe_UnknownInterpreter(t *testing.T) {
	_, err := Probe("definitely-not-a-python-interpreter")
	assert.Error(t, err)
}
