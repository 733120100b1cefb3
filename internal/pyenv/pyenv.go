// Package pyenv probes a Python interpreter for its PEP 508 marker
// environment and its site-packages directories.
package pyenv

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/scitrera/cuda-containers/internal/pep508"
)

// probeScript prints the marker variable set from
// packaging.markers.default_environment() plus the interpreter's package
// directories as a single JSON object.
const probeScript = `import json, os, platform, site, sys, sysconfig
def impl_version(info):
    v = "{0.major}.{0.minor}.{0.micro}".format(info)
    if info.releaselevel != "final":
        v += info.releaselevel[0] + str(info.serial)
    return v
paths = [sysconfig.get_paths()["purelib"], sysconfig.get_paths()["platlib"]]
try:
    paths.extend(site.getsitepackages())
    paths.append(site.getusersitepackages())
except AttributeError:
    pass
print(json.dumps({
    "markers": {
        "os_name": os.name,
        "sys_platform": sys.platform,
        "platform_machine": platform.machine(),
        "platform_python_implementation": platform.python_implementation(),
        "platform_release": platform.release(),
        "platform_system": platform.system(),
        "platform_version": platform.version(),
        "python_version": ".".join(platform.python_version_tuple()[:2]),
        "python_full_version": platform.python_version(),
        "implementation_name": sys.implementation.name,
        "implementation_version": impl_version(sys.implementation.version),
    },
    "site_packages": paths,
}))`

// Info is the result of probing an interpreter.
type Info struct {
	Markers      pep508.Environment
	SitePackages []string
}

// Probe runs the interpreter once and parses its environment report.
func Probe(interpreter string) (*Info, error) {
	out, err := exec.Command(interpreter, "-c", probeScript).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("probing %s: %s", interpreter, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("probing %s: %w", interpreter, err)
	}
	return parseProbe(out)
}

func parseProbe(data []byte) (*Info, error) {
	var raw struct {
		Markers struct {
			OSName                       string `json:"os_name"`
			SysPlatform                  string `json:"sys_platform"`
			PlatformMachine              string `json:"platform_machine"`
			PlatformPythonImplementation string `json:"platform_python_implementation"`
			PlatformRelease              string `json:"platform_release"`
			PlatformSystem               string `json:"platform_system"`
			PlatformVersion              string `json:"platform_version"`
			PythonVersion                string `json:"python_version"`
			PythonFullVersion            string `json:"python_full_version"`
			ImplementationName           string `json:"implementation_name"`
			ImplementationVersion        string `json:"implementation_version"`
		} `json:"markers"`
		SitePackages []string `json:"site_packages"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing interpreter probe output: %w", err)
	}
	if raw.Markers.PythonVersion == "" {
		return nil, fmt.Errorf("interpreter probe output missing python_version")
	}

	info := &Info{
		Markers: pep508.Environment{
			OSName:                       raw.Markers.OSName,
			SysPlatform:                  raw.Markers.SysPlatform,
			PlatformMachine:              raw.Markers.PlatformMachine,
			PlatformPythonImplementation: raw.Markers.PlatformPythonImplementation,
			PlatformRelease:              raw.Markers.PlatformRelease,
			PlatformSystem:               raw.Markers.PlatformSystem,
			PlatformVersion:              raw.Markers.PlatformVersion,
			PythonVersion:                raw.Markers.PythonVersion,
			PythonFullVersion:            raw.Markers.PythonFullVersion,
			ImplementationName:           raw.Markers.ImplementationName,
			ImplementationVersion:        raw.Markers.ImplementationVersion,
		},
	}

	seen := make(map[string]bool)
	for _, dir := range raw.SitePackages {
		if dir == "" || seen[dir] {
			continue
		}
		seen[dir] = true
		info.SitePackages = append(info.SitePackages, dir)
	}
	return info, nil
}
