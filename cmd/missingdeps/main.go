package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scitrera/cuda-containers/internal/checker"
	"github.com/scitrera/cuda-containers/internal/ignore"
	"github.com/scitrera/cuda-containers/internal/pyenv"
	"github.com/scitrera/cuda-containers/internal/pymeta"
	"github.com/scitrera/cuda-containers/internal/pyproject"
	"github.com/scitrera/cuda-containers/internal/report"
)

var (
	pyprojectPath  string
	extras         []string
	ignoreNames    []string
	ignoreFilePath string
	printInstalled bool
	interpreter    string
	sitePackages   []string
	reportPath     string
	verbose        bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "missingdeps",
		Short: "Report declared dependencies missing from the active Python environment",
		Long: "missingdeps reads the dependency tables from pyproject.toml, honors optional\n" +
			"dependency groups, PEP 508 environment markers and an ignore list, and prints\n" +
			"the requirements that are not installed, one per line, for CI build stages.",
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().StringVar(&pyprojectPath, "pyproject", "pyproject.toml", "Path to pyproject.toml")
	rootCmd.Flags().StringArrayVar(&extras, "extra", nil, "Optional dependency group to include (can be repeated)")
	rootCmd.Flags().StringArrayVar(&ignoreNames, "ignore", nil, "Package name to ignore/skip (can be repeated)")
	rootCmd.Flags().StringVar(&ignoreFilePath, "ignore-file", "", "File with package names to ignore (one per line, # comments allowed)")
	rootCmd.Flags().BoolVar(&printInstalled, "print-installed", false, "Print installed versions for the packages encountered (to stderr)")
	rootCmd.Flags().StringVar(&interpreter, "python", "python3", "Python interpreter to probe for markers and site-packages")
	rootCmd.Flags().StringArrayVar(&sitePackages, "site-packages", nil, "Directory to scan for installed distributions instead of the probed paths (can be repeated)")
	rootCmd.Flags().StringVar(&reportPath, "report", "", "Write a YAML run summary to this path")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := func(format string, args ...interface{}) {
		if verbose {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}

	ignoreSet, err := ignore.Build(ignoreNames, ignoreFilePath)
	if err != nil {
		return err
	}

	log("Loading manifest: %s", pyprojectPath)
	manifest, err := pyproject.Load(pyprojectPath)
	if err != nil {
		return err
	}
	declared := manifest.Requirements(extras)
	log("Collected %d declared requirements", len(declared))

	log("Probing interpreter: %s", interpreter)
	info, err := pyenv.Probe(interpreter)
	if err != nil {
		return err
	}

	dirs := sitePackages
	if len(dirs) == 0 {
		dirs = info.SitePackages
	}
	index := pymeta.NewIndex()
	if err := index.Scan(dirs); err != nil {
		return err
	}
	log("Indexed %d installed distributions", index.Len())

	chk := checker.New(index, info.Markers, ignoreSet)
	results, err := chk.Check(declared)
	if err != nil {
		return err
	}

	if printInstalled {
		report.PrintDiagnostics(os.Stderr, results)
	}

	if err := report.PrintMissing(os.Stdout, checker.Missing(results)); err != nil {
		return err
	}

	if reportPath != "" {
		log("Writing report: %s", reportPath)
		if err := report.WriteSummary(reportPath, report.NewSummary(pyprojectPath, extras, results)); err != nil {
			return err
		}
	}

	return nil
}
