package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/SmartSoftDev/git-info-generator/pkg/component"
	"github.com/SmartSoftDev/git-info-generator/pkg/pathset"
	"github.com/SmartSoftDev/git-info-generator/pkg/plan"
	"github.com/SmartSoftDev/git-info-generator/pkg/semver"
)

const (
	exitFailure = 1
	exitConfig  = 2
	exitCycle   = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		var quiet *exitError
		if !errors.As(err, &quiet) {
			fmt.Fprintln(stderr, "FATAL:", err)
		}
		return exitCode(err)
	}
	return 0
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "gig",
		Short:         "Version, change detection and action lists for repository components",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().CountVarP(&g.verbose, "verbose", "v", "enable debug output (repeatable)")
	root.PersistentFlags().StringVarP(&g.config, "config", "c", ".", "component file, or directory holding .git_component.yml")
	root.PersistentFlags().IntVarP(&g.limit, "limit", "l", 9, "length of the commit id in development versions")
	root.PersistentFlags().BoolVar(&g.lenient, "lenient", false, "warn about invalid tracked paths instead of failing")

	root.AddCommand(newVersionCmd(g))
	root.AddCommand(newNextVersionCmd(g))
	root.AddCommand(newFingerprintCmd(g))
	root.AddCommand(newChangedCmd(g))
	root.AddCommand(newPlanCmd(g))
	root.AddCommand(newRunOnChangeCmd(g))
	root.AddCommand(newRunOnNewVersionCmd(g))
	root.AddCommand(newChangelogCmd(g))
	root.AddCommand(newPackCmd(g))
	root.AddCommand(newListCmd(g))
	return root
}

func exitCode(err error) int {
	var quiet *exitError
	if errors.As(err, &quiet) {
		return quiet.code
	}
	switch {
	case errors.Is(err, plan.ErrCyclicDependency):
		return exitCycle
	case errors.Is(err, component.ErrConfiguration),
		errors.Is(err, pathset.ErrInvalidPath),
		errors.Is(err, plan.ErrUnknownAction),
		errors.Is(err, plan.ErrInvalidGraph),
		errors.Is(err, semver.ErrInvalid):
		return exitConfig
	}
	return exitFailure
}
