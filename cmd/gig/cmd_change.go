package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFingerprintCmd(g *globals) *cobra.Command {
	var ref string
	var showPaths bool

	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the content fingerprint of the tracked paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := g.open(cmd)
			if err != nil {
				return err
			}
			res, err := eng.Fingerprint(cmd.Context(), ref)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Fingerprint)
			if showPaths {
				for _, p := range res.Paths {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", p)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "HEAD", "commit to fingerprint")
	cmd.Flags().BoolVar(&showPaths, "paths", false, "also list the tracked paths")
	return cmd
}

// exitError sets the exit status without a FATAL message, so "changed -q"
// works in shell conditions.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func newChangedCmd(g *globals) *cobra.Command {
	var ref string
	var showDiff, quiet bool

	cmd := &cobra.Command{
		Use:   "changed <baseline>",
		Short: "Report whether the tracked paths changed since baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := g.open(cmd)
			if err != nil {
				return err
			}
			res, err := eng.Changed(cmd.Context(), ref, args[0], showDiff)
			if err != nil {
				return err
			}
			if quiet {
				if !res.Changed {
					return &exitError{code: exitFailure}
				}
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Changed)
			if res.Diff != "" {
				fmt.Fprint(cmd.OutOrStdout(), res.Diff)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "HEAD", "commit compared against baseline")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "print which tracked files changed")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print nothing, exit 1 when unchanged")
	return cmd
}
