package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/SmartSoftDev/git-info-generator/pkg/component"
)

func newListCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [dir]",
		Short: "List the components declared under dir",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			comps, err := component.Discover(root)
			if err != nil {
				return err
			}
			abs, err := filepath.Abs(root)
			if err != nil {
				return err
			}
			g.logger(cmd).Debugf("found %d components under %s", len(comps), abs)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range comps {
				rel, err := filepath.Rel(abs, c.File)
				if err != nil {
					rel = c.File
				}
				fmt.Fprintf(tw, "%s\t%s\n", c.Name, filepath.ToSlash(rel))
			}
			return tw.Flush()
		},
	}
	return cmd
}
