package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmartSoftDev/git-info-generator/pkg/engine"
	"github.com/SmartSoftDev/git-info-generator/pkg/plan"
	"github.com/SmartSoftDev/git-info-generator/pkg/runner"
	"github.com/SmartSoftDev/git-info-generator/pkg/state"
)

func newPlanCmd(g *globals) *cobra.Command {
	var baseline, ref string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plan <list>...",
		Short: "Show which action lists would run, in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := g.open(cmd)
			if err != nil {
				return err
			}
			p, err := eng.Plan(cmd.Context(), args, ref, baseline)
			if err != nil {
				return err
			}
			if asJSON {
				return writePlanJSON(cmd.OutOrStdout(), p)
			}
			return writePlan(cmd.OutOrStdout(), p)
		},
	}

	cmd.Flags().StringVar(&baseline, "baseline", "", "commit to compare run_on_change paths against")
	cmd.Flags().StringVar(&ref, "ref", "HEAD", "commit the plan is evaluated at")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the plan as JSON")
	return cmd
}

func newRunOnChangeCmd(g *globals) *cobra.Command {
	var keepGoing bool

	cmd := &cobra.Command{
		Use:   "run-on-change <commit> <list>",
		Short: "Run an action list when its tracked paths changed since commit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := g.open(cmd)
			if err != nil {
				return err
			}
			_, report, err := eng.RunOnChange(cmd.Context(), args[0], args[1], g.shell(cmd, eng), keepGoing)
			if err != nil {
				return err
			}
			return finish(eng, report)
		},
	}

	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "run independent lists after a failure")
	return cmd
}

func newRunOnNewVersionCmd(g *globals) *cobra.Command {
	var storePath string
	var user, printLast, keepGoing bool

	cmd := &cobra.Command{
		Use:   "run-on-new-version <list>",
		Short: "Run an action list unless it already ran for the current content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := g.open(cmd)
			if err != nil {
				return err
			}
			dir, err := state.DefaultDir(storePath, user)
			if err != nil {
				return err
			}
			store := &state.Store{Dir: dir}
			list := args[0]

			if printLast {
				rec, ok, err := eng.LastExecuted(store, list)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("action list %q of %s was never executed (store %s)", list, eng.Component().Name, store.Path(eng.Component().Slug()))
				}
				fmt.Fprintln(cmd.OutOrStdout(), rec.ExecutedVersion)
				return nil
			}

			_, report, err := eng.RunOnNewVersion(cmd.Context(), store, list, g.shell(cmd, eng), keepGoing)
			if err != nil {
				return err
			}
			return finish(eng, report)
		},
	}

	cmd.Flags().StringVarP(&storePath, "store-path", "s", "", "directory holding execution records (default $GIG_STORE_DIR, then "+state.GlobalDir+")")
	cmd.Flags().BoolVar(&user, "user", false, "keep execution records under ~/"+state.UserDirName)
	cmd.Flags().BoolVarP(&printLast, "print-last-installed-version", "p", false, "print the version the list last ran at and exit")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "run independent lists after a failure")
	return cmd
}

func (g *globals) shell(cmd *cobra.Command, eng *engine.Engine) *runner.Shell {
	return &runner.Shell{
		Dir:    eng.Component().Dir,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Log:    g.logger(cmd),
	}
}

func finish(eng *engine.Engine, report *plan.Report) error {
	log := eng.Log()
	for _, res := range report.Results {
		switch res.Status {
		case plan.StatusSucceeded:
			log.Infof("%s: %q succeeded in %s", eng.Component().Name, res.Name, res.Duration.Round(time.Millisecond))
		case plan.StatusFailed, plan.StatusBlocked, plan.StatusNotRun:
			if res.Reason != "" {
				log.Warnf("%s: %q %s: %s", eng.Component().Name, res.Name, res.Status, res.Reason)
			} else {
				log.Warnf("%s: %q %s", eng.Component().Name, res.Name, res.Status)
			}
		}
	}
	return report.Err()
}

func writePlan(w io.Writer, p *plan.Plan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range p.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Action, e.Name, e.Reason)
	}
	return tw.Flush()
}

type planEntryJSON struct {
	Name        string   `json:"name"`
	Action      string   `json:"action"`
	Reason      string   `json:"reason,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Depends     []string `json:"depends,omitempty"`
	Steps       []string `json:"steps,omitempty"`
}

func writePlanJSON(w io.Writer, p *plan.Plan) error {
	out := struct {
		Roots   []string        `json:"roots"`
		Entries []planEntryJSON `json:"entries"`
	}{Roots: p.Roots}
	for _, e := range p.Entries {
		out.Entries = append(out.Entries, planEntryJSON{
			Name:        e.Name,
			Action:      string(e.Action),
			Reason:      e.Reason,
			Fingerprint: e.Fingerprint,
			Depends:     e.Depends,
			Steps:       e.Steps,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
