package state

import (
	"context"
	"fmt"

	"github.com/SmartSoftDev/git-info-generator/pkg/change"
	"github.com/SmartSoftDev/git-info-generator/pkg/pathset"
	"github.com/SmartSoftDev/git-info-generator/pkg/plan"
)

// Gate runs an action list when the fingerprint of its run_on_change paths
// differs from the one recorded at its last successful run.
type Gate struct {
	Detector *change.Detector
	Paths    *pathset.Resolver
	Root     string
	Target   string
	Info     *Info
	Warn     func(list string, w pathset.Warning)
}

var _ plan.Gate = (*Gate)(nil)

func (g *Gate) Changed(ctx context.Context, n *plan.Node) (plan.Decision, error) {
	paths, warnings, err := g.Paths.Resolve(g.Root, n.RunOnChange)
	if err != nil {
		return plan.Decision{}, err
	}
	if g.Warn != nil {
		for _, w := range warnings {
			g.Warn(n.Name, w)
		}
	}
	target := g.Target
	if target == "" {
		target = "HEAD"
	}
	fp, err := g.Detector.Fingerprint(ctx, paths, target)
	if err != nil {
		return plan.Decision{}, err
	}
	last, ok := g.Info.Last(n.Name)
	switch {
	case !ok:
		return plan.Decision{Action: plan.Run, Reason: "never executed", Fingerprint: string(fp)}, nil
	case last.Fingerprint == string(fp):
		return plan.Decision{
			Action:      plan.Skip,
			Reason:      fmt.Sprintf("already executed at version %s", last.ExecutedVersion),
			Fingerprint: string(fp),
		}, nil
	}
	return plan.Decision{
		Action:      plan.Run,
		Reason:      fmt.Sprintf("run_on_change paths changed since version %s", last.ExecutedVersion),
		Fingerprint: string(fp),
	}, nil
}

// SkipExecuted returns a plan refinement for lists without run_on_change:
// they are skipped when their last run recorded fingerprint fp, the
// component's own fingerprint. Entries already carrying a fingerprint were
// decided by a gate and are left alone.
func SkipExecuted(info *Info, fp string) func(context.Context, *plan.Entry) error {
	return func(_ context.Context, e *plan.Entry) error {
		if e.Fingerprint != "" {
			return nil
		}
		e.Fingerprint = fp
		last, ok := info.Last(e.Name)
		if ok && last.Fingerprint == fp {
			e.Action = plan.Skip
			e.Reason = fmt.Sprintf("already executed at version %s", last.ExecutedVersion)
		} else if ok {
			e.Reason = fmt.Sprintf("component changed since version %s", last.ExecutedVersion)
		} else {
			e.Reason = "never executed"
		}
		return nil
	}
}
