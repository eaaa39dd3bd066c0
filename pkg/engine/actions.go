package engine

import (
	"context"
	"time"

	"github.com/SmartSoftDev/git-info-generator/pkg/change"
	"github.com/SmartSoftDev/git-info-generator/pkg/pathset"
	"github.com/SmartSoftDev/git-info-generator/pkg/plan"
	"github.com/SmartSoftDev/git-info-generator/pkg/state"
)

// Plan evaluates roots at target against baseline. Without a baseline only
// lists lacking run_on_change can be decided.
func (e *Engine) Plan(ctx context.Context, roots []string, target, baseline string) (*plan.Plan, error) {
	g, err := e.c.Graph()
	if err != nil {
		return nil, err
	}
	var gate plan.Gate
	if baseline != "" {
		gate = &change.RefGate{
			Detector: e.detector,
			Paths:    e.paths,
			Root:     e.c.LocationRoot,
			Target:   refOrHead(target),
			Baseline: baseline,
			Warn:     e.warnPath,
		}
	}
	p, err := g.Evaluate(ctx, roots, gate)
	if err != nil {
		return nil, e.configError("scripts", err)
	}
	return p, nil
}

// RunOnChange runs list and its dependencies, gating lists with
// run_on_change on changes since baseline.
func (e *Engine) RunOnChange(ctx context.Context, baseline, list string, ex plan.Executor, bestEffort bool) (*plan.Plan, *plan.Report, error) {
	p, err := e.Plan(ctx, []string{list}, "HEAD", baseline)
	if err != nil {
		return nil, nil, err
	}
	e.logPlan(p)
	report := plan.Execute(ctx, p, ex, plan.Options{BestEffort: bestEffort})
	return p, report, nil
}

// RunOnNewVersion runs list and its dependencies unless they already ran
// for the current content. Lists with run_on_change compare the fingerprint
// of those paths, the others compare the component fingerprint. Every
// successful list is recorded in store.
func (e *Engine) RunOnNewVersion(ctx context.Context, store *state.Store, list string, ex plan.Executor, bestEffort bool) (*plan.Plan, *plan.Report, error) {
	slug := e.c.Slug()
	info, err := store.Load(slug)
	if err != nil {
		return nil, nil, err
	}
	info.Component = e.c.Name
	info.FromPath = e.c.File

	v, err := e.Version(ctx, "HEAD", "")
	if err != nil {
		return nil, nil, err
	}
	ver := v.Spec.String()

	scope, err := e.scope()
	if err != nil {
		return nil, nil, err
	}
	fp, err := e.detector.Fingerprint(ctx, scope, "HEAD")
	if err != nil {
		return nil, nil, err
	}

	g, err := e.c.Graph()
	if err != nil {
		return nil, nil, err
	}
	p, err := g.Evaluate(ctx, []string{list}, &state.Gate{
		Detector: e.detector,
		Paths:    e.paths,
		Root:     e.c.LocationRoot,
		Target:   "HEAD",
		Info:     info,
		Warn:     e.warnPath,
	})
	if err != nil {
		return nil, nil, e.configError("scripts", err)
	}
	if err := p.Refine(ctx, state.SkipExecuted(info, string(fp))); err != nil {
		return nil, nil, err
	}
	e.logPlan(p)

	report := plan.Execute(ctx, p, ex, plan.Options{
		BestEffort: bestEffort,
		OnSuccess: func(_ context.Context, entry plan.Entry, d time.Duration) error {
			if err := store.Record(slug, info, entry.Name, ver, entry.Fingerprint, d, e.now()); err != nil {
				return err
			}
			e.log.Infof("Execution info of %q saved in %s", entry.Name, store.Path(slug))
			return nil
		},
	})
	return p, report, nil
}

// LastExecuted returns the version list last ran at.
func (e *Engine) LastExecuted(store *state.Store, list string) (state.Record, bool, error) {
	info, err := store.Load(e.c.Slug())
	if err != nil {
		return state.Record{}, false, err
	}
	r, ok := info.Last(list)
	return r, ok, nil
}

func (e *Engine) warnPath(list string, w pathset.Warning) {
	e.log.Warnf("%s: action list %q: %s", e.c.Name, list, w)
}

func (e *Engine) logPlan(p *plan.Plan) {
	for _, entry := range p.Entries {
		e.log.Infof("Action list %q: %s (%s)", entry.Name, entry.Action, entry.Reason)
	}
}
