// Package change compares the committed content of a path set at two refs.
package change

import (
	"context"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/SmartSoftDev/git-info-generator/pkg/oracle"
	"github.com/SmartSoftDev/git-info-generator/pkg/pathset"
	"github.com/SmartSoftDev/git-info-generator/pkg/plan"
)

// Detector answers change questions through an oracle. It keeps no state
// between calls; persisting fingerprints is the caller's business.
type Detector struct {
	Oracle oracle.Oracle
}

// Fingerprint returns the content hash of paths at ref.
func (d *Detector) Fingerprint(ctx context.Context, paths []string, ref string) (oracle.Hash, error) {
	h, err := d.Oracle.ContentHash(ctx, ref, paths)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", ref, err)
	}
	return h, nil
}

// HasChanged reports whether paths differ between refA and refB.
func (d *Detector) HasChanged(ctx context.Context, paths []string, refA, refB string) (bool, error) {
	a, err := d.Fingerprint(ctx, paths, refA)
	if err != nil {
		return false, err
	}
	b, err := d.Fingerprint(ctx, paths, refB)
	if err != nil {
		return false, err
	}
	return a != b, nil
}

// Diff renders a unified diff of the tree entries under paths, from refA to
// refB. Unchanged paths yield an empty string.
func (d *Detector) Diff(ctx context.Context, paths []string, refA, refB string) (string, error) {
	a, err := d.Oracle.Entries(ctx, refA, paths)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", refA, err)
	}
	b, err := d.Oracle.Entries(ctx, refB, paths)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", refB, err)
	}
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        oracle.Listing(a),
		B:        oracle.Listing(b),
		FromFile: refA,
		ToFile:   refB,
		Context:  1,
	})
	if err != nil {
		return "", fmt.Errorf("diff %s..%s: %w", refA, refB, err)
	}
	return out, nil
}

// RefGate gates an action list on its own run_on_change paths, comparing
// Target against Baseline.
type RefGate struct {
	Detector *Detector
	Paths    *pathset.Resolver
	Root     string // directory run_on_change entries are relative to
	Target   string
	Baseline string
	// Warn receives lenient-mode path warnings; nil drops them.
	Warn func(list string, w pathset.Warning)
}

var _ plan.Gate = (*RefGate)(nil)

// Changed implements plan.Gate.
func (g *RefGate) Changed(ctx context.Context, n *plan.Node) (plan.Decision, error) {
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
	cur, err := g.Detector.Fingerprint(ctx, paths, target)
	if err != nil {
		return plan.Decision{}, err
	}
	base, err := g.Detector.Fingerprint(ctx, paths, g.Baseline)
	if err != nil {
		return plan.Decision{}, err
	}
	if cur == base {
		return plan.Decision{
			Action:      plan.Skip,
			Reason:      fmt.Sprintf("run_on_change paths unchanged since %s", g.Baseline),
			Fingerprint: string(cur),
		}, nil
	}
	return plan.Decision{
		Action:      plan.Run,
		Reason:      fmt.Sprintf("run_on_change paths changed since %s", g.Baseline),
		Fingerprint: string(cur),
	}, nil
}
