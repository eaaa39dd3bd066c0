package plan

import (
	"context"
	"fmt"
)

// Action is the decision for one entry.
type Action string

const (
	Run  Action = "run"
	Skip Action = "skip"
)

// Decision is a gate's verdict for one node.
type Decision struct {
	Action      Action
	Reason      string
	Fingerprint string // fingerprint the verdict was based on, if any
}

// Gate decides whether a node with run_on_change paths runs.
type Gate interface {
	Changed(ctx context.Context, n *Node) (Decision, error)
}

// GateFunc adapts a function to Gate.
type GateFunc func(ctx context.Context, n *Node) (Decision, error)

func (f GateFunc) Changed(ctx context.Context, n *Node) (Decision, error) { return f(ctx, n) }

// Entry is one ordered plan line.
type Entry struct {
	Name        string
	Action      Action
	Reason      string
	Fingerprint string
	Depends     []string
	Steps       []string
}

// Plan is the ordered run/skip decision set for the requested roots. Skipped
// entries stay in the plan so callers can report them.
type Plan struct {
	Roots   []string
	Entries []Entry
}

// Evaluate orders the closure of roots and decides each entry. Nodes without
// run_on_change always run; the others ask gate.
func (g *Graph) Evaluate(ctx context.Context, roots []string, gate Gate) (*Plan, error) {
	order, err := g.Order(roots)
	if err != nil {
		return nil, err
	}
	p := &Plan{Roots: append([]string(nil), roots...)}
	for _, n := range order {
		e := Entry{
			Name:    n.Name,
			Depends: append([]string(nil), n.Depends...),
			Steps:   append([]string(nil), n.Steps...),
		}
		if len(n.RunOnChange) == 0 {
			e.Action = Run
			e.Reason = "no run_on_change paths"
			p.Entries = append(p.Entries, e)
			continue
		}
		if gate == nil {
			return nil, fmt.Errorf("evaluate %q: run_on_change is declared but no baseline was given", n.Name)
		}
		d, err := gate.Changed(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("evaluate %q: %w", n.Name, err)
		}
		e.Action, e.Reason, e.Fingerprint = d.Action, d.Reason, d.Fingerprint
		p.Entries = append(p.Entries, e)
	}
	return p, nil
}

// Refine lets fn revise runnable entries, for policies layered on top of the
// change gate. fn may only turn Run into Skip.
func (p *Plan) Refine(ctx context.Context, fn func(ctx context.Context, e *Entry) error) error {
	for i := range p.Entries {
		e := &p.Entries[i]
		if e.Action != Run {
			continue
		}
		if err := fn(ctx, e); err != nil {
			return fmt.Errorf("refine %q: %w", e.Name, err)
		}
		if e.Action != Run && e.Action != Skip {
			return fmt.Errorf("refine %q: unknown action %q", e.Name, e.Action)
		}
	}
	return nil
}

// Runnable returns the entries that will run, in order.
func (p *Plan) Runnable() []Entry {
	var out []Entry
	for _, e := range p.Entries {
		if e.Action == Run {
			out = append(out, e)
		}
	}
	return out
}
