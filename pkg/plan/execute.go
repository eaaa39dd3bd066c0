package plan

import (
	"context"
	"fmt"
	"time"
)

// Executor runs the steps of one entry.
type Executor interface {
	Run(ctx context.Context, e Entry) error
}

// Status is the outcome of one entry after execution.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusBlocked   Status = "blocked" // a dependency failed
	StatusNotRun    Status = "not-run" // stopped by an earlier failure
)

// Result is the outcome of one plan entry.
type Result struct {
	Name     string
	Status   Status
	Reason   string
	Err      error
	Duration time.Duration
}

// Report collects results in plan order.
type Report struct {
	Results []Result
}

// Err returns the first failure, if any.
func (r *Report) Err() error {
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			return fmt.Errorf("action list %q failed: %w", res.Name, res.Err)
		}
	}
	return nil
}

// Count returns how many results have status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Options controls Execute.
type Options struct {
	// BestEffort keeps running after a failure. Dependents of a failed list
	// are still not run.
	BestEffort bool
	// OnSuccess is called after a list succeeds; an error marks it failed.
	OnSuccess func(ctx context.Context, e Entry, d time.Duration) error
}

// Execute runs the runnable entries of p sequentially.
func Execute(ctx context.Context, p *Plan, ex Executor, opts Options) *Report {
	report := &Report{}
	failed := make(map[string]bool)
	stopped := false

	for _, e := range p.Entries {
		res := Result{Name: e.Name, Reason: e.Reason}
		switch {
		case e.Action != Run:
			res.Status = StatusSkipped
		case stopped:
			res.Status = StatusNotRun
			res.Reason = "stopped after an earlier failure"
		case blockedBy(e, failed) != "":
			res.Status = StatusBlocked
			res.Reason = fmt.Sprintf("dependency %q did not succeed", blockedBy(e, failed))
			failed[e.Name] = true
		default:
			start := time.Now()
			err := ex.Run(ctx, e)
			res.Duration = time.Since(start)
			if err == nil && opts.OnSuccess != nil {
				err = opts.OnSuccess(ctx, e, res.Duration)
			}
			if err != nil {
				res.Status = StatusFailed
				res.Err = err
				failed[e.Name] = true
				if !opts.BestEffort {
					stopped = true
				}
			} else {
				res.Status = StatusSucceeded
			}
		}
		report.Results = append(report.Results, res)
	}
	return report
}

func blockedBy(e Entry, failed map[string]bool) string {
	for _, d := range e.Depends {
		if failed[d] {
			return d
		}
	}
	return ""
}
