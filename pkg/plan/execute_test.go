package plan

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recorder struct {
	ran  []string
	fail map[string]bool
}

func (r *recorder) Run(_ context.Context, e Entry) error {
	r.ran = append(r.ran, e.Name)
	if r.fail[e.Name] {
		return errors.New("boom")
	}
	return nil
}

func executePlan(t *testing.T) *Plan {
	t.Helper()
	g := mustGraph(t,
		Node{Name: "build"},
		Node{Name: "docs", RunOnChange: []string{"docs"}},
		Node{Name: "test", Depends: []string{"build"}},
		Node{Name: "lint"},
		Node{Name: "release", Depends: []string{"test", "lint", "docs"}},
	)
	p, err := g.Evaluate(context.Background(), []string{"release"}, fakeGate{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return p
}

func statuses(r *Report) map[string]Status {
	out := make(map[string]Status, len(r.Results))
	for _, res := range r.Results {
		out[res.Name] = res.Status
	}
	return out
}

func TestExecuteRunsInOrder(t *testing.T) {
	p := executePlan(t)
	rec := &recorder{}
	var recorded []string
	report := Execute(context.Background(), p, rec, Options{
		OnSuccess: func(_ context.Context, e Entry, _ time.Duration) error {
			recorded = append(recorded, e.Name)
			return nil
		},
	})
	if err := report.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	want := []string{"build", "test", "lint", "release"}
	if len(rec.ran) != len(want) {
		t.Fatalf("ran = %v, want %v", rec.ran, want)
	}
	for i := range want {
		if rec.ran[i] != want[i] || recorded[i] != want[i] {
			t.Fatalf("ran = %v recorded = %v, want %v", rec.ran, recorded, want)
		}
	}
	if got := statuses(report)["docs"]; got != StatusSkipped {
		t.Fatalf("docs status = %s, want skipped", got)
	}
	if report.Count(StatusSucceeded) != 4 {
		t.Fatalf("succeeded = %d, want 4", report.Count(StatusSucceeded))
	}
}

func TestExecuteStopsOnFirstFailure(t *testing.T) {
	p := executePlan(t)
	rec := &recorder{fail: map[string]bool{"build": true}}
	report := Execute(context.Background(), p, rec, Options{})
	if err := report.Err(); err == nil {
		t.Fatalf("expected failure")
	}
	if len(rec.ran) != 1 {
		t.Fatalf("ran = %v, want only build", rec.ran)
	}
	got := statuses(report)
	if got["build"] != StatusFailed || got["test"] != StatusNotRun || got["lint"] != StatusNotRun || got["release"] != StatusNotRun {
		t.Fatalf("statuses = %v", got)
	}
}

func TestExecuteBestEffortBlocksDependents(t *testing.T) {
	p := executePlan(t)
	rec := &recorder{fail: map[string]bool{"build": true}}
	report := Execute(context.Background(), p, rec, Options{BestEffort: true})
	got := statuses(report)
	if got["build"] != StatusFailed {
		t.Fatalf("build = %s", got["build"])
	}
	if got["test"] != StatusBlocked || got["release"] != StatusBlocked {
		t.Fatalf("dependents not blocked: %v", got)
	}
	if got["lint"] != StatusSucceeded {
		t.Fatalf("independent list should still run: %v", got)
	}
	if len(rec.ran) != 2 {
		t.Fatalf("ran = %v, want build and lint", rec.ran)
	}
}

func TestExecuteOnSuccessErrorFailsEntry(t *testing.T) {
	g := mustGraph(t, Node{Name: "a"}, Node{Name: "b", Depends: []string{"a"}})
	p, err := g.Evaluate(context.Background(), []string{"b"}, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	report := Execute(context.Background(), p, &recorder{}, Options{
		OnSuccess: func(context.Context, Entry, time.Duration) error { return errors.New("disk full") },
	})
	got := statuses(report)
	if got["a"] != StatusFailed || got["b"] != StatusNotRun {
		t.Fatalf("statuses = %v", got)
	}
}
