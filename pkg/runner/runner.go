// Package runner executes action list steps as shell commands.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/SmartSoftDev/git-info-generator/pkg/logging"
	"github.com/SmartSoftDev/git-info-generator/pkg/plan"
)

// StepError reports the failing step of a list.
type StepError struct {
	List     string
	Index    int // 1-based
	Step     string
	ExitCode int
	Err      error
}

func (e *StepError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s: step %d %q exited with code %d", e.List, e.Index, e.Step, e.ExitCode)
	}
	return fmt.Sprintf("%s: step %d %q: %v", e.List, e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Shell runs each step with "sh -c" in Dir, stopping at the first failure.
type Shell struct {
	Dir    string
	Env    []string // appended to the process environment
	Stdout io.Writer
	Stderr io.Writer
	Log    *logging.Logger
}

var _ plan.Executor = (*Shell)(nil)

// Run implements plan.Executor.
func (s *Shell) Run(ctx context.Context, e plan.Entry) error {
	if len(e.Steps) == 0 {
		s.Log.Infof("Nothing to run for %q", e.Name)
		return nil
	}
	return s.RunSteps(ctx, e.Name, e.Steps)
}

// RunSteps runs steps in order on behalf of list.
func (s *Shell) RunSteps(ctx context.Context, list string, steps []string) error {
	for i, step := range steps {
		s.Log.Infof("Running %d of %d: %q", i+1, len(steps), step)
		cmd := exec.CommandContext(ctx, "sh", "-c", step)
		cmd.Dir = s.Dir
		cmd.Stdout = orDefault(s.Stdout, os.Stdout)
		cmd.Stderr = orDefault(s.Stderr, os.Stderr)
		if len(s.Env) > 0 {
			cmd.Env = append(os.Environ(), s.Env...)
		}
		if err := cmd.Run(); err != nil {
			se := &StepError{List: list, Index: i + 1, Step: step, Err: err}
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				se.ExitCode = exitErr.ExitCode()
			}
			return se
		}
		s.Log.Debugf("End of %d of %d: %q", i+1, len(steps), strings.TrimSpace(step))
	}
	return nil
}

func orDefault(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
