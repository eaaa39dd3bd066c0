package plan

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCyclicDependency = errors.New("cyclic dependency")
	ErrUnknownAction    = errors.New("unknown action list")
	ErrInvalidGraph     = errors.New("invalid action graph")
)

// CycleError reports one dependency cycle, first node repeated at the end.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCyclicDependency, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCyclicDependency }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidGraph, fmt.Sprintf(format, args...))
}

func unknownf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnknownAction, fmt.Sprintf(format, args...))
}
