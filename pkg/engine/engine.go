// Package engine binds one component to a repository and answers the
// questions the commands ask: its version, its fingerprint, whether it
// changed, and which action lists must run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SmartSoftDev/git-info-generator/pkg/change"
	"github.com/SmartSoftDev/git-info-generator/pkg/component"
	"github.com/SmartSoftDev/git-info-generator/pkg/logging"
	"github.com/SmartSoftDev/git-info-generator/pkg/oracle"
	"github.com/SmartSoftDev/git-info-generator/pkg/pathset"
	"github.com/SmartSoftDev/git-info-generator/pkg/semver"
	"github.com/SmartSoftDev/git-info-generator/pkg/version"
)

// Options configures an Engine.
type Options struct {
	Oracle   oracle.Oracle
	RepoRoot string // absolute top level of the working tree
	PathMode pathset.Mode
	ShortLen int
	Log      *logging.Logger
	Now      func() time.Time
}

// Engine serves one component. Engines share no mutable state, so several
// components of one repository never see each other's paths or tags.
type Engine struct {
	c        *component.Component
	oracle   oracle.Oracle
	paths    *pathset.Resolver
	versions *version.Resolver
	detector *change.Detector
	log      *logging.Logger
	now      func() time.Time
}

// New binds c to the repository described by opts. Oracle and RepoRoot are
// required.
func New(c *component.Component, opts Options) (*Engine, error) {
	if opts.Oracle == nil {
		return nil, fmt.Errorf("engine: oracle is required")
	}
	if opts.RepoRoot == "" {
		return nil, fmt.Errorf("engine: repository root is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		c:        c,
		oracle:   opts.Oracle,
		paths:    &pathset.Resolver{RepoRoot: opts.RepoRoot, Mode: opts.PathMode},
		versions: &version.Resolver{Oracle: opts.Oracle, ShortLen: opts.ShortLen},
		detector: &change.Detector{Oracle: opts.Oracle},
		log:      opts.Log,
		now:      now,
	}, nil
}

// Component returns the bound component.
func (e *Engine) Component() *component.Component { return e.c }

// Log returns the engine's logger.
func (e *Engine) Log() *logging.Logger { return e.log }

// DirtyWarning reports uncommitted changes under the tracked paths. Versions
// and fingerprints only see committed trees, so these changes are invisible
// to them.
type DirtyWarning struct {
	Paths []string
}

func (w *DirtyWarning) String() string {
	return fmt.Sprintf("uncommitted changes are not part of the version or fingerprint: %s", strings.Join(w.Paths, ", "))
}

// TrackedPaths resolves the component's tracked paths. A component without
// any is a configuration error for change tracking.
func (e *Engine) TrackedPaths() (pathset.Set, error) {
	set, err := e.resolve(e.c.TrackedPaths())
	if err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return nil, &component.Error{File: e.c.File, Field: "locations", Msg: "no tracked paths declared"}
	}
	return set, nil
}

// scope is the tracked set, or the whole repository when none is declared.
func (e *Engine) scope() (pathset.Set, error) {
	if len(e.c.TrackedPaths()) == 0 {
		return pathset.Set{"."}, nil
	}
	return e.TrackedPaths()
}

func (e *Engine) resolve(declared []string) (pathset.Set, error) {
	set, warnings, err := e.paths.Resolve(e.c.LocationRoot, declared)
	if err != nil {
		if errors.Is(err, pathset.ErrEmptyPath) {
			return nil, e.configError("locations", err)
		}
		return nil, fmt.Errorf("%s: %w", e.c.Name, err)
	}
	for _, w := range warnings {
		e.log.Warnf("%s: %s", e.c.Name, w)
	}
	return set, nil
}

// configError reports blank path entries as configuration mistakes of field.
func (e *Engine) configError(field string, err error) error {
	if errors.Is(err, pathset.ErrEmptyPath) {
		return &component.Error{File: e.c.File, Field: field, Msg: err.Error()}
	}
	return err
}

// CheckDirty logs and returns a warning when paths have uncommitted changes.
func (e *Engine) CheckDirty(ctx context.Context, paths pathset.Set) (*DirtyWarning, error) {
	dirty, err := e.oracle.DirtyPaths(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("check working tree: %w", err)
	}
	if len(dirty) == 0 {
		return nil, nil
	}
	w := &DirtyWarning{Paths: dirty}
	e.log.Warnf("%s: %s", e.c.Name, w)
	return w, nil
}

// VersionResult is a resolved version plus the dirty-tree warning, if any.
type VersionResult struct {
	Spec  version.Spec
	Dirty *DirtyWarning
}

// Version resolves the component version at target. forced, when set, is
// returned verbatim after a syntax check.
func (e *Engine) Version(ctx context.Context, target, forced string) (*VersionResult, error) {
	res := &VersionResult{}
	if forced == "" {
		scope, err := e.scope()
		if err != nil {
			return nil, err
		}
		if res.Dirty, err = e.CheckDirty(ctx, scope); err != nil {
			return nil, err
		}
	}
	spec, err := e.versions.Resolve(ctx, version.Request{
		Prefixes: e.c.TagPrefixes,
		Target:   target,
		Forced:   forced,
	})
	if err != nil {
		return nil, err
	}
	res.Spec = spec
	return res, nil
}

// NextVersion bumps part of the latest reachable tag.
func (e *Engine) NextVersion(ctx context.Context, target string, part semver.Part) (semver.Version, error) {
	return e.versions.Next(ctx, e.c.TagPrefixes, target, part)
}

// FingerprintResult is the fingerprint of the tracked paths at one ref.
type FingerprintResult struct {
	Fingerprint oracle.Hash
	Paths       pathset.Set
	Dirty       *DirtyWarning
}

// Fingerprint hashes the tracked paths at target (default HEAD).
func (e *Engine) Fingerprint(ctx context.Context, target string) (*FingerprintResult, error) {
	paths, err := e.TrackedPaths()
	if err != nil {
		return nil, err
	}
	dirty, err := e.CheckDirty(ctx, paths)
	if err != nil {
		return nil, err
	}
	fp, err := e.detector.Fingerprint(ctx, paths, refOrHead(target))
	if err != nil {
		return nil, err
	}
	return &FingerprintResult{Fingerprint: fp, Paths: paths, Dirty: dirty}, nil
}

// ChangeResult compares the tracked paths at two refs.
type ChangeResult struct {
	Changed  bool
	Current  oracle.Hash
	Baseline oracle.Hash
	Diff     string // only when requested
	Dirty    *DirtyWarning
}

// Changed compares the tracked paths at target against baseline.
func (e *Engine) Changed(ctx context.Context, target, baseline string, withDiff bool) (*ChangeResult, error) {
	paths, err := e.TrackedPaths()
	if err != nil {
		return nil, err
	}
	dirty, err := e.CheckDirty(ctx, paths)
	if err != nil {
		return nil, err
	}
	target = refOrHead(target)
	cur, err := e.detector.Fingerprint(ctx, paths, target)
	if err != nil {
		return nil, err
	}
	base, err := e.detector.Fingerprint(ctx, paths, baseline)
	if err != nil {
		return nil, err
	}
	res := &ChangeResult{Changed: cur != base, Current: cur, Baseline: base, Dirty: dirty}
	if withDiff && res.Changed {
		if res.Diff, err = e.detector.Diff(ctx, paths, baseline, target); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func refOrHead(ref string) string {
	if ref == "" {
		return "HEAD"
	}
	return ref
}
