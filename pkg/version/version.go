// Package version derives a component's version string from its release tags
// and the commit graph.
//
// A commit carrying the highest reachable tag renders as the bare triple
// ("1.2.3"). Any later commit renders in development form
// "1.2.3.<commits since tag>-<short commit id>". The commit id is the target's
// own id, so components sharing a commit share the suffix even when they track
// different paths.
package version

import (
	"context"
	"fmt"

	"github.com/SmartSoftDev/git-info-generator/pkg/oracle"
	"github.com/SmartSoftDev/git-info-generator/pkg/semver"
)

// DefaultShortLen is the number of commit id characters in development versions.
const DefaultShortLen = 9

// Spec is a resolved version. It is derived on demand and never stored.
type Spec struct {
	TagName    string // matched tag, empty when none matched
	TagVersion semver.Version
	BuildCount int
	CommitRef  string // short id of the target commit
	IsRelease  bool
	Forced     string // verbatim override, when one was supplied
}

// String renders the version.
func (s Spec) String() string {
	if s.Forced != "" {
		return s.Forced
	}
	if s.IsRelease {
		return s.TagVersion.String()
	}
	return fmt.Sprintf("%s.%d-%s", s.TagVersion, s.BuildCount, s.CommitRef)
}

// Request selects what to resolve.
type Request struct {
	Prefixes []string // accepted tag prefixes; none means the empty prefix
	Target   string   // default HEAD
	Forced   string   // when set, used verbatim after a syntax check
}

// Resolver resolves versions against an oracle.
type Resolver struct {
	Oracle   oracle.Oracle
	ShortLen int
}

// Resolve computes the version for req.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Spec, error) {
	if req.Forced != "" {
		if err := semver.CheckForced(req.Forced); err != nil {
			return Spec{}, err
		}
		return Spec{Forced: req.Forced}, nil
	}

	target := req.Target
	if target == "" {
		target = "HEAD"
	}
	id, err := r.Oracle.ResolveRef(ctx, target)
	if err != nil {
		return Spec{}, fmt.Errorf("resolve version: %w", err)
	}

	tag, found, err := r.LatestTag(ctx, req.Prefixes, string(id))
	if err != nil {
		return Spec{}, err
	}

	spec := Spec{TagVersion: semver.Default, CommitRef: id.Short(r.shortLen())}
	from := ""
	if found {
		spec.TagName = tag.Name
		spec.TagVersion = tag.Version
		from = string(tag.Ref)
	}
	count, err := r.Oracle.CountCommits(ctx, from, string(id))
	if err != nil {
		return Spec{}, fmt.Errorf("resolve version: %w", err)
	}
	spec.BuildCount = count
	spec.IsRelease = found && count == 0
	return spec, nil
}

// LatestTag returns the highest-precedence tag under any of prefixes that is
// an ancestor of target.
func (r *Resolver) LatestTag(ctx context.Context, prefixes []string, target string) (oracle.Tag, bool, error) {
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}
	var all []oracle.Tag
	seen := make(map[string]bool)
	for _, p := range prefixes {
		tags, err := r.Oracle.ListTags(ctx, p)
		if err != nil {
			return oracle.Tag{}, false, fmt.Errorf("resolve version: %w", err)
		}
		for _, t := range tags {
			if seen[t.Name] {
				continue
			}
			seen[t.Name] = true
			all = append(all, t)
		}
	}
	oracle.SortTags(all)

	for _, t := range all {
		ok, err := r.Oracle.IsAncestor(ctx, string(t.Ref), target)
		if err != nil {
			return oracle.Tag{}, false, fmt.Errorf("resolve version: tag %s: %w", t.Name, err)
		}
		if ok {
			return t, true, nil
		}
	}
	return oracle.Tag{}, false, nil
}

// Next returns the version following the latest reachable tag. Without a tag
// the bump starts from 0.0.0.
func (r *Resolver) Next(ctx context.Context, prefixes []string, target string, part semver.Part) (semver.Version, error) {
	if target == "" {
		target = "HEAD"
	}
	id, err := r.Oracle.ResolveRef(ctx, target)
	if err != nil {
		return semver.Version{}, fmt.Errorf("next version: %w", err)
	}
	tag, found, err := r.LatestTag(ctx, prefixes, string(id))
	if err != nil {
		return semver.Version{}, err
	}
	if !found {
		return semver.Version{}.Bump(part), nil
	}
	return tag.Version.Bump(part), nil
}

func (r *Resolver) shortLen() int {
	if r.ShortLen <= 0 {
		return DefaultShortLen
	}
	return r.ShortLen
}
