// Package oracle is the read-only view of the version-control system used by
// version resolution and change detection.
//
// Implementations never mutate the repository. The repository may still change
// between two calls made during one invocation; callers must not assume the
// answers of separate calls describe one atomic snapshot.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SmartSoftDev/git-info-generator/pkg/semver"
)

// ErrReferenceNotFound reports a ref that does not name a commit.
var ErrReferenceNotFound = errors.New("reference not found")

// RefError carries the ref that failed to resolve.
type RefError struct {
	Ref string
	Err error
}

func (e *RefError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %q", ErrReferenceNotFound, e.Ref)
	}
	return fmt.Sprintf("%s: %q: %v", ErrReferenceNotFound, e.Ref, e.Err)
}

func (e *RefError) Is(target error) bool { return target == ErrReferenceNotFound }

func (e *RefError) Unwrap() error { return e.Err }

func notFound(ref string, cause error) error {
	return &RefError{Ref: ref, Err: cause}
}

// Hash is a lowercase hex identifier: a commit id or a content fingerprint.
type Hash string

// Short returns the first n characters, or the whole hash when n is out of range.
func (h Hash) Short(n int) string {
	if n <= 0 || n >= len(h) {
		return string(h)
	}
	return string(h[:n])
}

// Tag is a release tag whose name parsed as prefix + semver triple.
type Tag struct {
	Name    string
	Version semver.Version
	Ref     Hash // peeled commit id
}

// Commit is one history entry returned by Log.
type Commit struct {
	Hash        Hash
	Author      string
	AuthorEmail string
	Time        time.Time
	Subject     string
	Body        string
}

// Oracle answers history and content questions about one repository.
type Oracle interface {
	// ListTags returns the tags named prefix+semver, highest precedence first.
	ListTags(ctx context.Context, prefix string) ([]Tag, error)
	// CountCommits counts commits reachable from to but not from from,
	// following every parent. An empty from counts from the root.
	CountCommits(ctx context.Context, from, to string) (int, error)
	// ContentHash fingerprints the tree restricted to paths at ref.
	ContentHash(ctx context.Context, ref string, paths []string) (Hash, error)
	// Entries lists the tree entries restricted to paths at ref, sorted by path.
	Entries(ctx context.Context, ref string, paths []string) ([]Entry, error)
	ResolveRef(ctx context.Context, ref string) (Hash, error)
	IsAncestor(ctx context.Context, ancestor, ref string) (bool, error)
	// DirtyPaths lists uncommitted changes under paths. Committed state is all
	// the other methods ever see.
	DirtyPaths(ctx context.Context, paths []string) ([]string, error)
	// Log lists commits in from..to touching paths, newest first.
	Log(ctx context.Context, from, to string, paths []string) ([]Commit, error)
}

// TagName reports whether name is prefix followed by a release triple and
// returns the parsed version.
func TagName(prefix, name string) (semver.Version, bool) {
	if !strings.HasPrefix(name, prefix) {
		return semver.Version{}, false
	}
	v, err := semver.Parse(strings.TrimPrefix(name, prefix))
	if err != nil {
		return semver.Version{}, false
	}
	return v, true
}

// SortTags orders tags by semver precedence descending, tag name ascending on
// equal versions.
func SortTags(tags []Tag) {
	sort.SliceStable(tags, func(i, j int) bool {
		if c := semver.Compare(tags[i].Version, tags[j].Version); c != 0 {
			return c > 0
		}
		return tags[i].Name < tags[j].Name
	})
}

// covers reports whether path is p or lies under directory p.
func covers(p, path string) bool {
	if p == "." || p == "" {
		return true
	}
	p = strings.TrimSuffix(p, "/")
	return path == p || strings.HasPrefix(path, p+"/")
}

// Covered reports whether path is selected by any of paths.
func Covered(paths []string, path string) bool {
	for _, p := range paths {
		if covers(p, path) {
			return true
		}
	}
	return false
}
