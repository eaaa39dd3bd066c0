// Package pathset normalizes a component's declared locations into an ordered,
// deduplicated set of repository-relative paths.
package pathset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrInvalidPath reports a declared path that cannot be tracked.
	ErrInvalidPath = errors.New("invalid path")
	// ErrEmptyPath reports a blank declared entry, a configuration mistake
	// rather than a bad path.
	ErrEmptyPath = errors.New("empty path declared")
)

// PathError describes why a declared path was rejected.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrInvalidPath, e.Path, e.Reason)
}

func (e *PathError) Unwrap() error { return ErrInvalidPath }

// Mode selects how rejected paths are handled.
type Mode int

const (
	// Strict fails on paths outside the repository or missing on disk.
	Strict Mode = iota
	// Lenient skips paths outside the repository and keeps missing ones,
	// reporting both as warnings.
	Lenient
)

// Warning is a non-fatal path problem reported in lenient mode.
type Warning struct {
	Path    string
	Message string
}

func (w Warning) String() string { return fmt.Sprintf("%s: %s", w.Path, w.Message) }

// Set is an ordered set of slash-separated, repository-relative paths.
type Set []string

// Sorted returns a sorted copy.
func (s Set) Sorted() []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

// Key is a stable identity for the set, independent of declaration order.
func (s Set) Key() string { return strings.Join(s.Sorted(), "\x00") }

// Contains reports whether p is a member.
func (s Set) Contains(p string) bool {
	for _, x := range s {
		if x == p {
			return true
		}
	}
	return false
}

// Resolver joins declared paths to a root inside one repository.
type Resolver struct {
	RepoRoot string // absolute top level of the working tree
	Mode     Mode
}

// Resolve joins each declared path to root (absolute, or relative to
// RepoRoot), normalizes it and returns it relative to RepoRoot. Directories
// are kept as directories. Symlinks in RepoRoot and root are resolved first,
// so a checkout reached through a symlink matches git's top level.
func (r *Resolver) Resolve(root string, declared []string) (Set, []Warning, error) {
	repoRoot := filepath.Clean(r.RepoRoot)
	if !filepath.IsAbs(repoRoot) {
		return nil, nil, fmt.Errorf("resolve paths: repository root %q is not absolute", r.RepoRoot)
	}
	if root == "" {
		root = repoRoot
	} else if !filepath.IsAbs(root) {
		root = filepath.Join(repoRoot, root)
	}
	repoRoot = realPath(repoRoot)
	root = realPath(root)

	var (
		set      Set
		warnings []Warning
		seen     = make(map[string]bool, len(declared))
	)
	for i, decl := range declared {
		if strings.TrimSpace(decl) == "" {
			return nil, nil, fmt.Errorf("%w (entry %d)", ErrEmptyPath, i+1)
		}
		abs := filepath.Clean(filepath.Join(root, filepath.FromSlash(decl)))
		if filepath.IsAbs(filepath.FromSlash(decl)) {
			// The entry itself may be a tracked symlink; only its parent is resolved.
			abs = filepath.Clean(filepath.FromSlash(decl))
			abs = filepath.Join(realPath(filepath.Dir(abs)), filepath.Base(abs))
		}
		rel, err := filepath.Rel(repoRoot, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			if r.Mode == Strict {
				return nil, nil, &PathError{Path: decl, Reason: "outside repository root " + repoRoot}
			}
			warnings = append(warnings, Warning{Path: decl, Message: "outside repository root, skipped"})
			continue
		}
		if _, err := os.Lstat(abs); err != nil {
			if r.Mode == Strict {
				return nil, nil, &PathError{Path: decl, Reason: "does not exist"}
			}
			warnings = append(warnings, Warning{Path: decl, Message: "does not exist in the working tree"})
		}
		rel = filepath.ToSlash(rel)
		if seen[rel] {
			continue
		}
		seen[rel] = true
		set = append(set, rel)
	}
	return set, warnings, nil
}

// realPath resolves symlinks in the longest existing prefix of p and keeps
// the missing remainder as written.
func realPath(p string) string {
	var rest []string
	for cur := p; ; {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			for i := len(rest) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, rest[i])
			}
			return resolved
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		rest = append(rest, filepath.Base(cur))
		cur = parent
	}
}
