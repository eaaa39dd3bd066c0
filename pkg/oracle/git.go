package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Git answers oracle queries by running git plumbing commands against one
// working tree.
type Git struct {
	Root string // repository top level
}

// OpenGit locates the top level of the git working tree containing dir.
func OpenGit(ctx context.Context, dir string) (*Git, error) {
	out, err := runGitCapture(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("open git repository %s: %w", dir, err)
	}
	root := strings.TrimSpace(string(out))
	if root == "" {
		return nil, fmt.Errorf("open git repository %s: empty top level", dir)
	}
	return &Git{Root: root}, nil
}

// ResolveRef resolves ref (default HEAD) to a full commit id.
func (g *Git) ResolveRef(ctx context.Context, ref string) (Hash, error) {
	if ref == "" {
		ref = "HEAD"
	}
	if strings.HasPrefix(ref, "-") {
		return "", notFound(ref, nil)
	}
	out, err := runGitCapture(ctx, g.Root, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		if exitCode(err) > 0 {
			return "", notFound(ref, nil)
		}
		return "", err
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		return "", notFound(ref, nil)
	}
	return Hash(id), nil
}

// ListTags lists release tags under prefix, peeling annotated tags. Tags
// that do not end at a commit are skipped.
func (g *Git) ListTags(ctx context.Context, prefix string) ([]Tag, error) {
	out, err := runGitCapture(ctx, g.Root, "for-each-ref",
		"--format=%(refname:strip=2)%00%(objectname)%00%(objecttype)%00%(*objectname)%00%(*objecttype)", "refs/tags/")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	var tags []Tag
	for _, line := range strings.Split(string(out), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\x00")
		if len(fields) != 5 {
			continue
		}
		v, ok := TagName(prefix, fields[0])
		if !ok {
			continue
		}
		ref, typ := fields[1], fields[2]
		if typ == "tag" {
			ref, typ = fields[3], fields[4]
		}
		if typ != "commit" {
			continue
		}
		tags = append(tags, Tag{Name: fields[0], Version: v, Ref: Hash(ref)})
	}
	SortTags(tags)
	return tags, nil
}

// CountCommits counts commits in from..to over full ancestry.
func (g *Git) CountCommits(ctx context.Context, from, to string) (int, error) {
	toID, err := g.ResolveRef(ctx, to)
	if err != nil {
		return 0, err
	}
	args := []string{"rev-list", "--count", string(toID)}
	if from != "" {
		fromID, err := g.ResolveRef(ctx, from)
		if err != nil {
			return 0, err
		}
		args = append(args, "^"+string(fromID))
	}
	out, err := runGitCapture(ctx, g.Root, args...)
	if err != nil {
		return 0, fmt.Errorf("count commits: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("count commits: parse %q: %w", strings.TrimSpace(string(out)), err)
	}
	return n, nil
}

// IsAncestor reports whether ancestor is reachable from ref.
func (g *Git) IsAncestor(ctx context.Context, ancestor, ref string) (bool, error) {
	a, err := g.ResolveRef(ctx, ancestor)
	if err != nil {
		return false, err
	}
	b, err := g.ResolveRef(ctx, ref)
	if err != nil {
		return false, err
	}
	_, err = runGitCapture(ctx, g.Root, "merge-base", "--is-ancestor", string(a), string(b))
	if err == nil {
		return true, nil
	}
	if exitCode(err) == 1 {
		return false, nil
	}
	return false, fmt.Errorf("is ancestor: %w", err)
}

// Entries lists blobs (and submodule links) under paths at ref.
func (g *Git) Entries(ctx context.Context, ref string, paths []string) ([]Entry, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	id, err := g.ResolveRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	args := []string{"ls-tree", "-r", "-z", "--full-tree", string(id)}
	if !Covered(paths, "") {
		args = append(args, "--")
		args = append(args, paths...)
	}
	out, err := runGitCapture(ctx, g.Root, args...)
	if err != nil {
		return nil, fmt.Errorf("list tree %s: %w", id, err)
	}

	var entries []Entry
	for _, rec := range bytes.Split(out, []byte{0}) {
		if len(rec) == 0 {
			continue
		}
		meta, path, ok := strings.Cut(string(rec), "\t")
		if !ok {
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) != 3 {
			continue
		}
		if !Covered(paths, path) {
			continue
		}
		entries = append(entries, Entry{Mode: fields[0], ID: Hash(fields[2]), Path: path})
	}
	return entries, nil
}

// ContentHash fingerprints the tree restricted to paths at ref.
func (g *Git) ContentHash(ctx context.Context, ref string, paths []string) (Hash, error) {
	entries, err := g.Entries(ctx, ref, paths)
	if err != nil {
		return "", err
	}
	return Combine(entries), nil
}

// DirtyPaths lists modified, staged and untracked files under paths.
func (g *Git) DirtyPaths(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	args := append([]string{"status", "--porcelain=v1", "-z", "--untracked-files=all", "--"}, paths...)
	out, err := runGitCapture(ctx, g.Root, args...)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	var dirty []string
	recs := bytes.Split(out, []byte{0})
	for i := 0; i < len(recs); i++ {
		rec := string(recs[i])
		if len(rec) < 4 {
			continue
		}
		dirty = append(dirty, rec[3:])
		// Renames and copies carry the source path as an extra record.
		if rec[0] == 'R' || rec[0] == 'C' {
			i++
		}
	}
	return dirty, nil
}

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// Log lists commits in from..to that touch paths.
func (g *Git) Log(ctx context.Context, from, to string, paths []string) ([]Commit, error) {
	toID, err := g.ResolveRef(ctx, to)
	if err != nil {
		return nil, err
	}
	args := []string{"log", "--format=%H%x1f%an%x1f%ae%x1f%aI%x1f%s%x1f%b%x1e", string(toID)}
	if from != "" {
		fromID, err := g.ResolveRef(ctx, from)
		if err != nil {
			return nil, err
		}
		args = append(args, "^"+string(fromID))
	}
	if len(paths) > 0 && !Covered(paths, "") {
		args = append(args, "--")
		args = append(args, paths...)
	}
	out, err := runGitCapture(ctx, g.Root, args...)
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	return parseLog(string(out))
}

func parseLog(out string) ([]Commit, error) {
	var commits []Commit
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.TrimLeft(rec, "\n")
		if strings.TrimSpace(rec) == "" {
			continue
		}
		fields := strings.SplitN(rec, fieldSep, 6)
		if len(fields) != 6 {
			continue
		}
		hash := strings.TrimSpace(fields[0])
		when, err := time.Parse(time.RFC3339, strings.TrimSpace(fields[3]))
		if err != nil {
			return nil, fmt.Errorf("log: commit %s: author date: %w", hash, err)
		}
		commits = append(commits, Commit{
			Hash:        Hash(hash),
			Author:      strings.TrimSpace(fields[1]),
			AuthorEmail: strings.TrimSpace(fields[2]),
			Time:        when,
			Subject:     strings.TrimSpace(fields[4]),
			Body:        strings.TrimSpace(fields[5]),
		})
	}
	return commits, nil
}

// gitError keeps the exec error reachable for exit code inspection.
type gitError struct {
	args   []string
	stderr string
	err    error
}

func (e *gitError) Error() string {
	msg := e.stderr
	if msg == "" {
		msg = e.err.Error()
	}
	return fmt.Sprintf("git %s: %s", strings.Join(e.args, " "), msg)
}

func (e *gitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func runGitCapture(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &gitError{args: args, stderr: strings.TrimSpace(stderr.String()), err: err}
	}
	return stdout.Bytes(), nil
}
