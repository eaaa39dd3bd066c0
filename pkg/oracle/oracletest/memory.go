// Package oracletest provides an in-memory oracle.Oracle for tests.
package oracletest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SmartSoftDev/git-info-generator/pkg/oracle"
)

type commit struct {
	id      oracle.Hash
	parents []oracle.Hash
	tree    map[string]string
	subject string
	when    time.Time
}

// Memory is a tiny commit graph: commits with full trees, lightweight tags
// and a movable HEAD. Blob ids are computed exactly as git does, so content
// hashes agree with oracle.Git for identical trees.
type Memory struct {
	commits map[oracle.Hash]*commit
	tags    map[string]oracle.Hash
	head    oracle.Hash
	dirty   []string
	seq     int

	// Calls counts oracle queries by method name.
	Calls map[string]int
}

var _ oracle.Oracle = (*Memory)(nil)

// NewMemory returns an empty repository with an unborn HEAD.
func NewMemory() *Memory {
	return &Memory{
		commits: make(map[oracle.Hash]*commit),
		tags:    make(map[string]oracle.Hash),
		Calls:   make(map[string]int),
	}
}

// Commit records a commit on top of HEAD. files overlays the parent tree; an
// empty content deletes the path.
func (m *Memory) Commit(subject string, files map[string]string) oracle.Hash {
	var parents []oracle.Hash
	if m.head != "" {
		parents = append(parents, m.head)
	}
	return m.commit(subject, parents, files)
}

// Merge records a merge of other into HEAD.
func (m *Memory) Merge(other oracle.Hash, subject string, files map[string]string) oracle.Hash {
	return m.commit(subject, []oracle.Hash{m.head, other}, files)
}

func (m *Memory) commit(subject string, parents []oracle.Hash, files map[string]string) oracle.Hash {
	tree := make(map[string]string)
	if len(parents) > 0 {
		for p, c := range m.commits[parents[0]].tree {
			tree[p] = c
		}
	}
	for p, c := range files {
		if c == "" {
			delete(tree, p)
			continue
		}
		tree[p] = c
	}
	m.seq++
	h := sha1.New()
	fmt.Fprintf(h, "commit %d\x00%s", m.seq, subject)
	for _, p := range parents {
		fmt.Fprintf(h, "\x00%s", p)
	}
	id := oracle.Hash(hex.EncodeToString(h.Sum(nil)))
	m.commits[id] = &commit{
		id:      id,
		parents: parents,
		tree:    tree,
		subject: subject,
		when:    time.Date(2024, 1, 1, 0, 0, m.seq, 0, time.UTC),
	}
	m.head = id
	return id
}

// Checkout moves HEAD.
func (m *Memory) Checkout(id oracle.Hash) { m.head = id }

// Head returns the current HEAD commit.
func (m *Memory) Head() oracle.Hash { return m.head }

// Tag points name at target.
func (m *Memory) Tag(name string, target oracle.Hash) { m.tags[name] = target }

// SetDirty marks paths as having uncommitted changes.
func (m *Memory) SetDirty(paths ...string) { m.dirty = paths }

func (m *Memory) lookup(ref string) (*commit, error) {
	switch {
	case ref == "" || ref == "HEAD":
		if m.head == "" {
			return nil, &oracle.RefError{Ref: "HEAD"}
		}
		return m.commits[m.head], nil
	case m.tags[ref] != "":
		return m.commits[m.tags[ref]], nil
	}
	if c, ok := m.commits[oracle.Hash(ref)]; ok {
		return c, nil
	}
	if len(ref) >= 4 {
		var found *commit
		for id, c := range m.commits {
			if strings.HasPrefix(string(id), ref) {
				if found != nil {
					return nil, &oracle.RefError{Ref: ref, Err: fmt.Errorf("ambiguous")}
				}
				found = c
			}
		}
		if found != nil {
			return found, nil
		}
	}
	return nil, &oracle.RefError{Ref: ref}
}

func (m *Memory) ancestors(c *commit) map[oracle.Hash]bool {
	seen := make(map[oracle.Hash]bool)
	stack := []*commit{c}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur.id] {
			continue
		}
		seen[cur.id] = true
		for _, p := range cur.parents {
			stack = append(stack, m.commits[p])
		}
	}
	return seen
}

func (m *Memory) ResolveRef(_ context.Context, ref string) (oracle.Hash, error) {
	m.Calls["ResolveRef"]++
	c, err := m.lookup(ref)
	if err != nil {
		return "", err
	}
	return c.id, nil
}

func (m *Memory) ListTags(_ context.Context, prefix string) ([]oracle.Tag, error) {
	m.Calls["ListTags"]++
	var tags []oracle.Tag
	for name, target := range m.tags {
		v, ok := oracle.TagName(prefix, name)
		if !ok {
			continue
		}
		tags = append(tags, oracle.Tag{Name: name, Version: v, Ref: target})
	}
	oracle.SortTags(tags)
	return tags, nil
}

func (m *Memory) CountCommits(_ context.Context, from, to string) (int, error) {
	m.Calls["CountCommits"]++
	toC, err := m.lookup(to)
	if err != nil {
		return 0, err
	}
	reach := m.ancestors(toC)
	if from == "" {
		return len(reach), nil
	}
	fromC, err := m.lookup(from)
	if err != nil {
		return 0, err
	}
	n := 0
	excluded := m.ancestors(fromC)
	for id := range reach {
		if !excluded[id] {
			n++
		}
	}
	return n, nil
}

func (m *Memory) IsAncestor(_ context.Context, ancestor, ref string) (bool, error) {
	m.Calls["IsAncestor"]++
	a, err := m.lookup(ancestor)
	if err != nil {
		return false, err
	}
	b, err := m.lookup(ref)
	if err != nil {
		return false, err
	}
	return m.ancestors(b)[a.id], nil
}

func (m *Memory) Entries(_ context.Context, ref string, paths []string) ([]oracle.Entry, error) {
	m.Calls["Entries"]++
	c, err := m.lookup(ref)
	if err != nil {
		return nil, err
	}
	var entries []oracle.Entry
	for p, content := range c.tree {
		if !oracle.Covered(paths, p) {
			continue
		}
		entries = append(entries, oracle.Entry{Mode: "100644", ID: BlobID(content), Path: p})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (m *Memory) ContentHash(ctx context.Context, ref string, paths []string) (oracle.Hash, error) {
	m.Calls["ContentHash"]++
	entries, err := m.Entries(ctx, ref, paths)
	if err != nil {
		return "", err
	}
	return oracle.Combine(entries), nil
}

func (m *Memory) DirtyPaths(_ context.Context, paths []string) ([]string, error) {
	m.Calls["DirtyPaths"]++
	var out []string
	for _, p := range m.dirty {
		if oracle.Covered(paths, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) Log(_ context.Context, from, to string, paths []string) ([]oracle.Commit, error) {
	m.Calls["Log"]++
	toC, err := m.lookup(to)
	if err != nil {
		return nil, err
	}
	reach := m.ancestors(toC)
	if from != "" {
		fromC, err := m.lookup(from)
		if err != nil {
			return nil, err
		}
		for id := range m.ancestors(fromC) {
			delete(reach, id)
		}
	}
	var out []*commit
	for id := range reach {
		c := m.commits[id]
		if m.touches(c, paths) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].when.After(out[j].when) })
	commits := make([]oracle.Commit, 0, len(out))
	for _, c := range out {
		commits = append(commits, oracle.Commit{
			Hash:        c.id,
			Author:      "test",
			AuthorEmail: "test@example.com",
			Time:        c.when,
			Subject:     c.subject,
		})
	}
	return commits, nil
}

// touches reports whether c changed any path under paths relative to its
// first parent.
func (m *Memory) touches(c *commit, paths []string) bool {
	var parent map[string]string
	if len(c.parents) > 0 {
		parent = m.commits[c.parents[0]].tree
	}
	for p, content := range c.tree {
		if oracle.Covered(paths, p) && parent[p] != content {
			return true
		}
	}
	for p := range parent {
		if _, ok := c.tree[p]; !ok && oracle.Covered(paths, p) {
			return true
		}
	}
	return false
}

// BlobID is git's object id for a blob with content.
func BlobID(content string) oracle.Hash {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write([]byte(content))
	return oracle.Hash(hex.EncodeToString(h.Sum(nil)))
}
