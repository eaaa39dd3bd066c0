package oracle

import (
	"context"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 1024

// Cached memoizes the pure queries of an Oracle for the lifetime of one
// invocation. Tag listings, dirty state and logs are passed through.
type Cached struct {
	Oracle

	refs     *lru.Cache[string, Hash]
	counts   *lru.Cache[string, int]
	ancestry *lru.Cache[string, bool]
	hashes   *lru.Cache[string, Hash]
}

// NewCached wraps o. size <= 0 selects a default capacity per query kind.
func NewCached(o Oracle, size int) (*Cached, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	refs, err := lru.New[string, Hash](size)
	if err != nil {
		return nil, err
	}
	counts, err := lru.New[string, int](size)
	if err != nil {
		return nil, err
	}
	ancestry, err := lru.New[string, bool](size)
	if err != nil {
		return nil, err
	}
	hashes, err := lru.New[string, Hash](size)
	if err != nil {
		return nil, err
	}
	return &Cached{Oracle: o, refs: refs, counts: counts, ancestry: ancestry, hashes: hashes}, nil
}

// ResolveRef memoizes ref resolution. Symbolic refs are only stable within
// one invocation, which is the lifetime of the cache.
func (c *Cached) ResolveRef(ctx context.Context, ref string) (Hash, error) {
	if v, ok := c.refs.Get(ref); ok {
		return v, nil
	}
	v, err := c.Oracle.ResolveRef(ctx, ref)
	if err != nil {
		return "", err
	}
	c.refs.Add(ref, v)
	return v, nil
}

func (c *Cached) CountCommits(ctx context.Context, from, to string) (int, error) {
	key, err := c.pairKey(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if v, ok := c.counts.Get(key); ok {
		return v, nil
	}
	v, err := c.Oracle.CountCommits(ctx, from, to)
	if err != nil {
		return 0, err
	}
	c.counts.Add(key, v)
	return v, nil
}

func (c *Cached) IsAncestor(ctx context.Context, ancestor, ref string) (bool, error) {
	key, err := c.pairKey(ctx, ancestor, ref)
	if err != nil {
		return false, err
	}
	if v, ok := c.ancestry.Get(key); ok {
		return v, nil
	}
	v, err := c.Oracle.IsAncestor(ctx, ancestor, ref)
	if err != nil {
		return false, err
	}
	c.ancestry.Add(key, v)
	return v, nil
}

// ContentHash memoizes by (commit id, path set); enumeration order of paths
// does not change the key.
func (c *Cached) ContentHash(ctx context.Context, ref string, paths []string) (Hash, error) {
	id, err := c.ResolveRef(ctx, ref)
	if err != nil {
		return "", err
	}
	key := string(id) + "\x00" + PathKey(paths)
	if v, ok := c.hashes.Get(key); ok {
		return v, nil
	}
	v, err := c.Oracle.ContentHash(ctx, string(id), paths)
	if err != nil {
		return "", err
	}
	c.hashes.Add(key, v)
	return v, nil
}

func (c *Cached) pairKey(ctx context.Context, a, b string) (string, error) {
	var left Hash
	if a != "" {
		id, err := c.ResolveRef(ctx, a)
		if err != nil {
			return "", err
		}
		left = id
	}
	right, err := c.ResolveRef(ctx, b)
	if err != nil {
		return "", err
	}
	return string(left) + ".." + string(right), nil
}

// PathKey is an order-independent key for a path set.
func PathKey(paths []string) string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}
