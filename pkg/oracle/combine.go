package oracle

import (
	"encoding/hex"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// Entry is one file of a restricted tree: its mode, object id and path.
type Entry struct {
	Mode string
	ID   Hash
	Path string
}

// Combine folds entries into a fingerprint. Entries are sorted by path and
// deduplicated first, so the result depends only on the set of entries.
func Combine(entries []Entry) Hash {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	unique := sorted[:0]
	for _, e := range sorted {
		if len(unique) > 0 && e.Path == unique[len(unique)-1].Path {
			continue
		}
		unique = append(unique, e)
	}

	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "fingerprint %d\x00", len(unique))
	for _, e := range unique {
		fmt.Fprintf(h, "%s %s\t%s\x00", e.Mode, e.ID, e.Path)
	}
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// Listing renders entries one per line, for human comparison.
func Listing(entries []Entry) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s %s %s\n", e.Mode, e.ID, e.Path))
	}
	return lines
}
