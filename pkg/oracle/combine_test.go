package oracle

import (
	"testing"

	"github.com/SmartSoftDev/git-info-generator/pkg/semver"
)

func TestCombineIgnoresEnumerationOrder(t *testing.T) {
	a := []Entry{
		{Mode: "100644", ID: "aaaa", Path: "src/a.go"},
		{Mode: "100644", ID: "bbbb", Path: "src/b.go"},
		{Mode: "100755", ID: "cccc", Path: "bin/run"},
	}
	b := []Entry{a[2], a[0], a[1]}
	if Combine(a) != Combine(b) {
		t.Fatalf("Combine depends on entry order")
	}
	dup := append(append([]Entry(nil), a...), a[1])
	if Combine(a) != Combine(dup) {
		t.Fatalf("Combine counts duplicate paths twice")
	}
}

func TestCombineSeesModeIDAndPath(t *testing.T) {
	base := []Entry{{Mode: "100644", ID: "aaaa", Path: "x"}}
	variants := [][]Entry{
		{{Mode: "100755", ID: "aaaa", Path: "x"}},
		{{Mode: "100644", ID: "aaab", Path: "x"}},
		{{Mode: "100644", ID: "aaaa", Path: "y"}},
		nil,
	}
	for i, v := range variants {
		if Combine(base) == Combine(v) {
			t.Fatalf("variant %d hashed equal to base", i)
		}
	}
	if got := len(Combine(nil)); got != 64 {
		t.Fatalf("fingerprint length = %d, want 64 hex chars", got)
	}
}

func TestCovered(t *testing.T) {
	tests := []struct {
		paths []string
		path  string
		want  bool
	}{
		{paths: []string{"src"}, path: "src/a.go", want: true},
		{paths: []string{"src"}, path: "src", want: true},
		{paths: []string{"src"}, path: "srcx/a.go", want: false},
		{paths: []string{"src/"}, path: "src/a.go", want: true},
		{paths: []string{"."}, path: "anything", want: true},
		{paths: []string{"docs", "README.md"}, path: "README.md", want: true},
		{paths: nil, path: "a", want: false},
	}
	for _, tc := range tests {
		if got := Covered(tc.paths, tc.path); got != tc.want {
			t.Fatalf("Covered(%v, %q) = %v, want %v", tc.paths, tc.path, got, tc.want)
		}
	}
}

func TestSortTagsPrecedenceThenName(t *testing.T) {
	tags := []Tag{
		{Name: "v1.9.0", Version: mustParse(t, "1.9.0")},
		{Name: "v1.10.0", Version: mustParse(t, "1.10.0")},
		{Name: "1.10.0", Version: mustParse(t, "1.10.0")},
		{Name: "v0.1.0", Version: mustParse(t, "0.1.0")},
	}
	SortTags(tags)
	want := []string{"1.10.0", "v1.10.0", "v1.9.0", "v0.1.0"}
	for i, name := range want {
		if tags[i].Name != name {
			t.Fatalf("tags[%d] = %s, want %s (all: %v)", i, tags[i].Name, name, tags)
		}
	}
}

func TestTagName(t *testing.T) {
	if v, ok := TagName("api-", "api-v2.0.1"); !ok || v.String() != "2.0.1" {
		t.Fatalf("TagName(api-, api-v2.0.1) = %v, %v", v, ok)
	}
	if _, ok := TagName("api-", "web-1.0.0"); ok {
		t.Fatalf("foreign prefix accepted")
	}
	if _, ok := TagName("", "release-candidate"); ok {
		t.Fatalf("non-semver tag accepted")
	}
}

func mustParse(t *testing.T, s string) semver.Version {
	t.Helper()
	v, err := semver.Parse(s)
	if err != nil {
		t.Fatalf("semver.Parse(%q): %v", s, err)
	}
	return v
}
