package pathset

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func newTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(f), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return root
}

func TestResolveNormalizesAndDeduplicates(t *testing.T) {
	repo := newTree(t, "svc/api/main.go", "svc/api/go.mod", "svc/shared/util.go", "README.md")
	r := &Resolver{RepoRoot: repo, Mode: Strict}

	got, warnings, err := r.Resolve(filepath.Join(repo, "svc"), []string{
		"api",
		"./api/",
		"api//main.go",
		"shared/../api/go.mod",
		"../README.md",
		"shared",
		".",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	want := Set{"svc/api", "svc/api/main.go", "svc/api/go.mod", "README.md", "svc/shared", "svc"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Resolve = %v, want %v", got, want)
	}
}

func TestResolveRelativeRootIsRepoRelative(t *testing.T) {
	repo := newTree(t, "svc/api/main.go")
	r := &Resolver{RepoRoot: repo}
	got, _, err := r.Resolve("svc", []string{"api"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(got, Set{"svc/api"}) {
		t.Fatalf("Resolve = %v", got)
	}
	all, _, err := r.Resolve("", []string{"."})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(all, Set{"."}) {
		t.Fatalf("repository root resolved to %v, want [.]", all)
	}
}

func TestResolveStrictRejects(t *testing.T) {
	repo := newTree(t, "svc/api/main.go")
	r := &Resolver{RepoRoot: repo, Mode: Strict}

	tests := []struct {
		name     string
		declared string
	}{
		{name: "escapes root", declared: "../../outside"},
		{name: "missing", declared: "api/missing.go"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := r.Resolve(filepath.Join(repo, "svc"), []string{tc.declared})
			if !errors.Is(err, ErrInvalidPath) {
				t.Fatalf("Resolve(%q) error = %v, want ErrInvalidPath", tc.declared, err)
			}
			var pe *PathError
			if !errors.As(err, &pe) || pe.Path != tc.declared {
				t.Fatalf("error %v does not carry the declared path", err)
			}
		})
	}
}

func TestResolveLenientWarns(t *testing.T) {
	repo := newTree(t, "svc/api/main.go")
	r := &Resolver{RepoRoot: repo, Mode: Lenient}

	got, warnings, err := r.Resolve(filepath.Join(repo, "svc"), []string{"../../outside", "api/gone.go", "api"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(got, Set{"svc/api/gone.go", "svc/api"}) {
		t.Fatalf("Resolve = %v", got)
	}
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", warnings)
	}
}

func TestResolveRejectsEmptyEntries(t *testing.T) {
	repo := newTree(t, "svc/api/main.go")
	for _, mode := range []Mode{Strict, Lenient} {
		r := &Resolver{RepoRoot: repo, Mode: mode}
		_, _, err := r.Resolve(repo, []string{"svc", "  "})
		if !errors.Is(err, ErrEmptyPath) || errors.Is(err, ErrInvalidPath) {
			t.Fatalf("mode %d: empty entry error = %v, want ErrEmptyPath only", mode, err)
		}
	}
}

func TestResolveThroughSymlinkedCheckout(t *testing.T) {
	repo := newTree(t, "svc/api/main.go", "README.md")
	// git reports the top level with symlinks resolved.
	top, err := filepath.EvalSymlinks(repo)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	link := filepath.Join(t.TempDir(), "checkout")
	if err := os.Symlink(top, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	r := &Resolver{RepoRoot: top, Mode: Strict}
	got, _, err := r.Resolve(filepath.Join(link, "svc"), []string{"api", "../README.md", filepath.Join(link, "svc", "api", "main.go")})
	if err != nil {
		t.Fatalf("Resolve via symlinked root: %v", err)
	}
	if !reflect.DeepEqual(got, Set{"svc/api", "README.md", "svc/api/main.go"}) {
		t.Fatalf("Resolve = %v", got)
	}

	r = &Resolver{RepoRoot: link, Mode: Strict}
	got, _, err = r.Resolve(filepath.Join(top, "svc"), []string{"api"})
	if err != nil || !reflect.DeepEqual(got, Set{"svc/api"}) {
		t.Fatalf("Resolve via symlinked repo root = %v, %v", got, err)
	}
}

func TestSetKeyIgnoresOrder(t *testing.T) {
	a := Set{"b", "a", "c"}
	b := Set{"c", "b", "a"}
	if a.Key() != b.Key() {
		t.Fatalf("Key depends on order")
	}
	if !a.Contains("c") || a.Contains("d") {
		t.Fatalf("Contains wrong")
	}
	if !reflect.DeepEqual(a, Set{"b", "a", "c"}) {
		t.Fatalf("Sorted mutated the set: %v", a)
	}
}
