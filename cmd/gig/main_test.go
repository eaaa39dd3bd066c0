package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SmartSoftDev/git-info-generator/pkg/component"
	"github.com/SmartSoftDev/git-info-generator/pkg/pathset"
	"github.com/SmartSoftDev/git-info-generator/pkg/plan"
	"github.com/SmartSoftDev/git-info-generator/pkg/semver"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"cycle", &plan.CycleError{Path: []string{"a", "b", "a"}}, exitCycle},
		{"config", &component.Error{File: "x", Msg: "bad"}, exitConfig},
		{"path", fmt.Errorf("x: %w", pathset.ErrInvalidPath), exitConfig},
		{"unknown action", fmt.Errorf("%w: nope", plan.ErrUnknownAction), exitConfig},
		{"semver", fmt.Errorf("%w: 1.2", semver.ErrInvalid), exitConfig},
		{"quiet", &exitError{code: 1}, 1},
		{"other", errors.New("boom"), exitFailure},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func runGig(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestListWithoutRepository(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "api", ".git_component.yml"), "name: api\n")
	writeFile(t, filepath.Join(root, "web", ".git_component.toml"), "name = \"web\"\n")

	out, errOut, code := runGig(t, "list", root)
	if code != 0 {
		t.Fatalf("list exit %d: %s", code, errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "api") || !strings.Contains(lines[1], "web/.git_component.toml") {
		t.Fatalf("list output:\n%s", out)
	}
}

func TestMissingConfigIsConfigurationError(t *testing.T) {
	_, errOut, code := runGig(t, "version", "-c", t.TempDir())
	if code != exitConfig {
		t.Fatalf("exit %d, want %d (%s)", code, exitConfig, errOut)
	}
	if !strings.HasPrefix(errOut, "FATAL:") {
		t.Fatalf("stderr = %q", errOut)
	}
}

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	full := append([]string{"-c", "user.name=gig", "-c", "user.email=gig@example.com", "-c", "commit.gpgsign=false", "-c", "tag.gpgsign=false"}, args...)
	cmd := exec.Command("git", full...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

func newRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	git(t, dir, "init", "-q")
	writeFile(t, filepath.Join(dir, ".git_component.yml"), `name: svc
git_tag_prefix: svc-v
locations: [src]
scripts:
  build:
    - echo built >> build.log
  test:
    depends: [build]
    run_on_change: [src/test]
    run:
      - echo tested >> test.log
`)
	writeFile(t, filepath.Join(dir, ".gitignore"), "*.log\n")
	writeFile(t, filepath.Join(dir, "src", "main.go"), "package main\n")
	writeFile(t, filepath.Join(dir, "src", "test", "main_test.go"), "package main\n")
	git(t, dir, "add", ".")
	git(t, dir, "commit", "-q", "-m", "init")
	return dir
}

func TestVersionFollowsTags(t *testing.T) {
	dir := newRepo(t)

	out, errOut, code := runGig(t, "version", "-c", dir)
	if code != 0 {
		t.Fatalf("version exit %d: %s", code, errOut)
	}
	short := git(t, dir, "rev-parse", "--short=9", "HEAD")
	if got := strings.TrimSpace(out); got != "0.0.1.1-"+short {
		t.Fatalf("untagged version = %q, want 0.0.1.1-%s", got, short)
	}

	git(t, dir, "tag", "svc-v1.4.0")
	out, _, _ = runGig(t, "version", "-c", dir)
	if got := strings.TrimSpace(out); got != "1.4.0" {
		t.Fatalf("tagged version = %q", got)
	}

	out, _, _ = runGig(t, "next-version", "-c", dir, "--minor")
	if got := strings.TrimSpace(out); got != "1.5.0" {
		t.Fatalf("next minor = %q", got)
	}

	git(t, dir, "tag", "svc-v2.0.0", "HEAD^{tree}")
	out, errOut, code = runGig(t, "version", "-c", dir)
	if got := strings.TrimSpace(out); code != 0 || got != "1.4.0" {
		t.Fatalf("version with a tree tag = %q, exit %d: %s", got, code, errOut)
	}

	_, _, code = runGig(t, "version", "-c", dir, "--force-version", "banana")
	if code != exitConfig {
		t.Fatalf("bad forced version exit = %d", code)
	}
}

func TestChangedQuiet(t *testing.T) {
	dir := newRepo(t)
	base := git(t, dir, "rev-parse", "HEAD")

	if _, errOut, code := runGig(t, "changed", "-q", "-c", dir, base); code != 1 || errOut != "" {
		t.Fatalf("unchanged: exit %d stderr %q", code, errOut)
	}

	writeFile(t, filepath.Join(dir, "src", "main.go"), "package main\n\nfunc main() {}\n")
	git(t, dir, "commit", "-q", "-am", "edit")
	if _, errOut, code := runGig(t, "changed", "-q", "-c", dir, base); code != 0 {
		t.Fatalf("changed: exit %d: %s", code, errOut)
	}
}

func TestRunOnNewVersionRecordsExecution(t *testing.T) {
	dir := newRepo(t)
	store := t.TempDir()

	if _, errOut, code := runGig(t, "run-on-new-version", "-c", dir, "-s", store, "test"); code != 0 {
		t.Fatalf("first run exit %d: %s", code, errOut)
	}
	if _, errOut, code := runGig(t, "run-on-new-version", "-c", dir, "-s", store, "test"); code != 0 {
		t.Fatalf("second run exit %d: %s", code, errOut)
	}
	for _, name := range []string{"build.log", "test.log"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if n := strings.Count(string(data), "\n"); n != 1 {
			t.Fatalf("%s ran %d times, want 1", name, n)
		}
	}

	out, errOut, code := runGig(t, "run-on-new-version", "-c", dir, "-s", store, "-p", "test")
	if code != 0 {
		t.Fatalf("print last exit %d: %s", code, errOut)
	}
	short := git(t, dir, "rev-parse", "--short=9", "HEAD")
	if got := strings.TrimSpace(out); got != "0.0.1.1-"+short {
		t.Fatalf("last version = %q", got)
	}
}

func TestPlanWithBaseline(t *testing.T) {
	dir := newRepo(t)
	base := git(t, dir, "rev-parse", "HEAD")

	out, errOut, code := runGig(t, "plan", "-c", dir, "--baseline", base, "test")
	if code != 0 {
		t.Fatalf("plan exit %d: %s", code, errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "run") || !strings.Contains(lines[0], "build") {
		t.Fatalf("plan:\n%s", out)
	}
	if !strings.HasPrefix(lines[1], "skip") || !strings.Contains(lines[1], "test") {
		t.Fatalf("plan:\n%s", out)
	}
}

func TestSymlinkedCheckout(t *testing.T) {
	dir := newRepo(t)
	link := filepath.Join(t.TempDir(), "checkout")
	if err := os.Symlink(dir, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	direct, errOut, code := runGig(t, "fingerprint", "-c", dir)
	if code != 0 {
		t.Fatalf("fingerprint exit %d: %s", code, errOut)
	}
	linked, errOut, code := runGig(t, "fingerprint", "-c", link)
	if code != 0 {
		t.Fatalf("fingerprint through symlink exit %d: %s", code, errOut)
	}
	if direct != linked {
		t.Fatalf("fingerprints differ: %q vs %q", direct, linked)
	}
}
