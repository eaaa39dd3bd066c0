package pack

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/SmartSoftDev/git-info-generator/pkg/component"
)

func fixture(t *testing.T) *component.Component {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"svc/main.go":     "package main",
		"svc/lib/util.go": "package lib",
		"conf/app.yml":    "port: 80",
		"README.md":       "readme",
		"hooks/postinst":  "#!/bin/sh",
	}
	for p, content := range files {
		full := filepath.Join(root, filepath.FromSlash(p))
		os.MkdirAll(filepath.Dir(full), 0o755)
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return &component.Component{
		Name:         "my svc",
		Dir:          root,
		LocationRoot: root,
		Locations: []component.Location{
			{Src: "svc", FollowSymlinks: true},
			{Src: "conf/app.yml", Dst: "etc/app.yml", FollowSymlinks: true},
		},
		JustCopy:       []component.Location{{Src: "README.md", FollowSymlinks: true}},
		PackageInfo:    map[string]any{"vendor": "acme"},
		PackageActions: []component.PackageAction{{Name: "postinst", Path: "hooks/postinst"}},
	}
}

var fixedNow = func() time.Time { return time.Unix(1700000000, 0) }

var wantFiles = []string{
	"my-svc_1.0.0/actions/postinst",
	"my-svc_1.0.0/src/README.md",
	"my-svc_1.0.0/src/etc/app.yml",
	"my-svc_1.0.0/src/info.json",
	"my-svc_1.0.0/src/svc/lib/util.go",
	"my-svc_1.0.0/src/svc/main.go",
}

func TestBuildDirectory(t *testing.T) {
	c := fixture(t)
	store := t.TempDir()
	res, err := Build(context.Background(), c, "1.0.0", Options{Type: TypeNone, StorageDir: store, Now: fixedNow})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Archive != "" || res.Files() != nil {
		t.Fatalf("directory package has archive: %+v", res)
	}
	data, err := os.ReadFile(filepath.Join(res.Dir, "src", "info.json"))
	if err != nil {
		t.Fatalf("info.json: %v", err)
	}
	var info map[string]any
	if err := json.Unmarshal(data, &info); err != nil {
		t.Fatalf("info.json: %v", err)
	}
	if info["version"] != "1.0.0" || info["name"] != "my svc" || info["vendor"] != "acme" || info["build_ts"] != float64(1700000000) {
		t.Fatalf("info = %v", info)
	}

	again, err := Build(context.Background(), c, "1.0.0", Options{Type: TypeNone, StorageDir: store})
	if err != nil || !again.Existed {
		t.Fatalf("second build = %+v, %v", again, err)
	}
}

func TestBuildArchives(t *testing.T) {
	for _, typ := range []Type{TypeTGZ, TypeZip, TypeTZST} {
		t.Run(string(typ), func(t *testing.T) {
			c := fixture(t)
			store := t.TempDir()
			res, err := Build(context.Background(), c, "1.0.0", Options{Type: typ, StorageDir: store, Now: fixedNow})
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if _, err := os.Stat(res.Dir); !os.IsNotExist(err) {
				t.Fatalf("package dir not removed: %v", err)
			}
			if got := archiveFiles(t, typ, res.Archive); !equal(got, wantFiles) {
				t.Fatalf("archive files = %v, want %v", got, wantFiles)
			}

			data, err := os.ReadFile(res.InfoFile)
			if err != nil {
				t.Fatalf("info file: %v", err)
			}
			var info map[string]any
			json.Unmarshal(data, &info)
			raw, _ := os.ReadFile(res.Archive)
			sum := sha256.Sum256(raw)
			if info["sha256sum"] != hex.EncodeToString(sum[:]) || info["package_type"] != string(typ) || info["file_name"] != filepath.Base(res.Archive) {
				t.Fatalf("info = %v", info)
			}
			if len(res.Files()) != 2 {
				t.Fatalf("files = %v", res.Files())
			}

			again, err := Build(context.Background(), c, "1.0.0", Options{Type: typ, StorageDir: store})
			if err != nil || !again.Existed {
				t.Fatalf("second build = %+v, %v", again, err)
			}
		})
	}
}

func TestBuildKeepDir(t *testing.T) {
	c := fixture(t)
	res, err := Build(context.Background(), c, "2.0.0", Options{Type: TypeTGZ, StorageDir: t.TempDir(), KeepDir: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := os.Stat(filepath.Join(res.Dir, "src", "svc", "main.go")); err != nil {
		t.Fatalf("kept dir missing content: %v", err)
	}
}

type fakeSteps struct{ ran []string }

func (f *fakeSteps) RunSteps(_ context.Context, list string, steps []string) error {
	f.ran = append(f.ran, steps...)
	if list != "package-scripts" {
		return errors.New("wrong list")
	}
	return nil
}

func TestBuildRunsPackageScripts(t *testing.T) {
	c := fixture(t)
	c.PackageScripts = []string{"make assets"}
	if _, err := Build(context.Background(), c, "1.0.0", Options{Type: TypeNone, StorageDir: t.TempDir()}); err == nil {
		t.Fatalf("expected error without runner")
	}
	steps := &fakeSteps{}
	if _, err := Build(context.Background(), c, "1.0.0", Options{Type: TypeNone, StorageDir: t.TempDir(), Scripts: steps}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(steps.ran) != 1 || steps.ran[0] != "make assets" {
		t.Fatalf("ran = %v", steps.ran)
	}
}

func TestBuildRejectsEscapingPaths(t *testing.T) {
	c := fixture(t)
	c.Locations = []component.Location{{Src: "../outside", FollowSymlinks: true}}
	if _, err := Build(context.Background(), c, "1.0.0", Options{Type: TypeNone, StorageDir: t.TempDir()}); err == nil {
		t.Fatalf("expected error for source outside location root")
	}
	c = fixture(t)
	c.Locations = []component.Location{{Src: "svc", Dst: "../../x", FollowSymlinks: true}}
	if _, err := Build(context.Background(), c, "1.0.0", Options{Type: TypeNone, StorageDir: t.TempDir()}); err == nil {
		t.Fatalf("expected error for destination outside package")
	}
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"": TypeNone, "none": TypeNone, "tgz": TypeTGZ, "zip": TypeZip, "tzst": TypeTZST} {
		got, err := ParseType(in)
		if err != nil || got != want {
			t.Fatalf("ParseType(%q) = %q, %v", in, got, err)
		}
	}
	for _, in := range []string{"deb", "rar"} {
		if _, err := ParseType(in); !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("ParseType(%q) error = %v", in, err)
		}
	}
}

func TestNewS3PublisherValidates(t *testing.T) {
	tests := []S3Config{
		{},
		{Endpoint: "localhost:9000"},
		{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"},
	}
	for _, cfg := range tests {
		if _, err := NewS3Publisher(cfg); err == nil {
			t.Fatalf("NewS3Publisher(%+v) should fail", cfg)
		}
	}
	p, err := NewS3Publisher(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "b", Prefix: "/pkgs/"})
	if err != nil {
		t.Fatalf("NewS3Publisher: %v", err)
	}
	if got := p.Key("/tmp/store/x_1.0.0.tar.gz"); got != "pkgs/x_1.0.0.tar.gz" {
		t.Fatalf("Key = %q", got)
	}
}

func TestS3ConfigFromEnv(t *testing.T) {
	t.Setenv("GIG_S3_ENDPOINT", "")
	if _, ok := S3ConfigFromEnv(); ok {
		t.Fatalf("config without endpoint reported ok")
	}
	t.Setenv("GIG_S3_ENDPOINT", "s3.local:9000")
	t.Setenv("GIG_S3_BUCKET", "pkgs")
	t.Setenv("GIG_S3_USE_SSL", "false")
	cfg, ok := S3ConfigFromEnv()
	if !ok || cfg.Bucket != "pkgs" || cfg.UseSSL {
		t.Fatalf("cfg = %+v ok = %v", cfg, ok)
	}
}

func archiveFiles(t *testing.T, typ Type, path string) []string {
	t.Helper()
	var names []string
	switch typ {
	case TypeZip:
		zr, err := zip.OpenReader(path)
		if err != nil {
			t.Fatalf("open zip: %v", err)
		}
		defer zr.Close()
		for _, f := range zr.File {
			if !f.FileInfo().IsDir() {
				names = append(names, f.Name)
			}
		}
	default:
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer f.Close()
		var r io.Reader
		if typ == TypeTGZ {
			gz, err := gzip.NewReader(f)
			if err != nil {
				t.Fatalf("gzip: %v", err)
			}
			r = gz
		} else {
			dec, err := zstd.NewReader(f)
			if err != nil {
				t.Fatalf("zstd: %v", err)
			}
			defer dec.Close()
			r = dec
		}
		tr := tar.NewReader(r)
		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("tar: %v", err)
			}
			if hdr.Typeflag == tar.TypeReg {
				names = append(names, hdr.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
