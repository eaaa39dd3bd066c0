// Package pack builds distributable packages of a component: a copy of its
// locations plus metadata, optionally archived and checksummed.
package pack

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SmartSoftDev/git-info-generator/pkg/component"
	"github.com/SmartSoftDev/git-info-generator/pkg/fsutil"
	"github.com/SmartSoftDev/git-info-generator/pkg/logging"
)

// StepRunner runs package-scripts before the package content is copied.
type StepRunner interface {
	RunSteps(ctx context.Context, list string, steps []string) error
}

// Options controls Build.
type Options struct {
	Type       Type
	StorageDir string // absolute; created when missing
	KeepDir    bool   // keep the package directory next to the archive
	Scripts    StepRunner
	Log        *logging.Logger
	Now        func() time.Time
}

// Result describes the built (or already present) package.
type Result struct {
	Label    string // <slug>_<version>
	Dir      string
	Archive  string // empty for TypeNone
	InfoFile string // <archive>.info.json, empty for TypeNone
	Existed  bool
	Info     map[string]any
}

// Files lists the artifacts worth publishing.
func (r *Result) Files() []string {
	if r.Archive == "" {
		return nil
	}
	return []string{r.Archive, r.InfoFile}
}

// Build packages c at version into opts.StorageDir. A package whose archive
// (or directory, for TypeNone) already exists is left untouched.
func Build(ctx context.Context, c *component.Component, version string, opts Options) (*Result, error) {
	if opts.StorageDir == "" {
		return nil, errors.New("pack: storage directory is required")
	}
	if err := os.MkdirAll(opts.StorageDir, 0o755); err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}
	label := c.Slug() + "_" + version
	res := &Result{Label: label, Dir: filepath.Join(opts.StorageDir, label)}
	if ext := opts.Type.Ext(); ext != "" {
		res.Archive = res.Dir + ext
		res.InfoFile = res.Archive + ".info.json"
		if _, err := os.Stat(res.Archive); err == nil {
			res.Existed = true
			opts.Log.Infof("Version %s already exists here %s", version, res.Archive)
			return res, nil
		}
	} else if _, err := os.Stat(res.Dir); err == nil {
		res.Existed = true
		opts.Log.Infof("Version %s already exists here %s", version, res.Dir)
		return res, nil
	}

	if len(c.PackageScripts) > 0 {
		if opts.Scripts == nil {
			return nil, errors.New("pack: package-scripts declared but no runner given")
		}
		if err := opts.Scripts.RunSteps(ctx, "package-scripts", c.PackageScripts); err != nil {
			return nil, fmt.Errorf("pack: %w", err)
		}
	}

	srcDir := filepath.Join(res.Dir, "src")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}
	for _, loc := range append(append([]component.Location(nil), c.Locations...), c.JustCopy...) {
		if err := copyLocation(c, loc, res.Dir, srcDir, opts.Log); err != nil {
			return nil, err
		}
	}

	actionsDir := filepath.Join(res.Dir, "actions")
	if err := os.MkdirAll(actionsDir, 0o755); err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}
	for _, a := range c.PackageActions {
		src := filepath.Join(c.LocationRoot, filepath.FromSlash(a.Path))
		if err := fsutil.Copy(src, filepath.Join(actionsDir, a.Name), true); err != nil {
			return nil, fmt.Errorf("pack: package action %s: %w", a.Name, err)
		}
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	info := make(map[string]any, len(c.PackageInfo)+3)
	for k, v := range c.PackageInfo {
		info[k] = v
	}
	info["version"] = version
	info["name"] = c.Name
	info["build_ts"] = now().UTC().Unix()
	if err := writeJSON(filepath.Join(srcDir, "info.json"), info); err != nil {
		return nil, err
	}
	res.Info = info

	if res.Archive == "" {
		return res, nil
	}
	opts.Log.Debugf("archiving %s into %s", res.Dir, res.Archive)
	if err := writeArchive(opts.Type, res.Dir, res.Archive); err != nil {
		return nil, fmt.Errorf("pack: archive %s: %w", res.Archive, err)
	}
	sha, md, err := checksums(res.Archive)
	if err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}
	info["sha256sum"] = sha
	info["md5sum"] = md
	info["file_name"] = filepath.Base(res.Archive)
	info["package_type"] = string(opts.Type)
	if err := writeJSON(res.InfoFile, info); err != nil {
		return nil, err
	}
	if !opts.KeepDir {
		if err := os.RemoveAll(res.Dir); err != nil {
			return nil, fmt.Errorf("pack: %w", err)
		}
	}
	return res, nil
}

func copyLocation(c *component.Component, loc component.Location, pkgDir, srcDir string, log *logging.Logger) error {
	src := filepath.Clean(filepath.Join(c.LocationRoot, filepath.FromSlash(loc.Src)))
	rel, err := filepath.Rel(c.LocationRoot, src)
	if err != nil || escapes(rel) {
		return fmt.Errorf("pack: %s is outside location_root %s", loc.Src, c.LocationRoot)
	}
	dst := filepath.Join(srcDir, rel)
	if loc.Dst != "" {
		dst = filepath.Join(srcDir, filepath.FromSlash(loc.Dst))
	}
	if r, err := filepath.Rel(pkgDir, dst); err != nil || escapes(r) {
		return fmt.Errorf("pack: destination %s is outside the package directory", loc.Dst)
	}
	log.Debugf("copy location %s to %s", src, dst)
	if err := fsutil.Copy(src, dst, loc.FollowSymlinks); err != nil {
		return fmt.Errorf("pack: copy %s: %w", loc.Src, err)
	}
	return nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	return fsutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

func checksums(path string) (sha, md string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()
	s, m := sha256.New(), md5.New()
	if _, err := io.Copy(io.MultiWriter(s, m), f); err != nil {
		return "", "", err
	}
	return hex.EncodeToString(s.Sum(nil)), hex.EncodeToString(m.Sum(nil)), nil
}
