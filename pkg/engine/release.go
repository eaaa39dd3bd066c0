package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/SmartSoftDev/git-info-generator/pkg/changelog"
	"github.com/SmartSoftDev/git-info-generator/pkg/pack"
)

// Changelog lists the commits touching the component since its latest
// reachable tag, or over the whole history when full is set.
func (e *Engine) Changelog(ctx context.Context, target string, full bool) (*changelog.Changelog, error) {
	scope, err := e.scope()
	if err != nil {
		return nil, err
	}
	v, err := e.Version(ctx, target, "")
	if err != nil {
		return nil, err
	}
	req := changelog.Request{
		Component: e.c.Name,
		Version:   v.Spec.String(),
		Paths:     scope,
		To:        refOrHead(target),
	}
	if !full {
		tag, found, err := e.versions.LatestTag(ctx, e.c.TagPrefixes, refOrHead(target))
		if err != nil {
			return nil, err
		}
		if found {
			req.From = string(tag.Ref)
		}
	}
	return changelog.Build(ctx, e.oracle, req)
}

// PackOptions overrides the component's package settings.
type PackOptions struct {
	Type         string // empty uses package-archive-type
	StorageDir   string // empty uses package-storage, then a fresh temp dir
	KeepDir      bool
	ForceVersion string
	Scripts      pack.StepRunner
	Publisher    pack.Publisher // nil skips publishing
}

// Pack builds the component package. It returns nil when the component does
// not declare package.
func (e *Engine) Pack(ctx context.Context, opts PackOptions) (*pack.Result, error) {
	if !e.c.Package {
		e.log.Infof("No packaging declared for %s, nothing to do", e.c.Name)
		return nil, nil
	}
	typeName := opts.Type
	if typeName == "" {
		typeName = e.c.PackageArchiveType
	}
	typ, err := pack.ParseType(typeName)
	if err != nil {
		return nil, err
	}

	storage := opts.StorageDir
	if storage == "" {
		storage = e.c.PackageStorage
	}
	if storage == "" {
		if storage, err = os.MkdirTemp("", "gig_"); err != nil {
			return nil, err
		}
	} else if !filepath.IsAbs(storage) {
		storage = filepath.Join(e.c.Dir, storage)
	}
	e.log.Debugf("package storage: %s", storage)

	v, err := e.Version(ctx, "HEAD", opts.ForceVersion)
	if err != nil {
		return nil, err
	}
	res, err := pack.Build(ctx, e.c, v.Spec.String(), pack.Options{
		Type:       typ,
		StorageDir: storage,
		KeepDir:    opts.KeepDir,
		Scripts:    opts.Scripts,
		Log:        e.log,
		Now:        e.now,
	})
	if err != nil {
		return nil, err
	}
	if opts.Publisher != nil && len(res.Files()) > 0 {
		if err := opts.Publisher.Publish(ctx, res.Files()); err != nil {
			return nil, err
		}
		e.log.Infof("Published %s", filepath.Base(res.Archive))
	}
	return res, nil
}
