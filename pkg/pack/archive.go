package pack

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// Type is a package archive format.
type Type string

const (
	TypeNone Type = "none" // leave the package directory in place
	TypeTGZ  Type = "tgz"
	TypeZip  Type = "zip"
	TypeTZST Type = "tzst"
	TypeDeb  Type = "deb"
)

// ErrUnsupportedType reports an archive type this build cannot produce.
var ErrUnsupportedType = errors.New("unsupported package type")

// ParseType accepts the configured archive type. Empty means none.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case "":
		return TypeNone, nil
	case TypeNone, TypeTGZ, TypeZip, TypeTZST:
		return t, nil
	case TypeDeb:
		return "", fmt.Errorf("%w: %q needs dpkg-deb, build it with the OS packaging tools", ErrUnsupportedType, s)
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, s)
}

// Ext is the archive file extension, empty for TypeNone.
func (t Type) Ext() string {
	switch t {
	case TypeTGZ:
		return ".tar.gz"
	case TypeZip:
		return ".zip"
	case TypeTZST:
		return ".tar.zst"
	}
	return ""
}

// writeArchive archives dir into out. Entries are named relative to the
// parent of dir, so unpacking recreates dir's base name.
func writeArchive(t Type, dir, out string) (err error) {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(out)
		}
	}()

	switch t {
	case TypeTGZ:
		gz := gzip.NewWriter(f)
		if err := writeTar(gz, dir); err != nil {
			gz.Close()
			return err
		}
		return gz.Close()
	case TypeTZST:
		enc, err := zstd.NewWriter(f)
		if err != nil {
			return err
		}
		if err := writeTar(enc, dir); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	case TypeZip:
		zw := zip.NewWriter(f)
		if err := writeZip(zw, dir); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedType, t)
}

func walkPackage(dir string, fn func(path, name string, info fs.FileInfo) error) error {
	base := filepath.Dir(dir)
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(p, filepath.ToSlash(rel), info)
	})
}

func writeTar(w io.Writer, dir string) error {
	tw := tar.NewWriter(w)
	err := walkPackage(dir, func(p, name string, info fs.FileInfo) error {
		link := ""
		if info.Mode()&fs.ModeSymlink != 0 {
			var err error
			if link, err = os.Readlink(p); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = name
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyInto(tw, p)
	})
	if err != nil {
		tw.Close()
		return err
	}
	return tw.Close()
}

func writeZip(zw *zip.Writer, dir string) error {
	return walkPackage(dir, func(p, name string, info fs.FileInfo) error {
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = name
		if info.IsDir() {
			hdr.Name += "/"
		} else {
			hdr.Method = zip.Deflate
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return err
			}
			_, err = io.WriteString(w, link)
			return err
		case info.Mode().IsRegular():
			return copyInto(w, p)
		}
		return nil
	})
}

func copyInto(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
