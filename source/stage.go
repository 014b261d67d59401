package source

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/recipe/stage1"
)

// Stage extracts/copies a fetched source (the path [Cache.Fetch] returned)
// into destRoot at src's target_dir, caching an archive's extracted form
// at [Cache.ExtractedPath] so a second build reusing the same source
// skips re-extraction (spec.md §4.5 "source cache entry... a sibling
// directory sharing the same key holding archives' extracted form").
func (c *Cache) Stage(ctx context.Context, src stage1.Source, cachedPath, destRoot string) error {
	targetDir := sourceTargetDir(src)
	dest := destRoot
	if targetDir != "" {
		dest = filepath.Join(destRoot, targetDir)
	}

	info, err := os.Stat(cachedPath)
	if err != nil {
		return diag.Wrap(diag.KindSource, diag.Span{}, err, "staging %q", cachedPath)
	}
	if info.IsDir() {
		return copyTree(cachedPath, dest)
	}

	key := filepath.Base(cachedPath)
	extracted := c.ExtractedPath(key)
	if !dirExists(extracted) {
		if err := c.withLock(ctx, key+".extract", func() error {
			if dirExists(extracted) {
				return nil
			}
			tmp := extracted + ".tmp"
			os.RemoveAll(tmp)
			if err := os.MkdirAll(tmp, 0o755); err != nil {
				return err
			}
			if err := extractArchive(cachedPath, tmp); err != nil {
				os.RemoveAll(tmp)
				return err
			}
			return os.Rename(tmp, extracted)
		}); err != nil {
			return err
		}
	}
	return copyTree(extracted, dest)
}

func sourceTargetDir(src stage1.Source) string {
	switch {
	case src.Git != nil:
		return src.Git.TargetDir
	case src.URL != nil:
		return src.URL.TargetDir
	case src.Path != nil:
		return src.Path.TargetDir
	default:
		return ""
	}
}

// extractArchive dispatches on filename extension to the matching
// decoder. Unrecognized extensions are copied through verbatim — a URL
// source need not always name an archive.
func extractArchive(path, destDir string) error {
	name := strings.ToLower(path)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return extractTarWith(path, destDir, gzip.NewReader)
	case strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tbz2"):
		return extractTarWith(path, destDir, func(r io.Reader) (io.Reader, error) { return bzip2.NewReader(r), nil })
	case strings.HasSuffix(name, ".tar.zst"):
		return extractTarWith(path, destDir, func(r io.Reader) (io.Reader, error) {
			zr, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return zr.IOReadCloser(), nil
		})
	case strings.HasSuffix(name, ".tar"):
		return extractTarWith(path, destDir, func(r io.Reader) (io.Reader, error) { return r, nil })
	case strings.HasSuffix(name, ".zip"):
		return extractZip(path, destDir)
	default:
		return copyFile(path, filepath.Join(destDir, filepath.Base(path)), 0o644)
	}
}

func extractTarWith(path, destDir string, wrap func(io.Reader) (io.Reader, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return diag.Wrap(diag.KindSource, diag.Span{}, err, "opening archive %q", path)
	}
	defer f.Close()

	r, err := wrap(f)
	if err != nil {
		return diag.Wrap(diag.KindSource, diag.Span{}, err, "decompressing archive %q", path)
	}
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return diag.Wrap(diag.KindSource, diag.Span{}, err, "reading tar entry in %q", path)
		}
		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeSymlink:
			os.MkdirAll(filepath.Dir(target), 0o755)
			os.Symlink(hdr.Linkname, target)
		default:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode)&0o777|0o200)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		}
	}
}

func extractZip(path, destDir string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return diag.Wrap(diag.KindSource, diag.Span{}, err, "opening zip %q", path)
	}
	defer zr.Close()

	for _, f := range zr.File {
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode()|0o200)
		if err != nil {
			rc.Close()
			return err
		}
		_, copyErr := io.Copy(out, rc)
		rc.Close()
		out.Close()
		if copyErr != nil {
			return copyErr
		}
	}
	return nil
}

// safeJoin rejects archive entries that would escape destDir via `..`
// traversal, the same guard knative-func's pkg/tar applies on extraction.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", diag.New(diag.KindSource, diag.Span{}, "archive entry %q escapes destination", name)
	}
	return target, nil
}

func copyTree(srcDir, destDir string) error {
	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, rel)
		switch {
		case info.IsDir():
			return os.MkdirAll(target, 0o755)
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			os.MkdirAll(filepath.Dir(target), 0o755)
			return os.Symlink(link, target)
		default:
			return copyFile(path, target, info.Mode())
		}
	})
}
