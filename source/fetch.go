package source

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/recipe/stage1"
)

// Info records the verbatim resolved source for `.source_info.json`
// (spec.md §6).
type Info struct {
	RecipePath string          `json:"recipe_path"`
	SourceDir  string          `json:"source_cache"`
	Sources    []stage1.Source `json:"sources"`
}

// Fetch resolves src into the cache, returning the cached artifact's path.
// Corresponds to spec.md §4.5's `fetch(source, cache_root, recipe_dir) →
// (cached_path, source_info)`.
func (c *Cache) Fetch(ctx context.Context, src stage1.Source, recipeDir string) (string, error) {
	switch {
	case src.URL != nil:
		return c.fetchURL(ctx, src.URL)
	case src.Git != nil:
		return c.fetchGit(ctx, src.Git)
	case src.Path != nil:
		return c.fetchPath(src.Path, recipeDir)
	default:
		return "", diag.New(diag.KindSource, src.Span, "source has no git/url/path set")
	}
}

func (c *Cache) fetchURL(ctx context.Context, u *stage1.URLSource) (string, error) {
	if len(u.URLs) == 0 {
		return "", diag.New(diag.KindSource, diag.Span{}, "url source has no mirrors")
	}

	filename := u.FileName
	if filename == "" {
		filename = filepath.Base(u.URLs[0])
	}

	var lastErr error
	for _, url := range u.URLs {
		path, err := c.downloadOnce(ctx, url, filename, u)
		if err == nil {
			return path, nil
		}
		lastErr = err
	}
	return "", diag.Wrap(diag.KindSource, diag.Span{}, lastErr, "all mirrors failed")
}

func (c *Cache) downloadOnce(ctx context.Context, url, filename string, u *stage1.URLSource) (string, error) {
	body, err := c.Fetcher.Get(ctx, url)
	if err != nil {
		return "", err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(c.Root, ".download-*")
	if err != nil {
		return "", diag.Wrap(diag.KindSource, diag.Span{}, err, "creating temp download file")
	}
	defer os.Remove(tmp.Name())

	sum256 := sha256.New()
	sumMD5 := md5.New()
	if _, err := io.Copy(io.MultiWriter(tmp, sum256, sumMD5), body); err != nil {
		tmp.Close()
		return "", diag.Wrap(diag.KindSource, diag.Span{}, err, "downloading %q", url)
	}
	tmp.Close()

	gotSHA256 := hex.EncodeToString(sum256.Sum(nil))
	gotMD5 := hex.EncodeToString(sumMD5.Sum(nil))

	if u.SHA256 != "" && gotSHA256 != u.SHA256 {
		return "", diag.New(diag.KindSource, diag.Span{},
			"checksum mismatch for %q: expected sha256 %s, got %s", url, u.SHA256, gotSHA256)
	}
	if u.MD5 != "" && gotMD5 != u.MD5 {
		return "", diag.New(diag.KindSource, diag.Span{},
			"checksum mismatch for %q: expected md5 %s, got %s", url, u.MD5, gotMD5)
	}

	key := Key(filename, gotSHA256)
	dest := c.EntryPath(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", diag.Wrap(diag.KindSource, diag.Span{}, err, "preparing cache entry %q", key)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", diag.Wrap(diag.KindSource, diag.Span{}, err, "placing cache entry %q", key)
	}

	if u.Attestation != nil {
		if err := VerifyAttestation(ctx, dest, u); err != nil {
			os.Remove(dest)
			return "", err
		}
	}
	return dest, nil
}

func (c *Cache) fetchPath(p *stage1.PathSource, recipeDir string) (string, error) {
	full := p.Path
	if !filepath.IsAbs(full) {
		full = filepath.Join(recipeDir, full)
	}
	info, err := os.Stat(full)
	if err != nil {
		return "", diag.Wrap(diag.KindSource, diag.Span{}, err, "path source %q not found", full)
	}
	if !info.IsDir() {
		return full, nil
	}
	return c.copyFilteredTree(full, p)
}
