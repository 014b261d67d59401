package source

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"

	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/recipe/stage1"
)

// copyFilteredTree materializes a directory path source into its own cache
// entry, honoring `filter` globs and `use_gitignore` (spec.md §4.5 "path
// sources").
func (c *Cache) copyFilteredTree(srcDir string, p *stage1.PathSource) (string, error) {
	key := Key(filepath.Base(srcDir), dirDigest(srcDir, p))
	dest := c.EntryPath(key)
	if dirExists(dest) {
		return dest, nil
	}

	patterns := append([]string{}, p.Filter...)
	if p.UseGitignore {
		if extra, err := readGitignore(srcDir); err == nil {
			patterns = append(patterns, extra...)
		}
	}

	var matcher *patternmatcher.PatternMatcher
	if len(patterns) > 0 {
		m, err := patternmatcher.New(patterns)
		if err != nil {
			return "", diag.Wrap(diag.KindSource, diag.Span{}, err, "compiling path source filter")
		}
		matcher = m
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", diag.Wrap(diag.KindSource, diag.Span{}, err, "preparing cache entry %q", key)
	}

	err := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil || rel == "." {
			return err
		}
		if matcher != nil {
			excluded, err := matcher.MatchesUsingParentResults(filepath.ToSlash(rel), patternmatcher.MatchInfo{})
			if err != nil {
				return err
			}
			if excluded {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target, info.Mode())
	})
	if err != nil {
		os.RemoveAll(dest)
		return "", diag.Wrap(diag.KindSource, diag.Span{}, err, "copying path source %q", srcDir)
	}
	return dest, nil
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func readGitignore(dir string) ([]string, error) {
	f, err := os.Open(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ignorefile.ReadAll(f)
}

func dirDigest(dir string, p *stage1.PathSource) string {
	h := strings.Join(append([]string{dir}, p.Filter...), "|")
	sum := sha256.Sum256([]byte(h))
	return hex.EncodeToString(sum[:])
}
