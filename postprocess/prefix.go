package postprocess

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"

	"github.com/archlayer/pkgforge/diag"
)

// DetectTextPrefix implements spec.md §4.8 "Prefix detection (text)": a
// file is a text prefix file iff its content (sniffed at the first KiB)
// is not binary and contains cfg.Prefix literally. Force lists override
// the sniff: ForceTextPrefix always checks as text, ForceBinaryPrefix
// always checks as binary, Ignore skips detection entirely.
func DetectTextPrefix(root, rel string, cfg Config) (PlaceholderMode, error) {
	if globMatch(cfg.IgnorePrefix, rel) {
		return PlaceholderNone, nil
	}

	full := filepath.Join(root, rel)
	content, err := os.ReadFile(full)
	if err != nil {
		return PlaceholderNone, diag.Wrap(diag.KindPackaging, diag.Span{}, err, "reading %q for prefix detection", rel)
	}

	forceBinary := globMatch(cfg.ForceBinaryPrefix, rel)
	forceText := globMatch(cfg.ForceTextPrefix, rel)

	isBinary := !forceText && (forceBinary || sniffBinary(content))
	if isBinary {
		if bytes.Contains(content, []byte(cfg.Prefix)) {
			return PlaceholderBinary, nil
		}
		return PlaceholderNone, nil
	}
	if bytes.Contains(content, []byte(cfg.Prefix)) {
		return PlaceholderText, nil
	}
	return PlaceholderNone, nil
}

// sniffBinary inspects the first KiB for a null byte, the same heuristic
// git and most packaging tools use to distinguish text from binary.
func sniffBinary(content []byte) bool {
	n := len(content)
	if n > 1024 {
		n = 1024
	}
	return bytes.IndexByte(content[:n], 0) >= 0
}

func globMatch(globs []string, rel string) bool {
	if len(globs) == 0 {
		return false
	}
	m, err := patternmatcher.New(globs)
	if err != nil {
		return false
	}
	ok, _ := m.MatchesUsingParentResults(filepath.ToSlash(rel), patternmatcher.MatchInfo{})
	return ok
}

// RewriteAbsoluteSymlinks rewrites any symlink under root whose target is
// an absolute path starting with cfg.Prefix to a relative path, per
// spec.md §4.8 "Absolute-symlink rewrite".
func RewriteAbsoluteSymlinks(root string, cfg Config) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink == 0 {
			return nil
		}
		target, err := os.Readlink(path)
		if err != nil {
			return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "reading symlink %q", path)
		}
		if !filepath.IsAbs(target) || !strings.HasPrefix(target, cfg.Prefix) {
			return nil
		}
		rel, err := filepath.Rel(filepath.Dir(path), target)
		if err != nil {
			return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "relativizing symlink %q", path)
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		return os.Symlink(rel, path)
	})
}
