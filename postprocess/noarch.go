package postprocess

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/archlayer/pkgforge/diag"
)

var sitePackagesRE = regexp.MustCompile(`^lib/python[0-9]+\.[0-9]+/site-packages/(.*)$`)

// TransformNoArchPython implements spec.md §4.8 "Python-noarch
// transformation": paths under `lib/pythonX.Y/site-packages/` move to
// `site-packages/`, `bin/`/`Scripts/` become `python-scripts/`, and
// `-script.py` Windows-launcher suffixes are stripped. It moves files on
// disk under root and returns only an error.
func TransformNoArchPython(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		newRel, changed := noarchTargetPath(rel)
		if !changed {
			return nil
		}
		dest := filepath.Join(root, filepath.FromSlash(newRel))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.Rename(path, dest); err != nil {
			return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "repositioning noarch path %q", rel)
		}
		return nil
	})
}

// noarchTargetPath computes rel's destination under the noarch
// transformation, returning (newPath, true) iff it should move.
func noarchTargetPath(rel string) (string, bool) {
	if m := sitePackagesRE.FindStringSubmatch(rel); m != nil {
		return "site-packages/" + m[1], true
	}

	var prefix, scripts string
	switch {
	case strings.HasPrefix(rel, "bin/"):
		prefix, scripts = "bin/", strings.TrimPrefix(rel, "bin/")
	case strings.HasPrefix(rel, "Scripts/"):
		prefix, scripts = "Scripts/", strings.TrimPrefix(rel, "Scripts/")
	default:
		return "", false
	}
	_ = prefix
	scripts = strings.TrimSuffix(scripts, "-script.py")
	return "python-scripts/" + scripts, true
}
