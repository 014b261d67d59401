package build

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/archlayer/pkgforge/diag"
)

// NewLayout creates `directories/{build, host, work, output, recipe}`
// under cfg.WorkRoot with a deterministic name embedding the package name
// and a millisecond timestamp (spec.md §4.7 step 1).
func NewLayout(cfg Config, name string, now time.Time) (Layout, error) {
	dirName := fmt.Sprintf("%s_%d", name, now.UnixMilli())
	root := filepath.Join(cfg.WorkRoot, "directories", dirName)

	l := Layout{
		Root:      root,
		BuildDir:  filepath.Join(root, "build"),
		HostDir:   filepath.Join(root, "host"),
		WorkDir:   filepath.Join(root, "work"),
		OutputDir: filepath.Join(root, "output"),
		RecipeDir: filepath.Join(root, "recipe"),
	}
	for _, d := range []string{l.BuildDir, l.HostDir, l.WorkDir, l.OutputDir, l.RecipeDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return Layout{}, diag.Wrap(diag.KindBuildScript, diag.Span{}, err, "creating build directory %q", d)
		}
	}
	return l, nil
}
