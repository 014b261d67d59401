package build

import (
	"os"
	"path/filepath"

	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/patch"
)

// applyPatches reads each patch file named by patchPaths (resolved
// against recipeDir), parses it, and applies every contained [patch.Diff]
// against workDir in order (spec.md §4.7 step 5).
func applyPatches(recipeDir, workDir string, patchPaths []string) error {
	for _, p := range patchPaths {
		full := p
		if !filepath.IsAbs(full) {
			full = filepath.Join(recipeDir, full)
		}
		content, err := os.ReadFile(full)
		if err != nil {
			return diag.Wrap(diag.KindPatch, diag.Span{}, err, "reading patch file %q", p)
		}
		diffs, err := patch.ParseMultiple(string(content), patch.Check)
		if err != nil {
			return diag.Wrap(diag.KindPatch, diag.Span{}, err, "parsing patch file %q", p)
		}
		for _, d := range diffs {
			if err := applyOneDiff(workDir, d); err != nil {
				return diag.Wrap(diag.KindPatch, diag.Span{}, err, "applying patch %q", p)
			}
		}
	}
	return nil
}

func applyOneDiff(workDir string, d patch.Diff) error {
	switch d.Status {
	case patch.StatusDeleted:
		return os.Remove(filepath.Join(workDir, d.OriginalPath))
	case patch.StatusCreated:
		target := filepath.Join(workDir, d.ModifiedPath)
		result, err := patch.Apply(d, nil, patch.FuzzyConfig{})
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, result, 0o644)
	default:
		target := filepath.Join(workDir, d.OriginalPath)
		original, err := os.ReadFile(target)
		if err != nil {
			return err
		}
		result, err := patch.Apply(d, original, patch.FuzzyConfig{MaxFuzz: 2})
		if err != nil {
			return err
		}
		newTarget := target
		if d.ModifiedPath != "" && d.ModifiedPath != d.OriginalPath {
			newTarget = filepath.Join(workDir, d.ModifiedPath)
			os.Remove(target)
		}
		if err := os.MkdirAll(filepath.Dir(newTarget), 0o755); err != nil {
			return err
		}
		return os.WriteFile(newTarget, result, 0o644)
	}
}
