package postprocess

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"

	"github.com/archlayer/pkgforge/diag"
)

// PyCompiler invokes a Python interpreter to byte-compile modules,
// spec.md §4.8 "Bytecode generation". The default implementation shells
// out to the interpreter binary; tests substitute a stub.
type PyCompiler interface {
	Compile(ctx context.Context, pythonBin string, files []string) error
}

type execCompiler struct{}

// DefaultPyCompiler invokes `python -m py_compile` per batch, matching the
// single-process-per-batch model spec.md §5 describes ("Bytecode
// compilation may spawn one subprocess per batch of .py files").
func DefaultPyCompiler() PyCompiler { return execCompiler{} }

func (execCompiler) Compile(ctx context.Context, pythonBin string, files []string) error {
	if len(files) == 0 {
		return nil
	}
	args := append([]string{"-m", "py_compile"}, files...)
	cmd := exec.CommandContext(ctx, pythonBin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "compiling bytecode: %s", strings.TrimSpace(string(out)))
	}
	return nil
}

// cacheTag turns "3.11" into "cpython-311", the PEP 3147 __pycache__ tag
// CPython derives from its own version.
func cacheTag(pythonVersion string) string {
	digits := strings.ReplaceAll(pythonVersion, ".", "")
	return "cpython-" + digits
}

// GenerateBytecode compiles every eligible .py file under root to a
// __pycache__ .pyc, skipping bin/Scripts launchers and caller-configured
// globs; it does nothing for noarch-python packages (spec.md §4.8
// "Bytecode generation"). Removing .pyc files whose source is gone is left
// to [PruneOrphanPyc].
func GenerateBytecode(ctx context.Context, root string, cfg Config, pythonBin string, compiler PyCompiler) error {
	if cfg.NoArchPython {
		return nil
	}

	var skip *patternmatcher.PatternMatcher
	patterns := append([]string{"bin/**", "Scripts/**"}, cfg.SkipPycGlobs...)
	skip, err := patternmatcher.New(patterns)
	if err != nil {
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "compiling skip_pyc_compilation globs")
	}

	var batch []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || filepath.Ext(path) != ".py" {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		excluded, mErr := skip.MatchesUsingParentResults(filepath.ToSlash(rel), patternmatcher.MatchInfo{})
		if mErr == nil && excluded {
			return nil
		}
		batch = append(batch, path)
		return nil
	})
	if err != nil {
		return err
	}
	return compiler.Compile(ctx, pythonBin, batch)
}

// PruneOrphanPyc removes compiled .pyc/.pyo files whose originating .py
// was removed by an earlier pass (spec.md §4.8 "Binary forbidden files":
// ".pyo files are always dropped; .pyc without a matching .py is
// dropped").
func PruneOrphanPyc(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		switch filepath.Ext(path) {
		case ".pyo":
			return os.Remove(path)
		case ".pyc":
			src := pycSourcePath(path)
			if _, statErr := os.Stat(src); os.IsNotExist(statErr) {
				return os.Remove(path)
			}
		}
		return nil
	})
}

// pycSourcePath maps a PEP-3147 `__pycache__/foo.cpython-311.pyc` back to
// its `foo.py` source, or an in-place `foo.pyc` for the pre-3147 layout.
func pycSourcePath(pycPath string) string {
	dir := filepath.Dir(pycPath)
	base := filepath.Base(pycPath)
	if filepath.Base(dir) == "__pycache__" {
		name := strings.TrimSuffix(base, ".pyc")
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[:i]
		}
		return filepath.Join(filepath.Dir(dir), name+".py")
	}
	return strings.TrimSuffix(pycPath, ".pyc") + ".py"
}
