package postprocess

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/archlayer/pkgforge/diag"
)

// Process runs the full post-processing pipeline over root: noarch
// repositioning first (since it moves files other passes key off of by
// path), then shebang rewriting, absolute-symlink rewriting, entry-point
// generation, the INSTALLER stamp, menu validation, bytecode generation
// and orphan-.pyc pruning. After these passes the file set is final; the
// paths manifest is then produced by scanning it, computing SHA-256 and
// size per file, and running prefix detection and binary-relocation
// checks to tag placeholders.
func Process(ctx context.Context, root string, cfg Config, entryPoints []string, pythonBin string, compiler PyCompiler) ([]PathEntry, error) {
	if cfg.NoArchPython {
		if err := TransformNoArchPython(root); err != nil {
			return nil, err
		}
	}
	if err := RewriteShebangs(root, cfg); err != nil {
		return nil, err
	}
	if err := RewriteAbsoluteSymlinks(root, cfg); err != nil {
		return nil, err
	}
	if err := GenerateEntryPoints(root, entryPoints, cfg); err != nil {
		return nil, err
	}
	if err := StampInstaller(root); err != nil {
		return nil, err
	}
	if err := ValidateMenus(root); err != nil {
		return nil, err
	}
	if !cfg.NoArchPython {
		if compiler == nil {
			compiler = DefaultPyCompiler()
		}
		if err := GenerateBytecode(ctx, root, cfg, pythonBin, compiler); err != nil {
			return nil, err
		}
	}
	if err := PruneOrphanPyc(root); err != nil {
		return nil, err
	}
	return buildManifest(root, cfg)
}

// buildManifest walks the finalized tree and computes a [PathEntry] per
// file. Directories and symlinks are cheap and recorded while walking;
// regular files need a relocation scan plus a SHA-256 hash, so those are
// fanned out across a bounded pool of goroutines (spec.md §5's
// cooperative-task-runtime model) sized to GOMAXPROCS, preserving output
// order by writing each result to its walk-order slot.
func buildManifest(root string, cfg Config) ([]PathEntry, error) {
	type slot struct {
		entry PathEntry
	}
	var order []slot
	var files []int // indices into order that need the worker pool

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || path == root {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		switch {
		case info.IsDir():
			order = append(order, slot{entry: PathEntry{Path: rel, Type: TypeDirectory}})
			return nil
		case info.Mode()&os.ModeSymlink != 0:
			order = append(order, slot{entry: PathEntry{Path: rel, Type: TypeSoftLink}})
			return nil
		case !info.Mode().IsRegular():
			return nil
		}

		order = append(order, slot{entry: PathEntry{Path: rel, Type: TypeHardLink, SizeBytes: info.Size()}})
		files = append(files, len(order)-1)
		return nil
	})
	if err != nil {
		return nil, err
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				rel := order[idx].entry.Path
				path := filepath.Join(root, filepath.FromSlash(rel))

				entry := order[idx].entry
				relocated, placeholder, err := RelocateBinary(path, cfg)
				if err != nil {
					errs <- err
					return
				}
				if relocated {
					entry.PlaceholderMode = PlaceholderBinary
					entry.Placeholder = placeholder
				} else {
					mode, err := DetectTextPrefix(root, rel, cfg)
					if err != nil {
						errs <- err
						return
					}
					entry.PlaceholderMode = mode
				}
				sum, err := sha256File(path)
				if err != nil {
					errs <- err
					return
				}
				entry.SHA256 = sum
				order[idx].entry = entry
			}
		}()
	}
	for _, idx := range files {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return nil, err
	}

	entries := make([]PathEntry, len(order))
	for i, s := range order {
		entries[i] = s.entry
	}
	return entries, nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", diag.Wrap(diag.KindPackaging, diag.Span{}, err, "hashing %q", path)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", diag.Wrap(diag.KindPackaging, diag.Span{}, err, "hashing %q", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
