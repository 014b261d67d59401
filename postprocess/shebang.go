package postprocess

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/archlayer/pkgforge/diag"
)

// isPythonShebang reports whether line is a shebang pointing at a python/pythonw
// interpreter anywhere under a prefix, e.g. `#!/opt/conda/bin/python3.11`.
func isPythonShebang(line string) bool {
	if !strings.HasPrefix(line, "#!") {
		return false
	}
	target := strings.Fields(strings.TrimPrefix(line, "#!"))
	if len(target) == 0 {
		return false
	}
	base := filepath.Base(target[0])
	return base == "python" || base == "pythonw" || strings.HasPrefix(base, "python3") || strings.HasPrefix(base, "python2")
}

// RewriteShebangs rewrites Python shebangs in every regular file under
// root to point at cfg.Prefix's own interpreter (spec.md §4.8 "Shebang
// rewrite"). Symlinks and non-regular files are left untouched; non-Python
// shebangs are left untouched.
func RewriteShebangs(root string, cfg Config) error {
	if cfg.Platform == "windows" {
		return nil // Windows has no shebang convention to rewrite
	}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}
		return rewriteOneShebang(path, info, cfg)
	})
}

func rewriteOneShebang(path string, info os.FileInfo, cfg Config) error {
	f, err := os.Open(path)
	if err != nil {
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "opening %q for shebang rewrite", path)
	}
	first, err := bufio.NewReader(f).ReadString('\n')
	f.Close()
	if err != nil && first == "" {
		return nil
	}
	line := strings.TrimRight(first, "\n")
	if !isPythonShebang(line) {
		return nil
	}

	isPythonw := strings.Contains(filepath.Base(strings.Fields(strings.TrimPrefix(line, "#!"))[0]), "pythonw")

	var newShebang string
	switch {
	case isPythonw && cfg.UsePythonAppEntrypoint:
		newShebang = "#!/bin/bash " + filepath.Join(cfg.Prefix, "bin", "pythonw")
	default:
		newShebang = "#!" + filepath.Join(cfg.Prefix, "bin", "python")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "reading %q for shebang rewrite", path)
	}
	idx := bytes.IndexByte(content, '\n')
	rest := content
	if idx >= 0 {
		rest = content[idx+1:]
	}
	out := append([]byte(newShebang+"\n"), rest...)
	return os.WriteFile(path, out, info.Mode())
}
