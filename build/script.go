package build

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/archlayer/pkgforge/diag"
)

// execRunScript is the default [RunScript]: write the script body to a
// temp file under cwd and invoke it with the declared interpreter,
// matching conda-build's own "materialize conda_build.sh/.bat, then exec
// it" approach referenced in spec.md §4.6's always-ignored generated
// files list.
type execRunScript struct{}

// DefaultRunScript returns the subprocess-based script runner.
func DefaultRunScript() RunScript { return execRunScript{} }

func (execRunScript) Run(ctx context.Context, interpreter, script string, env map[string]string, cwd string) error {
	name := "conda_build.sh"
	if interpreter == "" {
		interpreter = "/bin/bash"
	}
	if filepath.Base(interpreter) == "cmd.exe" || filepath.Ext(interpreter) == ".bat" {
		name = "conda_build.bat"
	}
	scriptPath := filepath.Join(cwd, name)
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		return diag.Wrap(diag.KindBuildScript, diag.Span{}, err, "writing build script")
	}
	defer os.Remove(scriptPath)

	cmd := exec.CommandContext(ctx, interpreter, scriptPath)
	cmd.Dir = cwd
	cmd.Env = mergeWithOSEnv(env)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return diag.Wrap(diag.KindBuildScript, diag.Span{}, err, "build script failed:\n%s", out)
	}
	return nil
}

func mergeWithOSEnv(env map[string]string) []string {
	out := os.Environ()
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
