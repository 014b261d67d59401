package build

import (
	"runtime"

	"github.com/archlayer/pkgforge/recipe/stage1"
)

// ScriptEnv assembles the script-execution environment spec.md §4.7 step 6
// describes: computed defaults, platform-specific vars, color-forcing vars,
// CONDA_BUILD_CROSS_COMPILATION, and finally recipe-provided vars, layered
// in that order so recipe-provided values can override a computed default
// but not vice versa.
func ScriptEnv(rv recipeInputs, layout Layout, cfg Config, crossCompiling bool) map[string]string {
	env := map[string]string{}

	for k, v := range computedDefaults(rv, layout, cfg) {
		env[k] = v
	}
	for k, v := range platformVars(cfg) {
		env[k] = v
	}
	if cfg.ForceColor {
		env["FORCE_COLOR"] = "1"
		env["CLICOLOR_FORCE"] = "1"
	}
	if crossCompiling {
		env["CONDA_BUILD_CROSS_COMPILATION"] = "1"
	}
	for k, v := range rv.Script.Env {
		env[k] = v
	}
	return env
}

// recipeInputs is the subset of a rendered recipe ScriptEnv needs; kept
// narrow so this file doesn't need the full stage1.Recipe.
type recipeInputs struct {
	Name    string
	Version string
	Script  stage1.Script
	Variant map[string]string
}

func computedDefaults(rv recipeInputs, layout Layout, cfg Config) map[string]string {
	env := map[string]string{
		"PREFIX":       cfg.Prefix,
		"BUILD_PREFIX": cfg.BuildPrefix,
		"SRC_DIR":      layout.WorkDir,
		"PKG_NAME":     rv.Name,
		"PKG_VERSION":  rv.Version,
		"RECIPE_DIR":   layout.RecipeDir,
	}
	if v, ok := rv.Variant["python"]; ok {
		env["PY_VER"] = v
		if cfg.BuildPlatform != "" {
			env["SP_DIR"] = cfg.Prefix + "/lib/python" + v + "/site-packages"
			env["STDLIB_DIR"] = cfg.Prefix + "/lib/python" + v
		}
	}
	if v, ok := rv.Variant["numpy"]; ok {
		env["NPY_VER"] = v
	}
	if v, ok := rv.Variant["r_base"]; ok {
		env["R_VER"] = v
	}
	return env
}

// platformVars layers in the platform-specific variables spec.md §4.7
// step 6 names: macOS SDK, Windows MSVC, Linux sysroot.
func platformVars(cfg Config) map[string]string {
	env := map[string]string{}
	switch runtime.GOOS {
	case "darwin":
		env["MACOSX_DEPLOYMENT_TARGET"] = "10.9"
	case "windows":
		env["VSCMD_ARG_TGT_ARCH"] = "x64"
	case "linux":
		env["CONDA_BUILD_SYSROOT"] = cfg.BuildPrefix
	}
	return env
}
