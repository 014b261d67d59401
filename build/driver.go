package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/archlayer/pkgforge/channel"
	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/pkgwriter"
	"github.com/archlayer/pkgforge/postprocess"
	"github.com/archlayer/pkgforge/recipe/stage1"
	"github.com/archlayer/pkgforge/solver"
	"github.com/archlayer/pkgforge/variant"
)

// Driver runs the per-variant build pipeline (spec.md §4.7).
type Driver struct {
	Config Config
}

// NewDriver constructs a Driver, filling unset collaborator fields with
// their default implementations so a caller only needs to provide
// filesystem roots and a solver channel index.
func NewDriver(cfg Config) *Driver {
	if cfg.Script == nil {
		cfg.Script = DefaultRunScript()
	}
	if cfg.Solver == nil {
		cfg.Solver = solver.Default()
	}
	if cfg.PyCompiler == nil {
		cfg.PyCompiler = postprocess.DefaultPyCompiler()
	}
	return &Driver{Config: cfg}
}

// Run executes spec.md §4.7's ten steps for one [variant.RenderedVariant],
// returning its build summary.
func (d *Driver) Run(ctx context.Context, rv variant.RenderedVariant) (*Summary, error) {
	cfg := d.Config
	started := cfg.Timestamp
	if started.IsZero() {
		started = time.Now()
	}

	summary := &Summary{
		Name:        rv.Recipe.Package.Name,
		Version:     rv.Recipe.Package.Version,
		BuildString: rv.BuildString,
		Started:     started,
	}

	layout, err := NewLayout(cfg, rv.Recipe.Package.Name, started)
	if err != nil {
		return summary, err
	}

	hostPrefix := cfg.Prefix
	if hostPrefix == "" {
		hostPrefix = layout.HostDir
	}
	buildPrefix := cfg.BuildPrefix
	if buildPrefix == "" {
		buildPrefix = layout.BuildDir
	}

	// Steps 2-3: resolve build/host dependencies and realize environments.
	buildEnv, err := cfg.Solver.Solve(ctx, matchSpecStrings(rv.Recipe.Requirements.Build), cfg.ChannelIndex)
	if err != nil {
		return summary, diag.Wrap(diag.KindSolver, diag.Span{}, err, "resolving build dependencies")
	}
	hostSpecs := append([]string{}, matchSpecStrings(rv.Recipe.Requirements.Host)...)
	hostSpecs = append(hostSpecs, runExportSpecs(buildEnv)...)
	hostEnv, err := cfg.Solver.Solve(ctx, hostSpecs, cfg.ChannelIndex)
	if err != nil {
		return summary, diag.Wrap(diag.KindSolver, diag.Span{}, err, "resolving host dependencies")
	}
	// Realization beyond directory creation is the external collaborator's
	// responsibility; hostEnv's resolved versions are still consulted
	// below to pin pin_run_as_build run dependencies.

	// Step 4-5: fetch sources, stage into work/, apply patches.
	for _, src := range rv.Recipe.Source {
		cachedPath, err := cfg.Cache.Fetch(ctx, src, cfg.RecipeDir)
		if err != nil {
			return summary, err
		}
		if err := cfg.Cache.Stage(ctx, src, cachedPath, layout.WorkDir); err != nil {
			return summary, err
		}
		if err := applyPatches(cfg.RecipeDir, layout.WorkDir, patchesOf(src)); err != nil {
			return summary, err
		}
	}

	// Step 6-7: assemble env, invoke the script collaborator.
	crossCompiling := cfg.BuildPlatform != "" && cfg.BuildPlatform != rv.TargetPlatform
	env := ScriptEnv(recipeInputs{
		Name:    rv.Recipe.Package.Name,
		Version: rv.Recipe.Package.Version,
		Script:  rv.Recipe.Build.Script,
		Variant: rv.ActualVariant,
	}, layout, Config{Prefix: hostPrefix, BuildPrefix: buildPrefix, BuildPlatform: cfg.BuildPlatform, ForceColor: cfg.ForceColor}, crossCompiling)

	script := scriptBody(rv.Recipe.Build.Script)
	if script != "" {
		if err := cfg.Script.Run(ctx, rv.Recipe.Build.Script.Interpreter, script, env, layout.WorkDir); err != nil {
			return summary, err
		}
	}

	// Step 8: collect the host prefix's file set.
	if err := os.MkdirAll(hostPrefix, 0o755); err != nil {
		return summary, diag.Wrap(diag.KindBuildScript, diag.Span{}, err, "preparing host prefix %q", hostPrefix)
	}

	// Step 9: post-process then write the package.
	ppCfg := postprocessConfig(rv, hostPrefix)
	manifest, err := postprocess.Process(ctx, hostPrefix, ppCfg, rv.Recipe.Build.Python.EntryPoints,
		filepath.Join(hostPrefix, "bin", "python"), cfg.PyCompiler)
	if err != nil {
		return summary, err
	}

	artifactPath := filepath.Join(layout.OutputDir, subdirOf(rv.TargetPlatform), "placeholder")
	if err := os.MkdirAll(filepath.Dir(artifactPath), 0o755); err != nil {
		return summary, err
	}
	out, err := os.Create(artifactPath)
	if err != nil {
		return summary, diag.Wrap(diag.KindPackaging, diag.Span{}, err, "creating archive output")
	}

	writeRecipe := *rv.Recipe
	writeRecipe.Requirements.Run = applyPinRunAsBuild(writeRecipe.Requirements.Run, cfg.PinRunAsBuild, hostEnv)
	rv.Recipe = &writeRecipe

	result, err := pkgwriter.Write(out, hostPrefix, rv, manifest, pkgwriter.Options{
		Format:        cfg.PackagingFormat,
		Subdir:        subdirOf(rv.TargetPlatform),
		Timestamp:     cfg.Timestamp,
		IncludeRecipe: cfg.IncludeRecipeInPackage,
		Channels:      cfg.Channels,
	})
	out.Close()
	if err != nil {
		os.Remove(artifactPath)
		return summary, err
	}

	finalPath := filepath.Join(filepath.Dir(artifactPath), result.Filename)
	if err := os.Rename(artifactPath, finalPath); err != nil {
		return summary, diag.Wrap(diag.KindPackaging, diag.Span{}, err, "finalizing archive name")
	}

	summary.Finished = time.Now()
	summary.ArtifactPath = finalPath
	return summary, nil
}

// Publish hands a completed build's artifact to the channel façade, then
// reindexes the affected subdir (spec.md §4.10: "after each successful
// build, the driver re-runs channel indexing... and clears the in-memory
// repodata cache").
func (d *Driver) Publish(ctx context.Context, target channel.Target, summary *Summary, subdir string, opts channel.Options) error {
	data, err := os.ReadFile(summary.ArtifactPath)
	if err != nil {
		return diag.Wrap(diag.KindPublication, diag.Span{}, err, "reading artifact %q", summary.ArtifactPath)
	}
	pkg := channel.Package{
		Filename:    filepath.Base(summary.ArtifactPath),
		Subdir:      subdir,
		Name:        summary.Name,
		Version:     summary.Version,
		BuildString: summary.BuildString,
		Data:        data,
	}
	if err := channel.Publish(ctx, target, []channel.Package{pkg}, opts); err != nil {
		return err
	}
	summary.PublishResult = &pkg
	return nil
}

func matchSpecStrings(deps []stage1.Dependency) []string {
	out := make([]string, 0, len(deps))
	for _, dep := range deps {
		if dep.Kind == stage1.DepMatchSpec {
			out = append(out, dep.Raw)
			continue
		}
		if dep.Pin != nil {
			out = append(out, dep.Pin.Name)
		}
	}
	return out
}

// applyPinRunAsBuild implements pin_run_as_build's version pinning
// (original_source's resolved_dependencies.rs `apply_variant`, spec.md §6
// "pin_run_as_build"): a bare run dependency whose name is configured for
// pinning is rewritten to a match-spec pinned against the version
// actually resolved into the host environment, e.g. `python` against a
// host env containing `python 3.12` becomes `python 3.12*`.
func applyPinRunAsBuild(deps []stage1.Dependency, pins map[string]bool, hostEnv solver.Environment) []stage1.Dependency {
	if len(pins) == 0 {
		return deps
	}
	versions := map[string]string{}
	for _, rec := range hostEnv.Records {
		versions[rec.Name] = rec.Version
	}

	out := make([]stage1.Dependency, len(deps))
	copy(out, deps)
	for i, d := range out {
		if d.Kind != stage1.DepMatchSpec || strings.TrimSpace(d.Raw) == "" {
			continue
		}
		name := strings.Fields(d.Raw)[0]
		if len(strings.Fields(d.Raw)) != 1 || !pins[name] {
			continue
		}
		version, ok := versions[name]
		if !ok || version == "" {
			continue
		}
		out[i].Raw = name + " " + version + "*"
	}
	return out
}

func runExportSpecs(env solver.Environment) []string {
	var out []string
	for _, rec := range env.Records {
		out = append(out, rec.RunExports.Strong...)
		out = append(out, rec.RunExports.Weak...)
	}
	return out
}

func patchesOf(src stage1.Source) []string {
	switch {
	case src.Git != nil:
		return src.Git.Patches
	case src.URL != nil:
		return src.URL.Patches
	case src.Path != nil:
		return src.Path.Patches
	default:
		return nil
	}
}

func scriptBody(s stage1.Script) string {
	if len(s.Commands) == 0 {
		return ""
	}
	return strings.Join(s.Commands, "\n") + "\n"
}

func subdirOf(targetPlatform string) string {
	if targetPlatform == "" {
		return "noarch"
	}
	return targetPlatform
}

func postprocessConfig(rv variant.RenderedVariant, prefix string) postprocess.Config {
	binaryRelocation := true
	if rv.Recipe.Build.DynamicLinking.BinaryRelocation != nil {
		binaryRelocation = *rv.Recipe.Build.DynamicLinking.BinaryRelocation
	}
	platform := "linux"
	switch {
	case strings.HasPrefix(rv.TargetPlatform, "osx"):
		platform = "osx"
	case strings.HasPrefix(rv.TargetPlatform, "win"):
		platform = "windows"
	}
	return postprocess.Config{
		Prefix:                 prefix,
		Platform:               platform,
		NoArchPython:           rv.Recipe.Build.NoArch == stage1.NoArchPython,
		UsePythonAppEntrypoint: rv.Recipe.Build.Python.UsePythonAppEntrypoint,
		BinaryRelocation:       binaryRelocation,
		ForceTextPrefix:        rv.Recipe.Build.PrefixDetection.ForceText,
		ForceBinaryPrefix:      rv.Recipe.Build.PrefixDetection.ForceBinary,
		IgnorePrefix:           rv.Recipe.Build.PrefixDetection.Ignore,
		SkipPycGlobs:           rv.Recipe.Build.Python.SkipPycCompilation,
		PythonVersion:          rv.ActualVariant["python"],
	}
}
