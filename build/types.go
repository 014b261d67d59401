// Package build implements the build driver (spec.md §4.7, component H):
// directory layout creation, environment realization via the solver
// boundary, source fetch/patch sequencing, script-execution environment
// assembly, handoff to post-processing and package writing, and build
// summary recording.
package build

import (
	"context"
	"time"

	"github.com/archlayer/pkgforge/archive"
	"github.com/archlayer/pkgforge/channel"
	"github.com/archlayer/pkgforge/postprocess"
	"github.com/archlayer/pkgforge/solver"
	"github.com/archlayer/pkgforge/source"
)

// Config is a build's non-recipe-derived settings: filesystem roots, the
// collaborators the driver calls through, and the packaging choice.
type Config struct {
	WorkRoot      string // parent of per-build directories/ trees
	RecipeDir     string // directory containing the recipe being built
	Prefix        string // realized host prefix (the install prefix)
	BuildPrefix   string // realized build prefix
	BuildPlatform string // host running this build, e.g. "linux-64"

	Cache      *source.Cache
	Solver     solver.Solver
	Script     RunScript
	PyCompiler postprocess.PyCompiler

	PackagingFormat archive.Format
	Timestamp       time.Time
	Channels        []string
	ChannelIndex    solver.ChannelIndex

	// PinRunAsBuild names host dependencies whose run-time match-spec
	// should be pinned to the version actually resolved into the host
	// environment, e.g. `{python: true}` turns a bare `python` run
	// dependency into `python 3.12*` (spec.md §6 "pin_run_as_build").
	PinRunAsBuild map[string]bool

	IncludeRecipeInPackage bool
	ForceColor             bool
}

// RunScript is the external build/test-script execution collaborator
// (spec.md §1 "language bindings... remain external collaborators").
type RunScript interface {
	Run(ctx context.Context, interpreter, script string, env map[string]string, cwd string) error
}

// Summary is the build-record spec.md §4.7 step 10 asks the driver to
// keep ("start/end timestamps, warnings, final artifact path").
type Summary struct {
	Name          string
	Version       string
	BuildString   string
	Started       time.Time
	Finished      time.Time
	Warnings      []string
	ArtifactPath  string
	PublishResult *channel.Package
}

// Layout is the per-build directory tree spec.md §4.7 step 1 describes:
// `directories/{build, host, work, output, recipe}` named deterministically
// from the package name and a millisecond timestamp.
type Layout struct {
	Root      string
	BuildDir  string
	HostDir   string
	WorkDir   string
	OutputDir string
	RecipeDir string
}
