// Package solver defines the dependency-resolver boundary (spec.md §1,
// "the dependency resolver itself... treated as an external
// `solve(specs, channels) -> locked_environment`"). It ships a minimal,
// real default implementation — an exact-match resolver with no SAT
// backtracking — so `go build ./...` produces a working tool end to end,
// while callers may substitute a real solver (conda's classic SAT solver,
// a PubGrub implementation, etc.) behind the same interface.
package solver

import (
	"context"

	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/recipe/stage1"
)

// Record is one resolved package: enough for the build driver to realize
// an environment and to compute run-export contributions (spec.md §3
// "Resolved environment").
type Record struct {
	Name          string
	Version       string
	BuildString   string
	Subdir        string
	Depends       []string
	RunExports    RunExportContribution
	RepositoryURL string
}

// RunExportContribution is a resolved record's run_exports, propagated up
// the dependency chain per spec.md §4.7's build→host amendment rule.
type RunExportContribution struct {
	Strong []string
	Weak   []string
}

// Environment is the solver's output: an ordered list of records (spec.md
// §3 "an ordered list of package records plus their run-export
// contributions").
type Environment struct {
	Records []Record
}

// ChannelIndex is the minimal repodata view a [Solver] consumes: for each
// subdir, the set of known package records. A real integration plugs in a
// live repodata gateway here; the default Solver below expects the caller
// to have already narrowed this to the channels named by the recipe.
type ChannelIndex struct {
	Subdirs map[string][]Record // subdir -> all known records in it
}

// Solver resolves a dependency spec list against a channel index into a
// locked [Environment] (spec.md §1's external `solve` collaborator).
type Solver interface {
	Solve(ctx context.Context, specs []string, channels ChannelIndex) (Environment, error)
}

// Default returns the built-in exact-match resolver.
func Default() Solver { return exactMatchSolver{} }

// exactMatchSolver resolves each spec to the newest record whose name
// matches and whose version satisfies a literal "name", "name version", or
// "name ==version" match-spec (no range operators, no SAT backtracking).
// It is intentionally the simplest possible correct resolver for a single,
// already-consistent channel — real dependency conflict resolution is the
// external collaborator's job per spec.md §1's explicit non-goal
// ("Implementing the SAT solver or repodata gateway").
type exactMatchSolver struct{}

func (exactMatchSolver) Solve(ctx context.Context, specs []string, channels ChannelIndex) (Environment, error) {
	var env Environment
	for _, spec := range specs {
		select {
		case <-ctx.Done():
			return Environment{}, ctx.Err()
		default:
		}
		name, version := parseMatchSpec(spec)
		rec, err := bestMatch(name, version, channels)
		if err != nil {
			return Environment{}, err
		}
		env.Records = append(env.Records, rec)
	}
	return env, nil
}

func parseMatchSpec(spec string) (name, version string) {
	for i := 0; i < len(spec); i++ {
		if spec[i] == ' ' {
			return spec[:i], trimEq(spec[i+1:])
		}
	}
	return spec, ""
}

func trimEq(s string) string {
	i := 0
	for i < len(s) && s[i] == '=' {
		i++
	}
	return s[i:]
}

func bestMatch(name, version string, channels ChannelIndex) (Record, error) {
	var best *Record
	for _, records := range channels.Subdirs {
		for i := range records {
			r := records[i]
			if r.Name != name {
				continue
			}
			if version != "" && r.Version != version {
				continue
			}
			if best == nil || r.Version > best.Version {
				rc := r
				best = &rc
			}
		}
	}
	if best == nil {
		return Record{}, diag.New(diag.KindSolver, diag.Span{}, "no package satisfies %q", name)
	}
	return *best, nil
}

// RunExportsOf maps a rendered recipe's requirements.run_exports section
// into the contribution shape the solver propagates (used by the build
// driver when amending host deps with the build env's strong/weak
// run-exports, spec.md §4.7 step 3).
func RunExportsOf(re stage1.RunExports) RunExportContribution {
	strong := make([]string, 0, len(re.Strong))
	for _, d := range re.Strong {
		strong = append(strong, d.Raw)
	}
	weak := make([]string, 0, len(re.Weak))
	for _, d := range re.Weak {
		weak = append(weak, d.Raw)
	}
	return RunExportContribution{Strong: strong, Weak: weak}
}
