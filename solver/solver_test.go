package solver

import (
	"context"
	"testing"

	"github.com/archlayer/pkgforge/recipe/stage1"
)

func index(records ...Record) ChannelIndex {
	return ChannelIndex{Subdirs: map[string][]Record{"linux-64": records}}
}

func TestSolveExactMatchPicksNewestVersion(t *testing.T) {
	channels := index(
		Record{Name: "zlib", Version: "1.2.11"},
		Record{Name: "zlib", Version: "1.2.13"},
	)
	env, err := Default().Solve(context.Background(), []string{"zlib"}, channels)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(env.Records) != 1 || env.Records[0].Version != "1.2.13" {
		t.Fatalf("got %+v, want zlib 1.2.13", env.Records)
	}
}

func TestSolvePinnedVersion(t *testing.T) {
	channels := index(
		Record{Name: "zlib", Version: "1.2.11"},
		Record{Name: "zlib", Version: "1.2.13"},
	)
	env, err := Default().Solve(context.Background(), []string{"zlib 1.2.11"}, channels)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(env.Records) != 1 || env.Records[0].Version != "1.2.11" {
		t.Fatalf("got %+v, want zlib 1.2.11", env.Records)
	}
}

func TestSolveUnsatisfiedSpecErrors(t *testing.T) {
	if _, err := Default().Solve(context.Background(), []string{"missing"}, index()); err == nil {
		t.Fatal("expected error for unresolved spec")
	}
}

func TestSolveContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Default().Solve(ctx, []string{"zlib"}, index(Record{Name: "zlib", Version: "1.0"})); err == nil {
		t.Fatal("expected context cancellation error")
	}
}

func TestRunExportsOfMapsRawStrings(t *testing.T) {
	re := RunExportsOf(stage1.RunExports{
		Strong: []stage1.Dependency{{Kind: stage1.DepMatchSpec, Raw: "libfoo >=1.0"}},
		Weak:   []stage1.Dependency{{Kind: stage1.DepMatchSpec, Raw: "libbar"}},
	})
	if len(re.Strong) != 1 || re.Strong[0] != "libfoo >=1.0" {
		t.Fatalf("got %+v", re.Strong)
	}
	if len(re.Weak) != 1 || re.Weak[0] != "libbar" {
		t.Fatalf("got %+v", re.Weak)
	}
}
