package build

import (
	"testing"

	"github.com/archlayer/pkgforge/recipe/stage1"
	"github.com/archlayer/pkgforge/solver"
)

func TestApplyPinRunAsBuildPinsToResolvedVersion(t *testing.T) {
	deps := []stage1.Dependency{{Kind: stage1.DepMatchSpec, Raw: "python"}}
	pins := map[string]bool{"python": true}
	hostEnv := solver.Environment{Records: []solver.Record{{Name: "python", Version: "3.12"}}}

	out := applyPinRunAsBuild(deps, pins, hostEnv)
	if len(out) != 1 || out[0].Raw != "python 3.12*" {
		t.Fatalf("deps = %+v, want python pinned to 3.12*", out)
	}
}

func TestApplyPinRunAsBuildLeavesAlreadyPinnedSpecUntouched(t *testing.T) {
	deps := []stage1.Dependency{{Kind: stage1.DepMatchSpec, Raw: "python >=3.10"}}
	pins := map[string]bool{"python": true}
	hostEnv := solver.Environment{Records: []solver.Record{{Name: "python", Version: "3.12"}}}

	out := applyPinRunAsBuild(deps, pins, hostEnv)
	if out[0].Raw != "python >=3.10" {
		t.Fatalf("deps = %+v, want untouched since the spec already pins a constraint", out)
	}
}

func TestApplyPinRunAsBuildIgnoresUnconfiguredName(t *testing.T) {
	deps := []stage1.Dependency{{Kind: stage1.DepMatchSpec, Raw: "numpy"}}
	pins := map[string]bool{"python": true}
	hostEnv := solver.Environment{Records: []solver.Record{{Name: "numpy", Version: "1.26"}}}

	out := applyPinRunAsBuild(deps, pins, hostEnv)
	if out[0].Raw != "numpy" {
		t.Fatalf("deps = %+v, want numpy untouched since it isn't in pins", out)
	}
}

func TestApplyPinRunAsBuildNoPinsIsNoop(t *testing.T) {
	deps := []stage1.Dependency{{Kind: stage1.DepMatchSpec, Raw: "python"}}
	hostEnv := solver.Environment{Records: []solver.Record{{Name: "python", Version: "3.12"}}}

	out := applyPinRunAsBuild(deps, nil, hostEnv)
	if len(out) != 1 || out[0].Raw != "python" {
		t.Fatalf("deps = %+v, want untouched when no pins are configured", out)
	}
}

func TestApplyPinRunAsBuildMissingHostVersionLeavesSpecUntouched(t *testing.T) {
	deps := []stage1.Dependency{{Kind: stage1.DepMatchSpec, Raw: "python"}}
	pins := map[string]bool{"python": true}
	hostEnv := solver.Environment{}

	out := applyPinRunAsBuild(deps, pins, hostEnv)
	if out[0].Raw != "python" {
		t.Fatalf("deps = %+v, want untouched when host env never resolved python", out)
	}
}
