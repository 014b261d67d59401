package variant

import (
	"strings"
	"testing"

	"github.com/archlayer/pkgforge/recipe/stage0"
	"github.com/archlayer/pkgforge/recipe/yamlnode"
)

func decode(t *testing.T, dt string) *stage0.Recipe {
	t.Helper()
	n, err := yamlnode.Load("recipe.yaml", []byte(dt))
	if err != nil {
		t.Fatalf("yamlnode.Load: %v", err)
	}
	r, err := stage0.Decode(n)
	if err != nil {
		t.Fatalf("stage0.Decode: %v", err)
	}
	return r
}

func TestExpandSingleVariantNoAxes(t *testing.T) {
	r := decode(t, `
package:
  name: foo
  version: "1.0"
build:
  number: 0
`)
	out, err := Expand(r, Config{}, "linux-64")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d variants, want 1", len(out))
	}
	if !strings.HasPrefix(out[0].BuildString, "h") {
		t.Fatalf("build_string = %q, want h<hash>_0 (empty prefix, no axes used)", out[0].BuildString)
	}
	if !strings.HasSuffix(out[0].BuildString, "_0") {
		t.Fatalf("build_string = %q, want suffix _0", out[0].BuildString)
	}
}

func TestExpandPythonPrefix(t *testing.T) {
	r := decode(t, `
package:
  name: foo
  version: "1.0"
requirements:
  host:
    - python
build:
  number: 0
`)
	out, err := Expand(r, Config{Axes: map[string][]string{"python": {"3.12"}}}, "linux-64")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d variants, want 1", len(out))
	}
	if !strings.HasPrefix(out[0].BuildString, "py312h") {
		t.Fatalf("build_string = %q, want py312h... prefix", out[0].BuildString)
	}
}

func TestExpandUserBuildString(t *testing.T) {
	r := decode(t, `
package:
  name: foo
  version: "1.0"
build:
  number: 0
  string: ${{ hash }}_custom
`)
	out, err := Expand(r, Config{Axes: map[string][]string{"python": {"3.11"}}}, "linux-64")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d variants, want 1", len(out))
	}
	got := out[0].BuildString
	want := out[0].Hash + "_custom"
	if got != want {
		t.Fatalf("build_string = %q, want %q (no py311 prefix; user template wins)", got, want)
	}
}

func TestExpandActualVariantIncludesTargetPlatform(t *testing.T) {
	r := decode(t, `
package:
  name: foo
  version: "1.0"
requirements:
  host:
    - python
build:
  number: 0
`)
	out, err := Expand(r, Config{Axes: map[string][]string{"python": {"3.12"}}}, "linux-64")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d variants, want 1", len(out))
	}
	if out[0].ActualVariant["target_platform"] != "linux-64" {
		t.Fatalf("actual_variant = %v, want target_platform=linux-64", out[0].ActualVariant)
	}
}

func TestExpandActualVariantTargetPlatformNoarch(t *testing.T) {
	r := decode(t, `
package:
  name: foo
  version: "1.0"
build:
  number: 0
  noarch: python
`)
	out, err := Expand(r, Config{}, "linux-64")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d variants, want 1", len(out))
	}
	if out[0].ActualVariant["target_platform"] != "noarch" {
		t.Fatalf("actual_variant = %v, want target_platform=noarch", out[0].ActualVariant)
	}
}

func TestExpandDedupesUnusedAxis(t *testing.T) {
	r := decode(t, `
package:
  name: foo
  version: "1.0"
build:
  number: 0
`)
	out, err := Expand(r, Config{Axes: map[string][]string{"python": {"3.11", "3.12"}}}, "linux-64")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d variants, want 1 (python is never read by this recipe)", len(out))
	}
}
