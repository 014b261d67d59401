package eval

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/archlayer/pkgforge/recipe/stage0"
	"github.com/archlayer/pkgforge/recipe/yamlnode"
	"github.com/archlayer/pkgforge/template"
)

var sha256Zeros = strings.Repeat("0", 64)

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

func TestEvaluateIsDeterministic(t *testing.T) {
	r := decode(t, `
package:
  name: zlib
  version: ${{ version }}
context:
  version: "1.3.1"
requirements:
  host:
    - ${{ compiler('c') }}
`)
	variant := map[string]any{}
	res1, err := Evaluate(r, variant, "linux-64", template.Semistrict)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	res2, err := Evaluate(r, variant, "linux-64", template.Semistrict)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if diff := cmp.Diff(res1.Recipe, res2.Recipe); diff != "" {
		t.Fatalf("evaluating twice produced different recipes (-first +second):\n%s", diff)
	}
}

func TestEvaluateSimpleExpressionPreservesType(t *testing.T) {
	r := decode(t, `
package:
  name: foo
  version: "1.0"
build:
  number: ${{ build_number }}
`)
	res, err := Evaluate(r, map[string]any{"build_number": int64(7)}, "linux-64", template.Semistrict)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Recipe.Build.Number != 7 {
		t.Fatalf("build.number = %d, want 7", res.Recipe.Build.Number)
	}
}

func TestEvaluateConditionalSourceDropsFalseBranch(t *testing.T) {
	r := decode(t, `
package:
  name: foo
  version: "1.0"
source:
  if: unix
  then:
    - url: https://example.org/foo.tar.gz
      sha256: ` + sha256Zeros + `
  else:
    - url: https://example.org/foo.zip
      sha256: ` + sha256Zeros + `
`)
	res, err := Evaluate(r, map[string]any{"unix": true}, "linux-64", template.Semistrict)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(res.Recipe.Source) != 1 || res.Recipe.Source[0].URL == nil {
		t.Fatalf("source = %+v", res.Recipe.Source)
	}
	if got := res.Recipe.Source[0].URL.URLs[0]; got != "https://example.org/foo.tar.gz" {
		t.Fatalf("resolved url = %q", got)
	}
}

func TestEvaluateDeferredBuildString(t *testing.T) {
	r := decode(t, `
package:
  name: foo
  version: "1.0"
build:
  string: ${{ hash }}_custom
`)
	res, err := Evaluate(r, map[string]any{}, "linux-64", template.Semistrict)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Recipe.Build.String == nil || res.Recipe.Build.String.Source != "${{ hash }}_custom" {
		t.Fatalf("build.string = %+v, want deferred template", res.Recipe.Build.String)
	}
}

func TestEvaluateUsedKeysProjection(t *testing.T) {
	r := decode(t, `
package:
  name: foo
  version: "1.0"
requirements:
  host:
    - python
  run:
    if: with_numpy
    then:
      - numpy
`)
	res, err := Evaluate(r, map[string]any{"with_numpy": true}, "linux-64", template.Semistrict)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !res.UsedKeys["with_numpy"] {
		t.Fatalf("expected with_numpy in used keys, got %v", res.UsedKeys)
	}
	if len(res.Recipe.Requirements.Run) != 1 || res.Recipe.Requirements.Run[0].Raw != "numpy" {
		t.Fatalf("run requirements = %+v", res.Recipe.Requirements.Run)
	}
}
