package stage0

import (
	"testing"

	"github.com/archlayer/pkgforge/recipe/yamlnode"
)

func decodeYAML(t *testing.T, dt string) *Recipe {
	t.Helper()
	n, err := yamlnode.Load("recipe.yaml", []byte(dt))
	if err != nil {
		t.Fatalf("yamlnode.Load: %v", err)
	}
	r, err := Decode(n)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return r
}

func TestDecodePackageNameVersion(t *testing.T) {
	r := decodeYAML(t, `
package:
  name: zlib
  version: 1.3.1
`)
	if r.Package.Name.Concrete == nil || *r.Package.Name.Concrete != "zlib" {
		t.Fatalf("package.name = %+v", r.Package.Name)
	}
	if r.Package.Version.Concrete == nil || *r.Package.Version.Concrete != "1.3.1" {
		t.Fatalf("package.version = %+v", r.Package.Version)
	}
}

func TestDecodeTemplatedVersion(t *testing.T) {
	r := decodeYAML(t, `
package:
  name: zlib
  version: ${{ version }}
`)
	if !r.Package.Version.IsTemplate() {
		t.Fatalf("expected version to remain a template, got %+v", r.Package.Version)
	}
	if r.Package.Version.Tmpl.Source != "${{ version }}" {
		t.Fatalf("template source = %q", r.Package.Version.Tmpl.Source)
	}
}

func TestDecodeMissingPackageName(t *testing.T) {
	_, err := Decode(mustNode(t, `
package:
  version: "1.0"
`))
	if err == nil {
		t.Fatal("expected error for missing package.name")
	}
}

func TestDecodeUnknownTopLevelKey(t *testing.T) {
	_, err := Decode(mustNode(t, `
package:
  name: foo
  version: "1.0"
bogus: true
`))
	if err == nil {
		t.Fatal("expected error for unknown top-level key")
	}
}

func TestDecodeConditionalSource(t *testing.T) {
	r := decodeYAML(t, `
package:
  name: foo
  version: "1.0"
source:
  if: unix
  then:
    - url: https://example.org/foo.tar.gz
      sha256: abc123
  else:
    - url: https://example.org/foo.zip
      sha256: def456
`)
	if len(r.Source) != 1 || r.Source[0].Cond == nil {
		t.Fatalf("expected a single conditional source item, got %+v", r.Source)
	}
	cond := r.Source[0].Cond
	if cond.Cond != "unix" {
		t.Fatalf("cond = %q", cond.Cond)
	}
	if len(cond.Then) != 1 || cond.Then[0].Value.Concrete.URL == nil {
		t.Fatalf("then branch = %+v", cond.Then)
	}
	if len(cond.Else) != 1 || cond.Else[0].Value.Concrete.URL == nil {
		t.Fatalf("else branch = %+v", cond.Else)
	}
}

func TestDecodeGitSource(t *testing.T) {
	r := decodeYAML(t, `
package:
  name: foo
  version: "1.0"
source:
  - git: https://example.org/foo.git
    tag: v1.0.0
    depth: 1
`)
	if len(r.Source) != 1 || r.Source[0].Value == nil {
		t.Fatalf("source = %+v", r.Source)
	}
	g := r.Source[0].Value.Concrete.Git
	if g == nil {
		t.Fatal("expected git source")
	}
	if g.Tag == nil || *g.Tag.Concrete != "v1.0.0" {
		t.Fatalf("tag = %+v", g.Tag)
	}
	if g.Depth == nil || *g.Depth.Concrete != 1 {
		t.Fatalf("depth = %+v", g.Depth)
	}
}

func TestDecodeRequirements(t *testing.T) {
	r := decodeYAML(t, `
package:
  name: foo
  version: "1.0"
requirements:
  build:
    - ${{ compiler('c') }}
  host:
    - openssl
  run:
    - openssl
`)
	if len(r.Requirements.Build) != 1 {
		t.Fatalf("build requirements = %+v", r.Requirements.Build)
	}
	if len(r.Requirements.Host) != 1 || r.Requirements.Host[0].Value.Concrete.Raw.Concrete == nil {
		t.Fatalf("host requirements = %+v", r.Requirements.Host)
	}
}

func TestDecodeBuildNumberAndString(t *testing.T) {
	r := decodeYAML(t, `
package:
  name: foo
  version: "1.0"
build:
  number: 3
  string: py${{ py }}_${{ hash }}_${{ PKG_BUILDNUM }}
  noarch: python
`)
	if r.Build.Number.Concrete == nil || *r.Build.Number.Concrete != 3 {
		t.Fatalf("build.number = %+v", r.Build.Number)
	}
	if r.Build.String == nil {
		t.Fatal("expected deferred build.string template")
	}
	if r.Build.NoArch != NoArchPython {
		t.Fatalf("noarch = %v", r.Build.NoArch)
	}
}

func TestDecodeDuplicateKey(t *testing.T) {
	_, err := yamlnode.Load("recipe.yaml", []byte(`
package:
  name: foo
  name: bar
`))
	if err == nil {
		t.Fatal("expected duplicate-key error")
	}
}

func mustNode(t *testing.T, dt string) *yamlnode.Node {
	t.Helper()
	n, err := yamlnode.Load("recipe.yaml", []byte(dt))
	if err != nil {
		t.Fatalf("yamlnode.Load: %v", err)
	}
	return n
}
