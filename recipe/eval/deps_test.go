package eval

import (
	"testing"

	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/recipe/stage1"
)

func TestFreeMatchSpecKeysLinksBareVariantAxis(t *testing.T) {
	reqs := stage1.Requirements{
		Host: []stage1.Dependency{{Kind: stage1.DepMatchSpec, Raw: "python"}},
	}
	used := freeMatchSpecKeys(reqs, map[string]any{"python": "3.12"})
	if !used["python"] {
		t.Fatalf("used = %v, want python linked via its bare host dependency", used)
	}
}

func TestFreeMatchSpecKeysIgnoresPinnedSpec(t *testing.T) {
	reqs := stage1.Requirements{
		Host: []stage1.Dependency{{Kind: stage1.DepMatchSpec, Raw: "python >=3.10"}},
	}
	used := freeMatchSpecKeys(reqs, map[string]any{"python": "3.12"})
	if used["python"] {
		t.Fatalf("used = %v, want python NOT linked since the spec already pins a version", used)
	}
}

func TestFreeMatchSpecKeysIgnoresNonAxisName(t *testing.T) {
	reqs := stage1.Requirements{
		Run: []stage1.Dependency{{Kind: stage1.DepMatchSpec, Raw: "zlib"}},
	}
	used := freeMatchSpecKeys(reqs, map[string]any{"python": "3.12"})
	if len(used) != 0 {
		t.Fatalf("used = %v, want empty since zlib is not a variant axis", used)
	}
}

func TestFreeMatchSpecKeysNormalizesDashedName(t *testing.T) {
	reqs := stage1.Requirements{
		Host: []stage1.Dependency{{Kind: stage1.DepMatchSpec, Raw: "r-base"}},
	}
	used := freeMatchSpecKeys(reqs, map[string]any{"r_base": "4.3"})
	if !used["r_base"] {
		t.Fatalf("used = %v, want r_base linked via dash-to-underscore normalization", used)
	}
}

func TestParseDependencyPinMarkerPopulatesAllFields(t *testing.T) {
	rendered := `{"pin_subpackage": {"name":"libfoo","lower_bound":"1.0","upper_bound":"2.0","exact":true,"build":"h1234"}}`
	dep, err := parseDependency(rendered, diag.Span{})
	if err != nil {
		t.Fatalf("parseDependency: %v", err)
	}
	if dep.Pin == nil {
		t.Fatal("expected a pin spec")
	}
	if dep.Pin.Name != "libfoo" || dep.Pin.LowerBound != "1.0" || dep.Pin.UpperBound != "2.0" || !dep.Pin.Exact || dep.Pin.Build != "h1234" {
		t.Fatalf("pin = %+v, want all snake_case fields decoded", dep.Pin)
	}
}
