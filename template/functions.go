package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/archlayer/pkgforge/diag"
)

// compilerDefaults maps a language to its default compiler package names
// per target platform (spec.md §4.2 "compiler(lang)").
var compilerDefaults = map[string]map[string][2]string{
	"linux":   {"c": {"gcc", ""}, "cxx": {"gxx", ""}, "fortran": {"gfortran", ""}},
	"osx":     {"c": {"clang", ""}, "cxx": {"clangxx", ""}, "fortran": {"gfortran", ""}},
	"windows": {"c": {"vs2017", ""}, "cxx": {"vs2017", ""}},
}

func platformFamily(platform string) string {
	switch {
	case strings.HasPrefix(platform, "linux"):
		return "linux"
	case strings.HasPrefix(platform, "osx"):
		return "osx"
	case strings.HasPrefix(platform, "win"):
		return "windows"
	default:
		return "linux"
	}
}

// compilerFn implements `compiler(lang)`: reads `{lang}_compiler` and
// `{lang}_compiler_version` from the variant (recording access), falling
// back to the platform default.
func compilerFn(ctx *Context, lang string) (string, error) {
	family := platformFamily(ctx.Platform)
	name, ok := ctx.Lookup(lang + "_compiler")
	if !ok {
		defaults, ok := compilerDefaults[family][lang]
		if !ok {
			return "", diag.New(diag.KindTemplate, diag.Span{}, "no default compiler for language %q on %q", lang, family)
		}
		name = defaults[0]
	}
	spec := fmt.Sprintf("%s_%s_%s", name, lang, family)
	if version, ok := ctx.Lookup(lang + "_compiler_version"); ok {
		spec = fmt.Sprintf("%s %s", spec, version)
	}
	return spec, nil
}

// stdlibFn implements `stdlib(lang)`, the `{lang}_stdlib[_version]` analog
// of compilerFn.
func stdlibFn(ctx *Context, lang string) (string, error) {
	name, ok := ctx.Lookup(lang + "_stdlib")
	if !ok {
		return "", diag.New(diag.KindTemplate, diag.Span{}, "undefined variant key %q", lang+"_stdlib")
	}
	spec := fmt.Sprintf("%v", name)
	if version, ok := ctx.Lookup(lang + "_stdlib_version"); ok {
		spec = fmt.Sprintf("%s %v", spec, version)
	}
	return spec, nil
}

// cdtFn implements `cdt(name)`: CentOS Devtoolset-style cross package
// names, `{name}-{cdt_name}-{cdt_arch}` (defaults cos6 and x86_64).
func cdtFn(ctx *Context, name string) (string, error) {
	cdtName, ok := ctx.Lookup("cdt_name")
	if !ok {
		cdtName = "cos6"
	}
	cdtArch, ok := ctx.Lookup("cdt_arch")
	if !ok {
		cdtArch = "x86_64"
	}
	return fmt.Sprintf("%s-%v-%v", name, cdtName, cdtArch), nil
}

// pinMarker holds the parsed fields of a `pin_subpackage`/`pin_compatible`
// call. pinMarkerFn emits them as `{"<kind>": {"name", "lower_bound",
// "upper_bound", "exact", "build"}}` with every field present, which the
// dependency decoder in recipe/eval consumes unchanged.
type pinMarker struct {
	Kind  string            `json:"kind"`
	Name  string            `json:"name"`
	Lower string            `json:"lower_bound,omitempty"`
	Upper string            `json:"upper_bound,omitempty"`
	Exact bool              `json:"exact,omitempty"`
	Build string            `json:"build,omitempty"`
	Extra map[string]string `json:"-"`
}

// legacyPinAliases rejects rattler-build's older `min_pin`/`max_pin` names
// with a clear error, per spec.md §4.2.
var legacyPinAliases = map[string]string{
	"min_pin": "lower_bound",
	"max_pin": "upper_bound",
}

func pinMarkerFn(kind, name string, kwargs map[string]string) (string, error) {
	m := pinMarker{Kind: kind, Name: name}
	for k, v := range kwargs {
		if repl, ok := legacyPinAliases[k]; ok {
			return "", diag.New(diag.KindTemplate, diag.Span{}, "%q is a legacy alias; use %q instead", k, repl)
		}
		switch k {
		case "lower_bound":
			m.Lower = v
		case "upper_bound":
			m.Upper = v
		case "exact":
			m.Exact = v == "true"
		case "build":
			m.Build = v
		default:
			return "", diag.New(diag.KindTemplate, diag.Span{}, "unknown pin keyword %q", k)
		}
	}
	out := map[string]any{
		kind: map[string]any{
			"name":        m.Name,
			"lower_bound": m.Lower,
			"upper_bound": m.Upper,
			"exact":       m.Exact,
			"build":       m.Build,
		},
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", diag.Wrap(diag.KindTemplate, diag.Span{}, err, "marshaling pin marker")
	}
	return string(b), nil
}

func pinSubpackageFn(name string, kwargs map[string]string) (string, error) {
	return pinMarkerFn("pin_subpackage", name, kwargs)
}

func pinCompatibleFn(name string, kwargs map[string]string) (string, error) {
	return pinMarkerFn("pin_compatible", name, kwargs)
}

func isLinux(platform string) bool   { return strings.HasPrefix(platform, "linux") }
func isOSX(platform string) bool     { return strings.HasPrefix(platform, "osx") }
func isWindows(platform string) bool { return strings.HasPrefix(platform, "win") }
func isUnix(platform string) bool    { return isLinux(platform) || isOSX(platform) }

func envGet(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}

func envExists(name string) bool {
	_, ok := os.LookupEnv(name)
	return ok
}

// loadFromFile implements `load_from_file(path)`: reads YAML/JSON/TOML/text
// relative to the recipe directory. TOML is deliberately unsupported (no
// TOML library is otherwise exercised by this module) and falls back to
// plain text.
func loadFromFile(ctx *Context, path string) (any, error) {
	if !ctx.Experimental {
		return nil, diag.New(diag.KindTemplate, diag.Span{}, "load_from_file requires the experimental flag")
	}
	full := filepath.Join(ctx.RecipeDir, path)
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, diag.Wrap(diag.KindTemplate, diag.Span{}, err, "load_from_file(%q)", path)
	}
	switch filepath.Ext(path) {
	case ".json":
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, diag.Wrap(diag.KindTemplate, diag.Span{}, err, "load_from_file(%q): invalid json", path)
		}
		return v, nil
	case ".yaml", ".yml":
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, diag.Wrap(diag.KindTemplate, diag.Span{}, err, "load_from_file(%q): invalid yaml", path)
		}
		return v, nil
	default:
		return string(data), nil
	}
}
