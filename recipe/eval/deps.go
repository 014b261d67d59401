package eval

import (
	"encoding/json"
	"strings"

	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/recipe/stage0"
	"github.com/archlayer/pkgforge/recipe/stage1"
	"github.com/archlayer/pkgforge/template"
)

// dependencyLeaf renders a dependency line and parses it either as a JSON
// pin marker (produced by `pin_subpackage`/`pin_compatible`) or as a plain
// match-spec string (spec.md §4.3 "Dependencies").
func dependencyLeaf(eng *template.Engine, ctx *template.Context, v stage0.Value[stage0.DependencySpec]) (stage1.Dependency, bool, error) {
	spec := v.Concrete
	rendered, err := renderString(eng, ctx, spec.Raw)
	if err != nil {
		return stage1.Dependency{}, false, err
	}
	if rendered == "" {
		return stage1.Dependency{}, false, nil
	}
	dep, err := parseDependency(rendered, spec.Span)
	if err != nil {
		return stage1.Dependency{}, false, err
	}
	return dep, true, nil
}

func parseDependency(rendered string, span diag.Span) (stage1.Dependency, error) {
	trimmed := strings.TrimSpace(rendered)
	if strings.HasPrefix(trimmed, "{") {
		var marker map[string]json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &marker); err != nil {
			return stage1.Dependency{}, diag.Wrap(diag.KindEvaluation, span, err, "invalid pin marker %q", rendered)
		}
		for kind, body := range marker {
			var depKind stage1.DependencyKind
			switch kind {
			case "pin_subpackage":
				depKind = stage1.DepPinSubpackage
			case "pin_compatible":
				depKind = stage1.DepPinCompatible
			default:
				return stage1.Dependency{}, diag.New(diag.KindEvaluation, span, "unknown pin marker kind %q", kind)
			}
			var pin stage1.PinSpec
			if err := json.Unmarshal(body, &pin); err != nil {
				return stage1.Dependency{}, diag.Wrap(diag.KindEvaluation, span, err, "invalid pin marker body")
			}
			return stage1.Dependency{Kind: depKind, Pin: &pin, Span: span}, nil
		}
		return stage1.Dependency{}, diag.New(diag.KindEvaluation, span, "empty pin marker")
	}
	if err := validateMatchSpec(trimmed, span); err != nil {
		return stage1.Dependency{}, err
	}
	return stage1.Dependency{Kind: stage1.DepMatchSpec, Raw: trimmed, Span: span}, nil
}

// freeMatchSpecKeys implements spec.md §4.4 step 2's free-match-spec
// linking: a rendered dependency that names a package but pins no
// version/build is variant-linked when its normalized name is itself a
// variant axis (e.g. a bare `python` dependency under a `{python: "3.12"}`
// variant). Pin markers (pin_subpackage/pin_compatible) never reach here
// since they aren't DepMatchSpec.
func freeMatchSpecKeys(reqs stage1.Requirements, variant map[string]any) map[string]bool {
	used := map[string]bool{}
	mark := func(d stage1.Dependency) {
		if d.Kind != stage1.DepMatchSpec {
			return
		}
		if len(strings.Fields(d.Raw)) != 1 {
			return // pins something beyond a bare name
		}
		key := normalizeDepName(d.Raw)
		if _, ok := variant[key]; ok {
			used[key] = true
		}
	}
	for _, d := range reqs.Build {
		mark(d)
	}
	for _, d := range reqs.Host {
		mark(d)
	}
	for _, d := range reqs.Run {
		mark(d)
	}
	for _, d := range reqs.RunConstraints {
		mark(d)
	}
	for _, d := range reqs.RunExports.Strong {
		mark(d)
	}
	for _, d := range reqs.RunExports.Weak {
		mark(d)
	}
	for _, d := range reqs.RunExports.Noarch {
		mark(d)
	}
	for _, d := range reqs.RunExports.StrongConstraints {
		mark(d)
	}
	for _, d := range reqs.RunExports.WeakConstraints {
		mark(d)
	}
	return used
}

// normalizeDepName mirrors variant.normalizeKey (unexported in that
// package, and importing it here would cycle since variant imports eval):
// lowercase, with `-` folded to `_` so `r-base` lines up with the `r_base`
// axis name.
func normalizeDepName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}

// validateMatchSpec performs a light structural check: a match-spec is a
// package name optionally followed by a version/build constraint. Full
// conda match-spec grammar (channel::name[build=*], selectors, etc.) is the
// external solver's concern; this validator only rejects the obviously
// malformed (spec.md §7 "Evaluation errors": "bad match-spec").
func validateMatchSpec(spec string, span diag.Span) error {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return diag.New(diag.KindEvaluation, span, "empty match-spec")
	}
	if !packageNameRe.MatchString(strings.ToLower(strings.SplitN(fields[0], "[", 2)[0])) {
		return diag.New(diag.KindEvaluation, span, "invalid match-spec package name in %q", spec)
	}
	return nil
}
