// Package eval implements the Stage-0 → Stage-1 evaluator (spec.md §4.3,
// component D): it resolves every template and conditional in a
// [stage0.Recipe] against one concrete variant, producing a [stage1.Recipe]
// plus the set of variant keys that evaluation actually touched.
package eval

import (
	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/recipe/stage0"
	"github.com/archlayer/pkgforge/recipe/stage1"
	"github.com/archlayer/pkgforge/template"
)

// Result carries the rendered recipe alongside the variant-tracking
// bookkeeping the expander (component E) needs to dedupe candidates.
type Result struct {
	Recipe *stage1.Recipe
	// UsedKeys is Accessed projected down to keys that were actually part
	// of the input variant (context-only names are excluded), plus the
	// variant keys named by free (unversioned) match-spec dependencies.
	UsedKeys  map[string]bool
	Accessed  map[string]bool
	Undefined map[string]bool
}

// Evaluate renders r against variant for platform, using mode for undefined
// handling. The variant expander calls it with Lenient and keeps that
// probe's result as the final recipe; no second Semistrict pass is made.
func Evaluate(r *stage0.Recipe, variant map[string]any, platform string, mode template.UndefinedMode) (*Result, error) {
	eng := template.NewEngine()
	ctx := template.NewContext(cloneVariant(variant), platform, mode)

	if err := evalContext(eng, ctx, r.Context); err != nil {
		return nil, err
	}

	pkg, err := evalPackage(eng, ctx, r.Package)
	if err != nil {
		return nil, err
	}
	sources, err := resolveList(r.Source, ctx, eng, sourceLeaf)
	if err != nil {
		return nil, err
	}
	build, err := evalBuild(eng, ctx, r.Build)
	if err != nil {
		return nil, err
	}
	reqs, err := evalRequirements(eng, ctx, r.Requirements)
	if err != nil {
		return nil, err
	}
	tests, err := resolveList(r.Tests, ctx, eng, testLeaf)
	if err != nil {
		return nil, err
	}
	about, err := evalAbout(eng, ctx, r.About)
	if err != nil {
		return nil, err
	}

	used := map[string]bool{}
	for k := range ctx.Accessed {
		if _, ok := variant[k]; ok {
			used[k] = true
		}
	}
	for k := range freeMatchSpecKeys(reqs, variant) {
		used[k] = true
	}

	return &Result{
		Recipe: &stage1.Recipe{
			Package:      pkg,
			Source:       sources,
			Build:        build,
			Requirements: reqs,
			Tests:        tests,
			About:        about,
		},
		UsedKeys:  used,
		Accessed:  ctx.Accessed,
		Undefined: ctx.Undefined,
	}, nil
}

func cloneVariant(v map[string]any) map[string]any {
	out := make(map[string]any, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// evalContext renders `context:` entries in declaration order, making each
// one available to the entries that follow and to the rest of the recipe
// (spec.md §4.3: "field-by-field in recipe order so that context: entries
// can refer to earlier ones").
func evalContext(eng *template.Engine, ctx *template.Context, cm stage0.ContextMap) error {
	for _, key := range cm.Keys {
		v := cm.Values[key]
		var rendered string
		var err error
		if v.Tmpl != nil {
			rendered, err = eng.RenderStr(v.Tmpl.Source, ctx)
			if err != nil {
				return err
			}
		} else if v.Concrete != nil {
			rendered = contextVarString(*v.Concrete)
		}
		ctx.Variables[key] = rendered
	}
	return nil
}

func contextVarString(v stage0.ContextVar) string {
	switch {
	case v.String != nil:
		return *v.String
	case v.Bool != nil:
		if *v.Bool {
			return "True"
		}
		return "False"
	case v.Int != nil:
		return itoa(*v.Int)
	}
	return ""
}

func itoa(i int64) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

func evalPackage(eng *template.Engine, ctx *template.Context, p stage0.Package) (stage1.Package, error) {
	name, err := renderString(eng, ctx, p.Name)
	if err != nil {
		return stage1.Package{}, err
	}
	version, err := renderString(eng, ctx, p.Version)
	if err != nil {
		return stage1.Package{}, err
	}
	if err := validatePackageName(name, p.Name.Span); err != nil {
		return stage1.Package{}, err
	}
	if err := validateVersion(version, p.Version.Span); err != nil {
		return stage1.Package{}, err
	}
	return stage1.Package{Name: name, Version: version}, nil
}

func evalAbout(eng *template.Engine, ctx *template.Context, a stage0.About) (stage1.About, error) {
	var out stage1.About
	var err error
	if out.Homepage, err = renderString(eng, ctx, a.Homepage); err != nil {
		return out, err
	}
	if out.License, err = renderString(eng, ctx, a.License); err != nil {
		return out, err
	}
	if out.Summary, err = renderString(eng, ctx, a.Summary); err != nil {
		return out, err
	}
	if out.Description, err = renderString(eng, ctx, a.Description); err != nil {
		return out, err
	}
	if out.DocURL, err = renderString(eng, ctx, a.DocURL); err != nil {
		return out, err
	}
	if out.DevURL, err = renderString(eng, ctx, a.DevURL); err != nil {
		return out, err
	}
	if out.License != "" {
		if err := validateLicenseExpression(out.License, a.License.Span); err != nil {
			return out, err
		}
	}
	licenseFiles, err := resolveList(a.LicenseFile, ctx, eng, stringLeaf)
	if err != nil {
		return out, err
	}
	out.LicenseFile = licenseFiles
	return out, nil
}

// renderString renders a [stage0.Value][string], passing concrete values
// through untouched (spec.md §4.3 "Scalar Value<T>").
func renderString(eng *template.Engine, ctx *template.Context, v stage0.Value[string]) (string, error) {
	if v.Concrete != nil {
		return *v.Concrete, nil
	}
	if v.Tmpl == nil {
		return "", nil
	}
	return eng.RenderStr(v.Tmpl.Source, ctx)
}

func renderBool(eng *template.Engine, ctx *template.Context, v stage0.Value[bool]) (bool, error) {
	if v.Concrete != nil {
		return *v.Concrete, nil
	}
	if v.Tmpl == nil {
		return false, nil
	}
	if expr, ok := template.IsSimpleExpression(v.Tmpl.Source); ok {
		val, err := eng.EvalExpr(expr, ctx)
		if err != nil {
			return false, err
		}
		b, _ := val.(bool)
		return b, nil
	}
	s, err := eng.RenderStr(v.Tmpl.Source, ctx)
	if err != nil {
		return false, err
	}
	return s == "True" || s == "true", nil
}

func renderInt(eng *template.Engine, ctx *template.Context, v stage0.Value[int64]) (int64, error) {
	if v.Concrete != nil {
		return *v.Concrete, nil
	}
	if v.Tmpl == nil {
		return 0, nil
	}
	if expr, ok := template.IsSimpleExpression(v.Tmpl.Source); ok {
		val, err := eng.EvalExpr(expr, ctx)
		if err != nil {
			return 0, err
		}
		switch n := val.(type) {
		case int64:
			return n, nil
		case float64:
			return int64(n), nil
		}
	}
	s, err := eng.RenderStr(v.Tmpl.Source, ctx)
	if err != nil {
		return 0, err
	}
	return parseInt(s, v.Span)
}

func parseInt(s string, span diag.Span) (int64, error) {
	var n int64
	if s == "" {
		return 0, diag.New(diag.KindEvaluation, span, "expected an integer, got empty string")
	}
	neg := false
	i := 0
	if s[0] == '-' {
		neg = true
		i = 1
	}
	if i == len(s) {
		return 0, diag.New(diag.KindEvaluation, span, "invalid integer %q", s)
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, diag.New(diag.KindEvaluation, span, "invalid integer %q", s)
		}
		n = n*10 + int64(s[i]-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}
