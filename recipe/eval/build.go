package eval

import (
	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/recipe/stage0"
	"github.com/archlayer/pkgforge/recipe/stage1"
	"github.com/archlayer/pkgforge/template"
)

func evalBuild(eng *template.Engine, ctx *template.Context, b stage0.Build) (stage1.Build, error) {
	out := stage1.Build{
		NoArch:      stage1.NoArchKind(b.NoArch),
		VariantKeys: b.VariantKeys,
	}
	var err error
	if out.Number, err = renderInt(eng, ctx, b.Number); err != nil {
		return out, err
	}
	// build.string is deliberately not rendered here: it may reference
	// `hash`, which only exists once the variant expander has computed it
	// (spec.md §4.3, §4.4 step 5).
	if b.String != nil {
		out.String = &stage1.UnresolvedBuildString{Source: b.String.Source, Span: b.String.Span}
	}

	script, err := evalScript(eng, ctx, b.Script)
	if err != nil {
		return out, err
	}
	out.Script = script

	out.Python = stage1.PythonBuild{
		EntryPoints:            nil,
		UsePythonAppEntrypoint: b.Python.UsePythonAppEntrypoint,
		SkipPycCompilation:     b.Python.SkipPycCompilation,
	}
	for _, ep := range b.Python.EntryPoints {
		if err := validateEntryPoint(ep, diag.Span{}); err != nil {
			return out, err
		}
		out.Python.EntryPoints = append(out.Python.EntryPoints, ep)
	}

	out.DynamicLinking = stage1.DynamicLinking{
		RPaths:              b.DynamicLinking.RPaths,
		BinaryRelocation:    b.DynamicLinking.BinaryRelocation,
		MissingDSOAllowList: b.DynamicLinking.MissingDSOAllowList,
		RPathAllowList:      b.DynamicLinking.RPathAllowList,
	}
	out.PrefixDetection = stage1.PrefixDetection{
		ForceText:   b.PrefixDetection.Force.Text,
		ForceBinary: b.PrefixDetection.Force.Binary,
		Ignore:      b.PrefixDetection.Ignore,
	}
	for _, glob := range out.PrefixDetection.ForceText {
		if err := validateGlob(glob, diag.Span{}); err != nil {
			return out, err
		}
	}
	for _, glob := range out.PrefixDetection.ForceBinary {
		if err := validateGlob(glob, diag.Span{}); err != nil {
			return out, err
		}
	}
	return out, nil
}

func evalScript(eng *template.Engine, ctx *template.Context, s stage0.Script) (stage1.Script, error) {
	out := stage1.Script{Interpreter: s.Interpreter, Secrets: s.Secrets}
	if s.Cwd != nil {
		out.Cwd = *s.Cwd
	}
	if s.Env != nil {
		out.Env = map[string]string{}
		for k, v := range s.Env {
			rendered, err := renderString(eng, ctx, v)
			if err != nil {
				return out, err
			}
			out.Env[k] = rendered
		}
	}
	out.Default = s.Content.Default
	if s.Content.Path != nil {
		out.Path = *s.Content.Path
	}
	cmds, err := resolveValueList(eng, ctx, s.Content.Commands)
	if err != nil {
		return out, err
	}
	out.Commands = cmds
	return out, nil
}
