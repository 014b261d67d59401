package eval

import (
	"github.com/archlayer/pkgforge/recipe/stage0"
	"github.com/archlayer/pkgforge/recipe/stage1"
	"github.com/archlayer/pkgforge/template"
)

func testLeaf(eng *template.Engine, ctx *template.Context, v stage0.Value[stage0.Test]) (stage1.Test, bool, error) {
	t := v.Concrete
	out := stage1.Test{}
	if t.Script != nil {
		cmds, err := resolveValueList(eng, ctx, t.Script.Script)
		if err != nil {
			return stage1.Test{}, false, err
		}
		reqs, err := resolveList(t.Script.Requirements, ctx, eng, dependencyLeaf)
		if err != nil {
			return stage1.Test{}, false, err
		}
		out.Script = &stage1.CommandsTest{Script: cmds, Requirements: reqs, Files: t.Script.Files}
	}
	if t.Python != nil {
		out.Python = &stage1.PythonTest{
			Imports:       t.Python.Imports,
			PipCheck:      t.Python.PipCheck,
			PythonVersion: t.Python.PythonVersion,
		}
	}
	if t.Contents != nil {
		out.Contents = &stage1.PackageContentsTest{Files: t.Contents.Files, SiteOnly: t.Contents.SiteOnly}
	}
	return out, true, nil
}

// resolveValueList renders a plain (non-conditional) slice of
// stage0.Value[string], dropping empty-string results.
func resolveValueList(eng *template.Engine, ctx *template.Context, values []stage0.Value[string]) ([]string, error) {
	var out []string
	for _, v := range values {
		s, err := renderString(eng, ctx, v)
		if err != nil {
			return nil, err
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
