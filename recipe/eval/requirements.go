package eval

import (
	"github.com/archlayer/pkgforge/recipe/stage0"
	"github.com/archlayer/pkgforge/recipe/stage1"
	"github.com/archlayer/pkgforge/template"
)

func evalRequirements(eng *template.Engine, ctx *template.Context, r stage0.Requirements) (stage1.Requirements, error) {
	var out stage1.Requirements
	var err error
	if out.Build, err = resolveList(r.Build, ctx, eng, dependencyLeaf); err != nil {
		return out, err
	}
	if out.Host, err = resolveList(r.Host, ctx, eng, dependencyLeaf); err != nil {
		return out, err
	}
	if out.Run, err = resolveList(r.Run, ctx, eng, dependencyLeaf); err != nil {
		return out, err
	}
	if out.RunConstraints, err = resolveList(r.RunConstraints, ctx, eng, dependencyLeaf); err != nil {
		return out, err
	}
	if out.RunExports.Strong, err = resolveList(r.RunExports.Strong, ctx, eng, dependencyLeaf); err != nil {
		return out, err
	}
	if out.RunExports.Weak, err = resolveList(r.RunExports.Weak, ctx, eng, dependencyLeaf); err != nil {
		return out, err
	}
	if out.RunExports.Noarch, err = resolveList(r.RunExports.Noarch, ctx, eng, dependencyLeaf); err != nil {
		return out, err
	}
	if out.RunExports.StrongConstraints, err = resolveList(r.RunExports.StrongConstraints, ctx, eng, dependencyLeaf); err != nil {
		return out, err
	}
	if out.RunExports.WeakConstraints, err = resolveList(r.RunExports.WeakConstraints, ctx, eng, dependencyLeaf); err != nil {
		return out, err
	}
	return out, nil
}
