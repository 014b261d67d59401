package eval

import (
	"github.com/archlayer/pkgforge/recipe/stage0"
	"github.com/archlayer/pkgforge/template"
)

// leafFunc renders a single non-conditional Item[T] to zero or one T. ok is
// false when the rendering should be dropped from the enclosing list, e.g.
// an empty-string template in a `source:`/`run:` position (spec.md §4.3:
// "Empty-string renderings in list contexts are dropped").
type leafFunc[T any] func(eng *template.Engine, ctx *template.Context, v stage0.Value[T]) (T, bool, error)

// resolveList flattens a [stage0.ConditionalList] against ctx: conditionals
// are resolved by evaluating their `if` expression and recursing into the
// matching branch, which itself may be arbitrarily nested.
func resolveList[T any](items stage0.ConditionalList[T], ctx *template.Context, eng *template.Engine, leaf leafFunc[T]) ([]T, error) {
	var out []T
	for _, item := range items {
		if item.Cond != nil {
			truthy, err := evalCond(eng, ctx, item.Cond.Cond)
			if err != nil {
				return nil, err
			}
			branch := item.Cond.Else
			if truthy {
				branch = item.Cond.Then
			}
			resolved, err := resolveList(branch, ctx, eng, leaf)
			if err != nil {
				return nil, err
			}
			out = append(out, resolved...)
			continue
		}
		if item.Value == nil {
			continue
		}
		v, ok, err := leaf(eng, ctx, *item.Value)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func evalCond(eng *template.Engine, ctx *template.Context, expr string) (bool, error) {
	v, err := eng.EvalExpr(expr, ctx)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func stringLeaf(eng *template.Engine, ctx *template.Context, v stage0.Value[string]) (string, bool, error) {
	s, err := renderString(eng, ctx, v)
	if err != nil {
		return "", false, err
	}
	return s, s != "", nil
}
