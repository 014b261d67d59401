package template

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/archlayer/pkgforge/diag"
)

// Engine evaluates templated scalars and boolean/arithmetic expressions
// against a [Context]. It holds no per-recipe state itself; all mutable
// bookkeeping (accessed/undefined keys) lives on the Context passed to each
// call, so one Engine is reused across an entire variant expansion.
type Engine struct{}

// NewEngine constructs an [Engine]. It is stateless, but kept as a type so
// call sites read like the rest of the pipeline's component boundaries.
func NewEngine() *Engine { return &Engine{} }

// RenderStr renders a templated scalar: literal text is copied verbatim,
// `${{ expr }}` substitutions are evaluated and stringified, `{% … %}`
// blocks drive simple if/else/endif control flow, and `#{{ … }}` comments
// are dropped. Every variable name read by an embedded expression is
// recorded on ctx.
func (e *Engine) RenderStr(src string, ctx *Context) (string, error) {
	toks, err := scan(src)
	if err != nil {
		return "", err
	}
	return e.renderTokens(toks, ctx)
}

// renderTokens implements the block-structured subset of Jinja control flow
// this engine supports: `{% if expr %} ... {% else %} ... {% endif %}`,
// non-nested. Anything else in a block tag is rejected as a syntax error.
func (e *Engine) renderTokens(toks []token, ctx *Context) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(toks) {
		tok := toks[i]
		switch tok.kind {
		case tokText:
			b.WriteString(tok.text)
			i++
		case tokComment:
			i++
		case tokSubstitution:
			v, err := e.EvalExpr(tok.text, ctx)
			if err != nil {
				return "", err
			}
			b.WriteString(stringify(v))
			i++
		case tokBlockOpen:
			consumed, rendered, err := e.renderBlock(toks[i:], ctx)
			if err != nil {
				return "", err
			}
			b.WriteString(rendered)
			i += consumed
		}
	}
	return b.String(), nil
}

func (e *Engine) renderBlock(toks []token, ctx *Context) (int, string, error) {
	head := toks[0]
	fields := strings.Fields(head.text)
	if len(fields) == 0 || fields[0] != "if" {
		return 0, "", diag.New(diag.KindTemplate, diag.Span{}, "unsupported block tag %q", head.text)
	}
	cond := strings.TrimSpace(strings.TrimPrefix(head.text, "if"))
	condVal, err := e.EvalExpr(cond, ctx)
	if err != nil {
		return 0, "", err
	}
	truthy, _ := condVal.(bool)

	depth := 1
	elseIdx := -1
	endIdx := -1
	for i := 1; i < len(toks); i++ {
		if toks[i].kind != tokBlockOpen {
			continue
		}
		switch strings.TrimSpace(toks[i].text) {
		case "if":
			depth++
		case "endif":
			depth--
			if depth == 0 {
				endIdx = i
			}
		case "else":
			if depth == 1 && elseIdx == -1 {
				elseIdx = i
			}
		}
		if endIdx != -1 {
			break
		}
	}
	if endIdx == -1 {
		return 0, "", diag.New(diag.KindTemplate, diag.Span{}, "unterminated {%% if %%} block")
	}

	thenEnd := endIdx
	var thenToks, elseToks []token
	if elseIdx != -1 {
		thenEnd = elseIdx
		elseToks = toks[elseIdx+1 : endIdx]
	}
	thenToks = toks[1:thenEnd]

	var rendered string
	if truthy {
		rendered, err = e.renderTokens(thenToks, ctx)
	} else {
		rendered, err = e.renderTokens(elseToks, ctx)
	}
	if err != nil {
		return 0, "", err
	}
	return endIdx + 1, rendered, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// IsSimpleExpression reports whether src is exactly one `${{ expr }}`
// substitution with no surrounding text and no other delimiters, the shape
// spec.md §4.3 calls "typed scalar preservation": such a template is
// evaluated to a native value, not rendered to a string.
func IsSimpleExpression(src string) (string, bool) {
	toks, err := scan(src)
	if err != nil || len(toks) != 1 || toks[0].kind != tokSubstitution {
		return "", false
	}
	return toks[0].text, true
}

// EvalExpr evaluates expr (the contents of a `${{ }}` or `{% if %}`) as a
// boolean/arithmetic/string expression against ctx, via CEL. Every free
// identifier is declared as a dynamically-typed CEL variable populated from
// ctx, so undefined-handling happens at the Go layer rather than failing
// CEL compilation outright.
func (e *Engine) EvalExpr(expr string, ctx *Context) (any, error) {
	idents := freeIdentifiers(expr)
	opts := make([]cel.EnvOption, 0, len(idents)+8)
	activation := map[string]any{}

	for _, name := range idents {
		opts = append(opts, cel.Variable(name, cel.DynType))
		v, ok := ctx.Lookup(name)
		if !ok {
			switch ctx.Mode {
			case Strict:
				return nil, diag.New(diag.KindTemplate, diag.Span{}, "undefined variable %q", name).
					WithSuggestions(diag.Suggest(name, knownKeys(ctx))...)
			case Lenient:
				v = ""
			default: // Semistrict: tolerate only when a same-named function exists
				if !isKnownFunction(name) {
					return nil, diag.New(diag.KindTemplate, diag.Span{}, "undefined variable %q", name).
						WithSuggestions(diag.Suggest(name, knownKeys(ctx))...)
				}
				v = ""
			}
		}
		activation[name] = v
	}
	opts = append(opts, buildFunctions(ctx)...)

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, diag.Wrap(diag.KindTemplate, diag.Span{}, err, "building expression environment")
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, diag.Wrap(diag.KindTemplate, diag.Span{}, iss.Err(), "invalid expression %q", expr)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, diag.Wrap(diag.KindTemplate, diag.Span{}, err, "preparing expression %q", expr)
	}
	out, _, err := prg.Eval(activation)
	if err != nil {
		return nil, diag.Wrap(diag.KindTemplate, diag.Span{}, err, "evaluating expression %q", expr)
	}
	return nativeValue(out), nil
}

func nativeValue(v ref.Val) any {
	switch t := v.(type) {
	case types.String:
		return string(t)
	case types.Bool:
		return bool(t)
	case types.Int:
		return int64(t)
	case types.Double:
		return float64(t)
	case types.Null:
		return nil
	default:
		return v.Value()
	}
}

func knownKeys(ctx *Context) []string {
	out := make([]string, 0, len(ctx.Variables))
	for k := range ctx.Variables {
		out = append(out, k)
	}
	return out
}

func isKnownFunction(name string) bool {
	switch name {
	case "compiler", "stdlib", "cdt", "pin_subpackage", "pin_compatible",
		"match", "is_linux", "is_osx", "is_windows", "is_unix",
		"env", "load_from_file", "defined", "undefined":
		return true
	}
	return false
}
