package template

import "testing"

func TestRenderStrSubstitution(t *testing.T) {
	ctx := NewContext(map[string]any{"version": "1.3.1"}, "linux-64", Semistrict)
	e := NewEngine()
	out, err := e.RenderStr("zlib-${{ version }}.tar.gz", ctx)
	if err != nil {
		t.Fatalf("RenderStr: %v", err)
	}
	if out != "zlib-1.3.1.tar.gz" {
		t.Fatalf("got %q", out)
	}
	if !ctx.Accessed["version"] {
		t.Fatal("expected version to be marked accessed")
	}
}

func TestRenderStrUndefinedStrict(t *testing.T) {
	ctx := NewContext(map[string]any{}, "linux-64", Strict)
	e := NewEngine()
	if _, err := e.RenderStr("${{ missing }}", ctx); err == nil {
		t.Fatal("expected undefined-variable error")
	}
	if !ctx.Undefined["missing"] {
		t.Fatal("expected missing to be recorded as undefined")
	}
}

func TestRenderStrUndefinedLenient(t *testing.T) {
	ctx := NewContext(map[string]any{}, "linux-64", Lenient)
	e := NewEngine()
	out, err := e.RenderStr("prefix-${{ missing }}-suffix", ctx)
	if err != nil {
		t.Fatalf("RenderStr: %v", err)
	}
	if out != "prefix--suffix" {
		t.Fatalf("got %q", out)
	}
}

func TestIsSimpleExpression(t *testing.T) {
	cases := []struct {
		src  string
		want bool
	}{
		{"${{ python }}", true},
		{"prefix-${{ python }}", false},
		{"${{ a }}/${{ b }}", false},
		{"plain text", false},
	}
	for _, c := range cases {
		_, ok := IsSimpleExpression(c.src)
		if ok != c.want {
			t.Errorf("IsSimpleExpression(%q) = %v, want %v", c.src, ok, c.want)
		}
	}
}

func TestEvalExprBlockIfElse(t *testing.T) {
	ctx := NewContext(map[string]any{"unix": true}, "linux-64", Semistrict)
	e := NewEngine()
	out, err := e.RenderStr("{% if unix %}unix-path{% else %}win-path{% endif %}", ctx)
	if err != nil {
		t.Fatalf("RenderStr: %v", err)
	}
	if out != "unix-path" {
		t.Fatalf("got %q", out)
	}
}

func TestMatchUndefinedIsTrue(t *testing.T) {
	ctx := NewContext(map[string]any{}, "linux-64", Lenient)
	e := NewEngine()
	out, err := e.EvalExpr(`match(python, ">=3.8")`, ctx)
	if err != nil {
		t.Fatalf("EvalExpr: %v", err)
	}
	if b, ok := out.(bool); !ok || !b {
		t.Fatalf("got %v, want true", out)
	}
}

func TestMatchVersionSpec(t *testing.T) {
	ctx := NewContext(map[string]any{"numpy": "1.26"}, "linux-64", Semistrict)
	e := NewEngine()
	out, err := e.EvalExpr(`match(numpy, ">=1.20,<2.0")`, ctx)
	if err != nil {
		t.Fatalf("EvalExpr: %v", err)
	}
	if b, ok := out.(bool); !ok || !b {
		t.Fatalf("got %v, want true", out)
	}
}
