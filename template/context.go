// Package template implements the Jinja-style substitution and condition
// engine (spec.md §4.2, component B): `${{ … }}` substitutions, `{% … %}`
// blocks, and `#{{ … }}` comments, with expression evaluation delegated to
// CEL rather than a hand-rolled evaluator.
package template

// UndefinedMode selects how a reference to an unset variable is handled
// (spec.md §4.2 "Undefined-behavior modes").
type UndefinedMode int

const (
	// Semistrict tolerates an undefined name only when it resolves to a
	// registered function (so `compiler('c')` works even if `compiler`
	// could also be read as a context key). This is the default.
	Semistrict UndefinedMode = iota
	// Strict turns any undefined reference into an error.
	Strict
	// Lenient renders an undefined reference as an empty string.
	Lenient
)

// Context is the variable environment a template renders against, plus the
// bookkeeping spec.md §9 calls "EvaluationContext{variables, accessed,
// undefined, jinja_config}". Accessed/Undefined are append-only: the
// variant expander (component E) reads them back after an evaluation probe
// to compute a used-keys projection.
type Context struct {
	Variables map[string]any
	Platform  string
	Mode      UndefinedMode

	Accessed  map[string]bool
	Undefined map[string]bool

	// Experimental gates load_from_file, per spec.md §4.2.
	Experimental bool
	// RecipeDir anchors load_from_file's relative paths.
	RecipeDir string
}

// NewContext constructs a [Context] with empty bookkeeping sets.
func NewContext(vars map[string]any, platform string, mode UndefinedMode) *Context {
	return &Context{
		Variables: vars,
		Platform:  platform,
		Mode:      mode,
		Accessed:  map[string]bool{},
		Undefined: map[string]bool{},
	}
}

// markAccessed records that key was read during evaluation, and whether it
// was present.
func (c *Context) markAccessed(key string, ok bool) {
	c.Accessed[key] = true
	if !ok {
		c.Undefined[key] = true
	}
}

// Lookup resolves a bare identifier against the variant, recording access.
func (c *Context) Lookup(key string) (any, bool) {
	v, ok := c.Variables[key]
	c.markAccessed(key, ok)
	return v, ok
}
