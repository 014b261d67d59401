package stage0

import (
	"strconv"
	"strings"

	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/recipe/yamlnode"
)

// isTemplate reports whether a scalar's verbatim source needs Jinja
// rendering before it can be interpreted, i.e. it contains a `${{ ... }}`
// substitution or a `{% ... %}` block directive.
func isTemplate(s string) bool {
	return strings.Contains(s, "${{") || strings.Contains(s, "{%")
}

func decodeStringValue(n *yamlnode.Node) (Value[string], error) {
	if n == nil || n.Kind == yamlnode.KindNull {
		return Value[string]{}, nil
	}
	if n.Kind != yamlnode.KindScalar {
		return Value[string]{}, diag.New(diag.KindSchema, n.Span, "expected a scalar string")
	}
	if isTemplate(n.Scalar) {
		return Tpl[string](n.Scalar, n.Span), nil
	}
	return Lit(n.Scalar, n.Span), nil
}

func decodeBoolValue(n *yamlnode.Node) (Value[bool], error) {
	if n == nil || n.Kind == yamlnode.KindNull {
		return Value[bool]{}, nil
	}
	if n.Kind != yamlnode.KindScalar {
		return Value[bool]{}, diag.New(diag.KindSchema, n.Span, "expected a scalar bool")
	}
	if isTemplate(n.Scalar) {
		return Tpl[bool](n.Scalar, n.Span), nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(n.Scalar))
	if err != nil {
		return Value[bool]{}, diag.Wrap(diag.KindSchema, n.Span, err, "invalid bool %q", n.Scalar)
	}
	return Lit(b, n.Span), nil
}

func decodeIntValue(n *yamlnode.Node) (Value[int64], error) {
	if n == nil || n.Kind == yamlnode.KindNull {
		return Value[int64]{}, nil
	}
	if n.Kind != yamlnode.KindScalar {
		return Value[int64]{}, diag.New(diag.KindSchema, n.Span, "expected a scalar integer")
	}
	if isTemplate(n.Scalar) {
		return Tpl[int64](n.Scalar, n.Span), nil
	}
	i, err := strconv.ParseInt(strings.TrimSpace(n.Scalar), 10, 64)
	if err != nil {
		return Value[int64]{}, diag.Wrap(diag.KindSchema, n.Span, err, "invalid integer %q", n.Scalar)
	}
	return Lit(i, n.Span), nil
}

// decodeConditionalList decodes a YAML sequence (or single scalar,
// promoted to a one-item list) into a [ConditionalList], using leaf to turn
// each non-conditional item into an Item[T].
func decodeConditionalList[T any](n *yamlnode.Node, leaf func(*yamlnode.Node) (Item[T], error)) (ConditionalList[T], error) {
	if n == nil || n.Kind == yamlnode.KindNull {
		return nil, nil
	}
	if n.Kind != yamlnode.KindSequence {
		item, err := decodeItem(n, leaf)
		if err != nil {
			return nil, err
		}
		return ConditionalList[T]{item}, nil
	}
	out := make(ConditionalList[T], 0, len(n.Seq))
	for _, c := range n.Seq {
		item, err := decodeItem(c, leaf)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func decodeItem[T any](n *yamlnode.Node, leaf func(*yamlnode.Node) (Item[T], error)) (Item[T], error) {
	if n.Kind == yamlnode.KindConditional {
		if n.Cond == nil {
			return Item[T]{}, yamlnode.MalformedConditionalError(n.Span, "missing 'then'")
		}
		then, err := decodeConditionalList(n.Cond.Then, leaf)
		if err != nil {
			return Item[T]{}, err
		}
		var els ConditionalList[T]
		if n.Cond.Else != nil {
			els, err = decodeConditionalList(n.Cond.Else, leaf)
			if err != nil {
				return Item[T]{}, err
			}
		}
		return Item[T]{Cond: &Conditional[T]{
			Cond: n.Cond.Cond, CondSpan: n.Cond.CondSpan,
			Then: then, Else: els, Span: n.Span,
		}}, nil
	}
	return leaf(n)
}

func stringLeaf(n *yamlnode.Node) (Item[string], error) {
	v, err := decodeStringValue(n)
	if err != nil {
		return Item[string]{}, err
	}
	return Item[string]{Value: &v}, nil
}

func dependencyLeaf(n *yamlnode.Node) (Item[DependencySpec], error) {
	v, err := decodeStringValue(n)
	if err != nil {
		return Item[DependencySpec]{}, err
	}
	d := DependencySpec{Raw: v, Span: n.Span}
	return Item[DependencySpec]{Value: &Value[DependencySpec]{Concrete: &d, Span: n.Span}}, nil
}

// find looks up a key in a mapping node's entries, or nil if absent.
func find(n *yamlnode.Node, key string) *yamlnode.Node {
	if n == nil || n.Kind != yamlnode.KindMapping {
		return nil
	}
	for _, e := range n.Mapping {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

func unknownKeys(n *yamlnode.Node, known map[string]bool) error {
	if n == nil || n.Kind != yamlnode.KindMapping {
		return nil
	}
	for _, e := range n.Mapping {
		if !known[e.Key] {
			return diag.New(diag.KindSchema, e.KeySpan, "unknown key %q", e.Key).
				WithSuggestions(diag.Suggest(e.Key, keysOf(known))...)
		}
	}
	return nil
}

func keysOf(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Decode turns a raw [yamlnode.Node] (as produced by [yamlnode.Load]) into
// a typed Stage-0 [Recipe].
func Decode(root *yamlnode.Node) (*Recipe, error) {
	if root == nil || root.Kind != yamlnode.KindMapping {
		return nil, diag.New(diag.KindSchema, diag.Span{}, "recipe must be a mapping")
	}
	if err := unknownKeys(root, map[string]bool{
		"context": true, "package": true, "source": true, "build": true,
		"requirements": true, "tests": true, "about": true, "extra": true,
		"recipe": true, "cache": true, "outputs": true,
	}); err != nil {
		return nil, err
	}

	ctx, err := decodeContext(find(root, "context"))
	if err != nil {
		return nil, err
	}
	pkg, err := decodePackage(find(root, "package"))
	if err != nil {
		return nil, err
	}
	src, err := decodeConditionalList(find(root, "source"), sourceLeaf)
	if err != nil {
		return nil, err
	}
	build, err := decodeBuild(find(root, "build"))
	if err != nil {
		return nil, err
	}
	reqs, err := decodeRequirements(find(root, "requirements"))
	if err != nil {
		return nil, err
	}
	tests, err := decodeConditionalList(find(root, "tests"), testLeaf)
	if err != nil {
		return nil, err
	}
	about, err := decodeAbout(find(root, "about"))
	if err != nil {
		return nil, err
	}

	return &Recipe{
		Context:      ctx,
		Package:      pkg,
		Source:       src,
		Build:        build,
		Requirements: reqs,
		Tests:        tests,
		About:        about,
	}, nil
}

func decodeContext(n *yamlnode.Node) (ContextMap, error) {
	cm := ContextMap{Values: map[string]Value[ContextVar]{}}
	if n == nil {
		return cm, nil
	}
	if n.Kind != yamlnode.KindMapping {
		return cm, diag.New(diag.KindSchema, n.Span, "context must be a mapping")
	}
	for _, e := range n.Mapping {
		v, err := decodeStringValue(e.Value)
		if err != nil {
			return cm, err
		}
		cv := Value[ContextVar]{Span: e.Value.Span}
		if v.Concrete != nil {
			s := *v.Concrete
			cv.Concrete = &ContextVar{String: &s}
		} else {
			cv.Tmpl = v.Tmpl
		}
		cm.Keys = append(cm.Keys, e.Key)
		cm.Values[e.Key] = cv
	}
	return cm, nil
}

func decodePackage(n *yamlnode.Node) (Package, error) {
	var p Package
	if n == nil {
		return p, diag.New(diag.KindSchema, diag.Span{}, "missing required field 'package'")
	}
	name, err := decodeStringValue(find(n, "name"))
	if err != nil {
		return p, err
	}
	if name.Concrete == nil && name.Tmpl == nil {
		return p, diag.New(diag.KindSchema, n.Span, "missing required field 'package.name'")
	}
	version, err := decodeStringValue(find(n, "version"))
	if err != nil {
		return p, err
	}
	p.Name, p.Version = name, version
	return p, nil
}

func decodeAbout(n *yamlnode.Node) (About, error) {
	var a About
	if n == nil {
		return a, nil
	}
	var err error
	if a.Homepage, err = decodeStringValue(find(n, "homepage")); err != nil {
		return a, err
	}
	if a.License, err = decodeStringValue(find(n, "license")); err != nil {
		return a, err
	}
	if a.Summary, err = decodeStringValue(find(n, "summary")); err != nil {
		return a, err
	}
	if a.Description, err = decodeStringValue(find(n, "description")); err != nil {
		return a, err
	}
	if a.DocURL, err = decodeStringValue(find(n, "documentation")); err != nil {
		return a, err
	}
	if a.DevURL, err = decodeStringValue(find(n, "repository")); err != nil {
		return a, err
	}
	if a.LicenseFile, err = decodeConditionalList(find(n, "license_file"), stringLeaf); err != nil {
		return a, err
	}
	return a, nil
}

func decodeRequirements(n *yamlnode.Node) (Requirements, error) {
	var r Requirements
	if n == nil {
		return r, nil
	}
	var err error
	if r.Build, err = decodeConditionalList(find(n, "build"), dependencyLeaf); err != nil {
		return r, err
	}
	if r.Host, err = decodeConditionalList(find(n, "host"), dependencyLeaf); err != nil {
		return r, err
	}
	if r.Run, err = decodeConditionalList(find(n, "run"), dependencyLeaf); err != nil {
		return r, err
	}
	if r.RunConstraints, err = decodeConditionalList(find(n, "run_constraints"), dependencyLeaf); err != nil {
		return r, err
	}
	if re := find(n, "run_exports"); re != nil {
		if r.RunExports.Strong, err = decodeConditionalList(find(re, "strong"), dependencyLeaf); err != nil {
			return r, err
		}
		if r.RunExports.Weak, err = decodeConditionalList(find(re, "weak"), dependencyLeaf); err != nil {
			return r, err
		}
		if r.RunExports.Noarch, err = decodeConditionalList(find(re, "noarch"), dependencyLeaf); err != nil {
			return r, err
		}
	}
	return r, nil
}

func decodeBuild(n *yamlnode.Node) (Build, error) {
	var b Build
	if n == nil {
		return b, nil
	}
	var err error
	if b.Number, err = decodeIntValue(find(n, "number")); err != nil {
		return b, err
	}

	if strNode := find(n, "string"); strNode != nil {
		if strNode.Kind != yamlnode.KindScalar {
			return b, diag.New(diag.KindSchema, strNode.Span, "build.string must be a scalar")
		}
		// build.string is never rendered here: it may reference the
		// variant hash, which is only known after expansion (spec.md
		// §4.3 "Deferred build string").
		b.String = &Template{Source: strNode.Scalar, Span: strNode.Span}
	}

	switch noarchNode := find(n, "noarch"); {
	case noarchNode == nil:
		b.NoArch = NoArchNone
	case noarchNode.Kind == yamlnode.KindScalar && noarchNode.Scalar == "python":
		b.NoArch = NoArchPython
	case noarchNode.Kind == yamlnode.KindScalar && noarchNode.Scalar == "generic":
		b.NoArch = NoArchGeneric
	default:
		return b, diag.New(diag.KindSchema, noarchNode.Span, "noarch must be 'python' or 'generic'")
	}

	if script, err := decodeConditionalList(find(n, "script"), stringLeaf); err != nil {
		return b, err
	} else if len(script) > 0 {
		b.Script.Content.Commands = flattenLiteralStrings(script)
	}

	return b, nil
}

// flattenLiteralStrings extracts the concrete/templated Value[string] out of
// a ConditionalList without resolving conditionals (that happens later,
// against a real variant, in package eval).
func flattenLiteralStrings(cl ConditionalList[string]) []Value[string] {
	var out []Value[string]
	for _, item := range cl {
		if item.Value != nil {
			out = append(out, *item.Value)
		}
	}
	return out
}

func sourceLeaf(n *yamlnode.Node) (Item[Source], error) {
	if n.Kind != yamlnode.KindMapping {
		return Item[Source]{}, diag.New(diag.KindSchema, n.Span, "source entry must be a mapping")
	}
	src := Source{Span: n.Span}
	switch {
	case find(n, "url") != nil:
		u, err := decodeURLSource(n)
		if err != nil {
			return Item[Source]{}, err
		}
		src.URL = u
	case find(n, "git") != nil:
		g, err := decodeGitSource(n)
		if err != nil {
			return Item[Source]{}, err
		}
		src.Git = g
	case find(n, "path") != nil:
		p, err := decodePathSource(n)
		if err != nil {
			return Item[Source]{}, err
		}
		src.Path = p
	default:
		return Item[Source]{}, diag.New(diag.KindSchema, n.Span, "source entry must have one of 'url', 'git', 'path'")
	}
	v := Value[Source]{Concrete: &src, Span: n.Span}
	return Item[Source]{Value: &v}, nil
}

func decodeURLSource(n *yamlnode.Node) (*URLSource, error) {
	u := &URLSource{}
	urlNode := find(n, "url")
	urls, err := decodeConditionalList(urlNode, stringLeaf)
	if err != nil {
		return nil, err
	}
	u.URLs = urls
	if sha, err := decodeStringValue(find(n, "sha256")); err != nil {
		return nil, err
	} else if sha.Concrete != nil || sha.Tmpl != nil {
		u.SHA256 = &sha
	}
	if md5, err := decodeStringValue(find(n, "md5")); err != nil {
		return nil, err
	} else if md5.Concrete != nil || md5.Tmpl != nil {
		u.MD5 = &md5
	}
	if patches, err := decodeConditionalList(find(n, "patches"), stringLeaf); err != nil {
		return nil, err
	} else {
		u.Patches = patches
	}
	return u, nil
}

func decodeGitSource(n *yamlnode.Node) (*GitSource, error) {
	g := &GitSource{}
	urlVal, err := decodeStringValue(find(n, "git"))
	if err != nil {
		return nil, err
	}
	g.URL = urlVal
	if rev, err := decodeStringValue(find(n, "rev")); err != nil {
		return nil, err
	} else if rev.Concrete != nil || rev.Tmpl != nil {
		g.Rev = &rev
	}
	if tag, err := decodeStringValue(find(n, "tag")); err != nil {
		return nil, err
	} else if tag.Concrete != nil || tag.Tmpl != nil {
		g.Tag = &tag
	}
	if branch, err := decodeStringValue(find(n, "branch")); err != nil {
		return nil, err
	} else if branch.Concrete != nil || branch.Tmpl != nil {
		g.Branch = &branch
	}
	if depth, err := decodeIntValue(find(n, "depth")); err != nil {
		return nil, err
	} else if depth.Concrete != nil || depth.Tmpl != nil {
		g.Depth = &depth
	}
	if patches, err := decodeConditionalList(find(n, "patches"), stringLeaf); err != nil {
		return nil, err
	} else {
		g.Patches = patches
	}
	if lfs, err := decodeBoolValue(find(n, "lfs")); err != nil {
		return nil, err
	} else {
		g.LFS = lfs
	}
	return g, nil
}

func decodePathSource(n *yamlnode.Node) (*PathSource, error) {
	p := &PathSource{}
	pathVal, err := decodeStringValue(find(n, "path"))
	if err != nil {
		return nil, err
	}
	p.Path = pathVal
	if patches, err := decodeConditionalList(find(n, "patches"), stringLeaf); err != nil {
		return nil, err
	} else {
		p.Patches = patches
	}
	if gi, err := decodeBoolValue(find(n, "use_gitignore")); err != nil {
		return nil, err
	} else {
		p.UseGitignore = gi
	}
	if filter, err := decodeConditionalList(find(n, "filter"), stringLeaf); err != nil {
		return nil, err
	} else {
		p.Filter = filter
	}
	return p, nil
}

func testLeaf(n *yamlnode.Node) (Item[Test], error) {
	if n.Kind != yamlnode.KindMapping {
		return Item[Test]{}, diag.New(diag.KindSchema, n.Span, "test entry must be a mapping")
	}
	t := Test{}
	if scriptNode := find(n, "script"); scriptNode != nil {
		cmds, err := decodeConditionalList(scriptNode, stringLeaf)
		if err != nil {
			return Item[Test]{}, err
		}
		t.Script = &CommandsTest{Script: flattenLiteralStrings(cmds)}
	}
	if pyNode := find(n, "python"); pyNode != nil {
		imports, err := decodeConditionalList(find(pyNode, "imports"), stringLeaf)
		if err != nil {
			return Item[Test]{}, err
		}
		t.Python = &PythonTest{Imports: rawStrings(imports), PipCheck: true}
	}
	v := Value[Test]{Concrete: &t, Span: n.Span}
	return Item[Test]{Value: &v}, nil
}

func rawStrings(cl ConditionalList[string]) []string {
	var out []string
	for _, item := range cl {
		if item.Value != nil && item.Value.Concrete != nil {
			out = append(out, *item.Value.Concrete)
		}
	}
	return out
}
