// Package stage0 defines the typed tree of optional, conditional, templated
// recipe fields (spec.md §3 "Stage-0 recipe", §4.1 component C). Every field
// carries a [diag.Span] for diagnostic localization, and every scalar is
// either a concrete value or an unevaluated Jinja template.
package stage0

import "github.com/archlayer/pkgforge/diag"

// Template is unevaluated Jinja-style source, e.g. "${{ python_min }}".
type Template struct {
	Source string
	Span   diag.Span
}

// Value is either a concrete T with a span, or a [Template] awaiting
// rendering against a variant.
type Value[T any] struct {
	Concrete *T
	Tmpl     *Template
	Span     diag.Span
}

// IsTemplate reports whether v still needs rendering.
func (v Value[T]) IsTemplate() bool { return v.Tmpl != nil }

// Lit constructs a [Value] that is already a literal T.
func Lit[T any](v T, span diag.Span) Value[T] {
	return Value[T]{Concrete: &v, Span: span}
}

// Tpl constructs a [Value] that must be rendered before use.
func Tpl[T any](source string, span diag.Span) Value[T] {
	return Value[T]{Tmpl: &Template{Source: source, Span: span}, Span: span}
}

// Item is either a plain [Value] or a [Conditional] yielding zero or more
// Values when flattened (spec.md §3 "Item<T>").
type Item[T any] struct {
	Value *Value[T]
	Cond  *Conditional[T]
}

// Conditional is the flattened form of the `{if, then, else}` YAML shape,
// specialized to a particular field type T.
type Conditional[T any] struct {
	Cond     string
	CondSpan diag.Span
	Then     []Item[T]
	Else     []Item[T]
	Span     diag.Span
}

// ConditionalList is an ordered sequence of [Item], spec.md §3's
// `ConditionalList<T>`.
type ConditionalList[T any] []Item[T]

// Recipe is the Stage-0 schema: spec.md §3 "Recipe".
type Recipe struct {
	Context ContextMap
	Package Package
	Source  ConditionalList[Source]
	Build   Build
	Requirements Requirements
	Tests        ConditionalList[Test]
	About        About
	Extra        map[string]any
}

// ContextMap preserves declaration order because later `context:` entries
// may reference earlier ones during evaluation.
type ContextMap struct {
	Keys   []string
	Values map[string]Value[ContextVar]
}

// ContextVar is a context-declared value: string, bool, or number, always
// rendered to a string for later substitution (rattler-build semantics).
type ContextVar struct {
	String *string
	Bool   *bool
	Int    *int64
}

// Package is the `package:` section.
type Package struct {
	Name    Value[string]
	Version Value[string]
}

// About is the `about:` section.
type About struct {
	Homepage    Value[string]
	License     Value[string]
	LicenseFile ConditionalList[string]
	Summary     Value[string]
	Description Value[string]
	DocURL      Value[string]
	DevURL      Value[string]
}

// Requirements is the `requirements:` section.
type Requirements struct {
	Build  ConditionalList[DependencySpec]
	Host   ConditionalList[DependencySpec]
	Run    ConditionalList[DependencySpec]
	RunConstraints ConditionalList[DependencySpec]
	RunExports     RunExports
}

// RunExports classifies transitively-contributed dependencies (spec.md
// GLOSSARY "Run export").
type RunExports struct {
	Strong            ConditionalList[DependencySpec]
	Weak              ConditionalList[DependencySpec]
	Noarch            ConditionalList[DependencySpec]
	StrongConstraints ConditionalList[DependencySpec]
	WeakConstraints   ConditionalList[DependencySpec]
}

// DependencySpec is a single, as-yet-unrendered dependency line: either a
// match-spec string or a `pin_subpackage`/`pin_compatible` JSON marker
// (spec.md §4.3 "Dependencies").
type DependencySpec struct {
	Raw  Value[string]
	Span diag.Span
}

// Build is the `build:` section.
type Build struct {
	Number          Value[int64]
	String          *Template // deferred: may reference `hash`, spec.md §4.3
	Script          Script
	NoArch          NoArchKind
	SkipConditions  []string
	Python          PythonBuild
	DynamicLinking  DynamicLinking
	PrefixDetection PrefixDetection
	VariantKeys     []string // force-include in the used-variant hash
}

// NoArchKind distinguishes python-noarch and generic-noarch (GLOSSARY).
type NoArchKind int

const (
	NoArchNone NoArchKind = iota
	NoArchGeneric
	NoArchPython
)

// PythonBuild configures noarch-python and entry-point generation
// (spec.md §4.8).
type PythonBuild struct {
	EntryPoints           []string
	UsePythonAppEntrypoint bool
	SkipPycCompilation     []string
}

// DynamicLinking configures post-link relocation toggles (spec.md §4.8).
type DynamicLinking struct {
	RPaths               []string
	BinaryRelocation     *bool
	MissingDSOAllowList  []string
	RPathAllowList       []string
}

// PrefixDetection configures text/binary prefix scanning (spec.md §3
// "Paths manifest").
type PrefixDetection struct {
	Force  ForceFileType
	Ignore []string
}

// ForceFileType overrides automatic text/binary sniffing for named globs.
type ForceFileType struct {
	Text   []string
	Binary []string
}

// Script normalizes the many shapes a build or test script may take
// (spec.md §4.3 "Scripts").
type Script struct {
	Interpreter string
	Env         map[string]Value[string]
	Secrets     []string
	Cwd         *string
	Content     ScriptContent
}

// ScriptContent is the normalized shape of a script body.
type ScriptContent struct {
	Default  bool
	Path     *string
	Commands []Value[string]
}

// Test is a single `tests:` entry (command test, Python import test,
// package-contents test, downstream test, ...). Only the command-test
// shape used by §8's seed scenarios is modeled fully here; the remaining
// variants carry their raw fields for forward compatibility.
type Test struct {
	Script  *CommandsTest
	Python  *PythonTest
	Contents *PackageContentsTest
}

// CommandsTest runs shell commands against an installed environment.
type CommandsTest struct {
	Script  []Value[string]
	Requirements ConditionalList[DependencySpec]
	Files        []string
}

// PythonTest imports modules and runs `pip check`.
type PythonTest struct {
	Imports    []string
	PipCheck   bool
	PythonVersion []string
}

// PackageContentsTest asserts on the shipped file layout.
type PackageContentsTest struct {
	Files  []string
	SiteOnly bool
}
