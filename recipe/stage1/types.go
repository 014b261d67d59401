// Package stage1 is the fully-rendered recipe schema: every template
// resolved, every conditional collapsed, against one concrete variant
// (spec.md §3 "Stage-1 recipe", §4.3 component D's output).
package stage1

import "github.com/archlayer/pkgforge/diag"

// Recipe is a recipe with every template rendered and every conditional
// resolved against a single variant, except build.string (see [Build]).
type Recipe struct {
	Package      Package
	Source       []Source
	Build        Build
	Requirements Requirements
	Tests        []Test
	About        About
}

// Package is the rendered `package:` section.
type Package struct {
	Name    string
	Version string
}

// About is the rendered `about:` section.
type About struct {
	Homepage    string
	License     string
	LicenseFile []string
	Summary     string
	Description string
	DocURL      string
	DevURL      string
}

// DependencyKind distinguishes a plain match-spec from a pin marker
// produced by `pin_subpackage`/`pin_compatible` (spec.md §4.3
// "Dependencies").
type DependencyKind int

const (
	DepMatchSpec DependencyKind = iota
	DepPinSubpackage
	DepPinCompatible
)

// PinSpec is the decoded body of a pin_subpackage/pin_compatible marker.
// JSON tags must match template/functions.go's pinMarkerFn output verbatim
// since recipe/eval/deps.go unmarshals the marker body straight into this
// struct and encoding/json's case-insensitive matching doesn't bridge an
// underscore.
type PinSpec struct {
	Name       string `json:"name"`
	LowerBound string `json:"lower_bound"`
	UpperBound string `json:"upper_bound"`
	Exact      bool   `json:"exact"`
	Build      string `json:"build"`
}

// Dependency is a single rendered, parsed dependency line.
type Dependency struct {
	Kind DependencyKind
	Raw  string // the original match-spec string, for DepMatchSpec
	Pin  *PinSpec
	Span diag.Span
}

// Requirements is the rendered `requirements:` section.
type Requirements struct {
	Build          []Dependency
	Host           []Dependency
	Run            []Dependency
	RunConstraints []Dependency
	RunExports     RunExports
}

// RunExports is the rendered `run_exports:` section.
type RunExports struct {
	Strong            []Dependency
	Weak              []Dependency
	Noarch            []Dependency
	StrongConstraints []Dependency
	WeakConstraints   []Dependency
}

// NoArchKind mirrors stage0.NoArchKind post-rendering.
type NoArchKind int

const (
	NoArchNone NoArchKind = iota
	NoArchGeneric
	NoArchPython
)

// UnresolvedBuildString is the verbatim `build.string` template, deferred
// because it may reference `hash` (spec.md §4.3 "Deferred build string").
// It is resolved by the variant expander (component E) once the hash is
// known, not by the evaluator.
type UnresolvedBuildString struct {
	Source string
	Span   diag.Span
}

// Build is the rendered `build:` section, except String which stays
// unresolved until hash computation.
type Build struct {
	Number          int64
	String          *UnresolvedBuildString
	NoArch          NoArchKind
	Script          Script
	Python          PythonBuild
	DynamicLinking  DynamicLinking
	PrefixDetection PrefixDetection
	VariantKeys     []string
}

// PythonBuild is the rendered `build.python:` section.
type PythonBuild struct {
	EntryPoints            []string
	UsePythonAppEntrypoint bool
	SkipPycCompilation     []string
}

// DynamicLinking is the rendered `build.dynamic_linking:` section.
type DynamicLinking struct {
	RPaths              []string
	BinaryRelocation    *bool
	MissingDSOAllowList []string
	RPathAllowList      []string
}

// PrefixDetection is the rendered `build.prefix_detection:` section.
type PrefixDetection struct {
	ForceText   []string
	ForceBinary []string
	Ignore      []string
}

// Script is the normalized, rendered build/test script.
type Script struct {
	Interpreter string
	Env         map[string]string
	Secrets     []string
	Cwd         string
	Default     bool
	Path        string
	Commands    []string
}

// Test is a rendered `tests:` entry.
type Test struct {
	Script   *CommandsTest
	Python   *PythonTest
	Contents *PackageContentsTest
}

// CommandsTest is a rendered command test.
type CommandsTest struct {
	Script       []string
	Requirements []Dependency
	Files        []string
}

// PythonTest is a rendered Python import test.
type PythonTest struct {
	Imports       []string
	PipCheck      bool
	PythonVersion []string
}

// PackageContentsTest is a rendered package-contents test.
type PackageContentsTest struct {
	Files    []string
	SiteOnly bool
}

// Source is a rendered, resolved source descriptor.
type Source struct {
	Git  *GitSource
	URL  *URLSource
	Path *PathSource
	Span diag.Span
}

// GitSource is a rendered git source.
type GitSource struct {
	URL       string
	Rev       string
	Tag       string
	Branch    string
	Depth     int64
	Patches   []string
	TargetDir string
	LFS       bool
}

// URLSource is a rendered URL source.
type URLSource struct {
	URLs        []string
	SHA256      string
	MD5         string
	FileName    string
	Patches     []string
	TargetDir   string
	Attestation *Attestation
}

// Attestation is a rendered attestation configuration.
type Attestation struct {
	BundleURL      string
	IdentityChecks []IdentityCheck
}

// IdentityCheck is a rendered (issuer, identity-prefix) requirement.
type IdentityCheck struct {
	Issuer   string
	Identity string
}

// PathSource is a rendered local-path source.
type PathSource struct {
	Path         string
	SHA256       string
	MD5          string
	Patches      []string
	TargetDir    string
	FileName     string
	UseGitignore bool
	Filter       []string
}
