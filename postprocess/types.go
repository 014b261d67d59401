// Package postprocess implements the post-processing pass over staged
// build output (spec.md §4.8, component I): shebang rewriting, native
// binary relocation, prefix-placeholder detection, noarch-python
// repositioning, bytecode generation, and entry-point synthesis. It
// produces the paths-manifest entries the package writer (component J)
// serializes into `paths.json`.
package postprocess

// PlaceholderMode distinguishes how a prefix placeholder should be
// substituted back in by an installer (spec.md §3 "Paths manifest").
type PlaceholderMode int

const (
	PlaceholderNone PlaceholderMode = iota
	PlaceholderText
	PlaceholderBinary
)

// FileType classifies a manifest entry's on-disk representation.
type FileType int

const (
	TypeHardLink FileType = iota
	TypeSoftLink
	TypeDirectory
)

// PathEntry is one row of the `paths.json` manifest spec.md §3 documents:
// relative path, content hash, size, type, and an optional prefix
// placeholder.
type PathEntry struct {
	Path            string
	SHA256          string
	SizeBytes       int64
	Type            FileType
	PlaceholderMode PlaceholderMode
	Placeholder     string
}

// Config bundles the per-build settings post-processing needs: the build
// prefix to detect/rewrite, platform, and the toggles stage1.PrefixDetection
// and stage1.DynamicLinking carry.
type Config struct {
	Prefix                 string
	Platform               string // "linux", "osx", "windows"
	NoArchPython           bool
	UsePythonAppEntrypoint bool
	BinaryRelocation       bool
	ForceTextPrefix        []string
	ForceBinaryPrefix      []string
	IgnorePrefix           []string
	SkipPycGlobs           []string
	PythonVersion          string // "3.11" etc, cache tag input
}
