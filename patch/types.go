// Package patch implements the fuzzy unified-diff engine (spec.md §4.6,
// component G): parsing traditional and git-extended unified diffs,
// fuzzy hunk application, and patch synthesis against a cached original
// tree. Grounded on the parser/applier shape of
// _examples/original_source/crates/rattler_build_diffy/src/patch/parse.rs,
// reimplemented against []byte rather than a generic Text trait since this
// repo has no need for the Rust crate's str/[]u8 duality.
package patch

import "github.com/archlayer/pkgforge/diag"

// HunkRangeStrategy selects how a hunk's `@@ -a,b +c,d @@` header is
// reconciled against its body (spec.md §4.6).
type HunkRangeStrategy int

const (
	// Check verifies the header counts match the body, tolerating a
	// mismatch up to the number of trailing empty context lines.
	Check HunkRangeStrategy = iota
	// Recount ignores the header counts, strips trailing empty context
	// lines, and derives counts from the body (`git apply --recount`).
	Recount
	// Ignore trusts the header and parses exactly that many lines.
	Ignore
)

// LineKind classifies a single line within a hunk body.
type LineKind int

const (
	LineContext LineKind = iota
	LineInsert
	LineDelete
)

// Line is one line of a hunk body, with its own no-newline-at-EOF marker
// since that marker is a per-line property in unified diff (it follows
// whichever of old/new content the line belongs to).
type Line struct {
	Kind          LineKind
	Text          string
	NoNewlineAtEOF bool
}

// Range is one half of a hunk header (`-old_start,old_len` or
// `+new_start,new_len`).
type Range struct {
	Start int
	Len   int
}

// Hunk is one `@@ … @@`-headed region of a [Diff].
type Hunk struct {
	OldRange Range
	NewRange Range
	// Context, when present in extended headers, is the trailing text
	// after the second `@@` (commonly the enclosing function signature).
	Context string
	Lines   []Line
}

// FileStatus classifies what a [Diff] does to its target path, detected
// from `/dev/null` endpoints and the `diff --git` preamble (rename,
// deleted file mode, new file mode).
type FileStatus int

const (
	StatusModified FileStatus = iota
	StatusCreated
	StatusDeleted
	StatusRenamed
)

// Diff is a single file's unified diff: original/modified path pair plus
// an ordered, non-overlapping sequence of hunks (spec.md §3 "Patch").
type Diff struct {
	OriginalPath string // "" when Status == StatusCreated
	ModifiedPath string // "" when Status == StatusDeleted
	Status       FileStatus
	Hunks        []Hunk
}

// FuzzyConfig controls [Apply]'s tolerance for hunks whose context no
// longer matches the target exactly at the declared position (spec.md
// §4.6 "Apply").
type FuzzyConfig struct {
	MaxFuzz          int
	IgnoreWhitespace bool
	IgnoreCase       bool
}

func newPatchError(format string, args ...any) error {
	return diag.New(diag.KindPatch, diag.Span{}, format, args...)
}
