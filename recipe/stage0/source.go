package stage0

import "github.com/archlayer/pkgforge/diag"

// Source is the Stage-0 source descriptor: a tagged sum of Git/Url/Path,
// exactly one of which is non-nil (spec.md §3 "Source descriptor"). Using a
// tagged struct rather than an interface keeps YAML decoding straightforward
// and matches the exhaustive-match style Design Notes §9 calls for ("Node
// and Source types are tagged sums with exhaustive pattern matching").
type Source struct {
	Git  *GitSource
	URL  *URLSource
	Path *PathSource
	Span diag.Span
}

// GitSource fetches a git repository at a rev, tag, or branch.
type GitSource struct {
	URL    Value[string]
	Rev    *Value[string]
	Tag    *Value[string]
	Branch *Value[string]
	Depth  *Value[int64]
	Patches ConditionalList[string]
	TargetDir *Value[string]
	LFS       Value[bool]
}

// URLSource fetches an archive or file over HTTP(S), with one or more
// mirrors tried in order.
type URLSource struct {
	URLs        ConditionalList[string]
	SHA256      *Value[string]
	MD5         *Value[string]
	FileName    *Value[string]
	Patches     ConditionalList[string]
	TargetDir   *Value[string]
	Attestation *Attestation
}

// Attestation configures Sigstore/PEP-740 identity verification for a URL
// source (spec.md §4.5 "Attestation verification").
type Attestation struct {
	BundleURL      *Value[string]
	IdentityChecks []IdentityCheck
}

// IdentityCheck is a single required (issuer, identity-prefix) pair.
type IdentityCheck struct {
	Issuer   Value[string]
	Identity Value[string]
}

// PathSource copies a local directory or file into the work tree.
type PathSource struct {
	Path         Value[string]
	SHA256       *Value[string]
	MD5          *Value[string]
	Patches      ConditionalList[string]
	TargetDir    *Value[string]
	FileName     *Value[string]
	UseGitignore Value[bool]
	Filter       ConditionalList[string]
}
