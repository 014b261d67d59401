package eval

import (
	"path"
	"regexp"
	"strings"

	"github.com/archlayer/pkgforge/diag"
)

// packageNameRe matches conda's package-name grammar: lowercase
// alphanumerics, `-`, `_`, `.`.
var packageNameRe = regexp.MustCompile(`^[a-z0-9_.-]+$`)

func validatePackageName(name string, span diag.Span) error {
	if name == "" {
		return diag.New(diag.KindEvaluation, span, "package name must not be empty")
	}
	if !packageNameRe.MatchString(name) {
		return diag.New(diag.KindEvaluation, span, "invalid package name %q", name)
	}
	return nil
}

var versionRe = regexp.MustCompile(`^[A-Za-z0-9_.!+]+$`)

func validateVersion(v string, span diag.Span) error {
	if v == "" {
		return diag.New(diag.KindEvaluation, span, "version must not be empty")
	}
	if !versionRe.MatchString(v) {
		return diag.New(diag.KindEvaluation, span, "invalid version %q", v)
	}
	return nil
}

func validateChecksumHex(name, s string, wantLen int, span diag.Span) error {
	if len(s) != wantLen {
		return diag.New(diag.KindEvaluation, span, "%s must be %d hex characters, got %d", name, wantLen, len(s))
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return diag.New(diag.KindEvaluation, span, "%s contains non-hex character %q", name, r)
		}
	}
	return nil
}

func validateURL(u string, span diag.Span) error {
	if !strings.Contains(u, "://") {
		return diag.New(diag.KindEvaluation, span, "invalid URL %q", u)
	}
	return nil
}

// validateGlob checks pattern is at least syntactically well-formed by
// running it through path.Match against a representative probe string,
// catching malformed bracket expressions immediately (spec.md §4.3
// "Globs: each pattern validated at evaluation").
func validateGlob(pattern string, span diag.Span) error {
	if _, err := path.Match(pattern, "probe"); err != nil {
		return diag.Wrap(diag.KindEvaluation, span, err, "invalid glob %q", pattern)
	}
	return nil
}

// knownSPDXIdentifiers is a small, representative slice of SPDX license
// identifiers sufficient to flag the obviously-misspelled case; a full SPDX
// identifier list is a data file, not logic, and is out of scope for this
// validator's purpose (catching typos, not exhaustively cataloging SPDX).
var knownSPDXIdentifiers = map[string]bool{
	"MIT": true, "Apache-2.0": true, "BSD-2-Clause": true, "BSD-3-Clause": true,
	"GPL-2.0-only": true, "GPL-2.0-or-later": true, "GPL-3.0-only": true, "GPL-3.0-or-later": true,
	"LGPL-2.1-only": true, "LGPL-2.1-or-later": true, "LGPL-3.0-only": true, "LGPL-3.0-or-later": true,
	"MPL-2.0": true, "ISC": true, "Zlib": true, "Unlicense": true, "BSL-1.0": true,
}

// validateLicenseExpression is lenient: ambiguous or unrecognized license
// expressions neither block the build nor produce a warning here. It only
// rejects expressions containing characters (newline, tab) that could
// never appear in a well-formed SPDX expression.
func validateLicenseExpression(expr string, span diag.Span) error {
	if strings.ContainsAny(expr, "\n\t") {
		return diag.New(diag.KindEvaluation, span, "invalid license expression %q", expr)
	}
	return nil
}

// IsKnownSPDX reports whether id is in the small representative identifier
// set, used by callers that want to surface a non-fatal warning for
// unrecognized identifiers.
func IsKnownSPDX(id string) bool {
	return knownSPDXIdentifiers[strings.TrimSpace(id)]
}

var entryPointRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+\s*=\s*[A-Za-z0-9_.]+:[A-Za-z0-9_.]+$`)

func validateEntryPoint(ep string, span diag.Span) error {
	if !entryPointRe.MatchString(ep) {
		return diag.New(diag.KindEvaluation, span, "invalid entry point %q, want 'command = module:function'", ep)
	}
	return nil
}
