// Package diag provides span-tracked diagnostics shared by every stage of
// the recipe-to-package pipeline: the YAML loader, the template engine, the
// evaluator, the patch engine, and the package writer all report failures
// through the same [Error] type so callers can match exhaustively on [Kind]
// without juggling nine unrelated error hierarchies.
package diag

import "fmt"

// Span locates a line/column range in a source file for diagnostic rendering.
// Line/Col are 1-indexed, matching editor conventions.
type Span struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// IsZero reports whether the span carries no location information.
func (s Span) IsZero() bool {
	return s == Span{}
}

func (s Span) String() string {
	if s.IsZero() {
		return "<unknown>"
	}
	if s.StartLine == s.EndLine {
		return fmt.Sprintf("%s:%d:%d-%d", s.File, s.StartLine, s.StartCol, s.EndCol)
	}
	return fmt.Sprintf("%s:%d:%d-%d:%d", s.File, s.StartLine, s.StartCol, s.EndLine, s.EndCol)
}
