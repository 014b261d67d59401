package diag

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies an [Error] without requiring a distinct Go type per
// taxonomy entry (spec.md §7). Callers that need to branch on a specific
// failure mode switch on Kind; everything else can treat all of these
// uniformly as an `error`.
type Kind int

const (
	KindUnknown Kind = iota
	KindSchema
	KindTemplate
	KindEvaluation
	KindVariant
	KindSource
	KindPatch
	KindSolver
	KindBuildScript
	KindPackaging
	KindPublication
)

func (k Kind) String() string {
	switch k {
	case KindSchema:
		return "schema"
	case KindTemplate:
		return "template"
	case KindEvaluation:
		return "evaluation"
	case KindVariant:
		return "variant"
	case KindSource:
		return "source"
	case KindPatch:
		return "patch"
	case KindSolver:
		return "solver"
	case KindBuildScript:
		return "build-script"
	case KindPackaging:
		return "packaging"
	case KindPublication:
		return "publication"
	default:
		return "unknown"
	}
}

// ExitCode maps a Kind to the process exit code documented in spec.md §6.
func (k Kind) ExitCode() int {
	switch k {
	case KindSchema, KindTemplate, KindEvaluation, KindVariant:
		return 2
	case KindSource, KindPatch:
		return 1
	case KindBuildScript:
		return 1
	case KindSolver:
		return 3
	case KindPackaging:
		return 4
	case KindPublication:
		return 4
	default:
		return 1
	}
}

// Error is the single diagnostic type for every pipeline stage. It carries
// enough information to render "source file, byte span, one-line message,
// optional multi-line help, and a list of close suggestions" as required by
// spec.md §7.
type Error struct {
	Kind        Kind
	Span        Span
	Message     string
	Help        string
	Suggestions []string
	Cause       error
}

func (e *Error) Error() string {
	var b strings.Builder
	if !e.Span.IsZero() {
		fmt.Fprintf(&b, "%s: ", e.Span)
	}
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %s", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Render produces the full multi-line diagnostic: message, help text, and
// suggestions, in that order.
func (e *Error) Render() string {
	var b strings.Builder
	b.WriteString(e.Error())
	if e.Help != "" {
		b.WriteString("\n\n")
		b.WriteString(e.Help)
	}
	if len(e.Suggestions) > 0 {
		b.WriteString("\n\ndid you mean one of:")
		for _, s := range e.Suggestions {
			b.WriteString("\n  - ")
			b.WriteString(s)
		}
	}
	return b.String()
}

// New constructs an [Error] of the given kind at the given span.
func New(kind Kind, span Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an [Error] that chains an underlying cause. The cause is
// run through errors.WithStack so a stack trace is captured the first time
// a plain stdlib/external error crosses a component boundary, the same
// attach-once convention the teacher applies at every errors.Wrap call site.
func Wrap(kind Kind, span Span, cause error, format string, args ...any) *Error {
	if cause != nil {
		if _, hasStack := cause.(stackTracer); !hasStack {
			cause = errors.WithStack(cause)
		}
	}
	return &Error{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...), Cause: cause}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// WithSuggestions returns a copy of e with Suggestions set, used when an
// undefined-variable or unknown-key error can offer close candidates.
func (e *Error) WithSuggestions(s ...string) *Error {
	e2 := *e
	e2.Suggestions = s
	return &e2
}

// WithHelp returns a copy of e with Help set.
func (e *Error) WithHelp(help string) *Error {
	e2 := *e
	e2.Help = help
	return &e2
}
