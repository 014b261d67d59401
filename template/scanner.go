package template

import "strings"

// tokenKind classifies a scanned template token.
type tokenKind int

const (
	tokText tokenKind = iota
	tokSubstitution  // ${{ expr }}
	tokBlockOpen     // {% ... %}
	tokComment       // #{{ ... }}
)

// token is one scanned unit of a template source string. pos is the byte
// offset of the token's first rune in the original source, used to build a
// [diag.Span] for error reporting by the caller.
type token struct {
	kind tokenKind
	text string // literal text for tokText, inner expr otherwise
	pos  int
}

// scan walks src rune-by-rune looking for the three delimiter pairs the
// recipe templating language recognizes, in the spirit of
// buildkit/frontend/dockerfile/shell.Lex's single-pass word scanner: a
// small state machine over runes rather than a generated lexer, because the
// delimiter set is tiny and fixed.
func scan(src string) ([]token, error) {
	var toks []token
	var buf strings.Builder
	bufStart := 0

	flushText := func(end int) {
		if buf.Len() == 0 {
			return
		}
		toks = append(toks, token{kind: tokText, text: buf.String(), pos: bufStart})
		buf.Reset()
	}

	i := 0
	n := len(src)
	for i < n {
		switch {
		case matchAt(src, i, "${{"):
			flushText(i)
			close := strings.Index(src[i+3:], "}}")
			if close < 0 {
				return nil, unclosedDelimiter(src, i, "${{")
			}
			expr := strings.TrimSpace(src[i+3 : i+3+close])
			toks = append(toks, token{kind: tokSubstitution, text: expr, pos: i})
			i = i + 3 + close + 2
			bufStart = i
		case matchAt(src, i, "#{{"):
			flushText(i)
			close := strings.Index(src[i+3:], "}}")
			if close < 0 {
				return nil, unclosedDelimiter(src, i, "#{{")
			}
			toks = append(toks, token{kind: tokComment, text: src[i+3 : i+3+close], pos: i})
			i = i + 3 + close + 2
			bufStart = i
		case matchAt(src, i, "{%"):
			flushText(i)
			close := strings.Index(src[i+2:], "%}")
			if close < 0 {
				return nil, unclosedDelimiter(src, i, "{%")
			}
			toks = append(toks, token{kind: tokBlockOpen, text: strings.TrimSpace(src[i+2 : i+2+close]), pos: i})
			i = i + 2 + close + 2
			bufStart = i
		default:
			buf.WriteByte(src[i])
			i++
		}
	}
	flushText(n)
	return toks, nil
}

func matchAt(src string, i int, delim string) bool {
	return i+len(delim) <= len(src) && src[i:i+len(delim)] == delim
}
