package template

import "github.com/archlayer/pkgforge/diag"

func unclosedDelimiter(src string, pos int, delim string) error {
	line, col := lineCol(src, pos)
	return diag.New(diag.KindTemplate, diag.Span{StartLine: line, StartCol: col, EndLine: line, EndCol: col + len(delim)},
		"unclosed %q delimiter", delim)
}

func lineCol(src string, pos int) (int, int) {
	line, col := 1, 1
	for i := 0; i < pos && i < len(src); i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
