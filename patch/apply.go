package patch

import "strings"

// Apply renders d against original, sliding each hunk's context up to
// cfg.MaxFuzz lines above/below its declared position when an exact match
// fails (spec.md §4.6 "Apply").
func Apply(d Diff, original []byte, cfg FuzzyConfig) ([]byte, error) {
	lines := splitLinesKeepEnds(string(original))
	var out []string
	cursor := 0 // index into lines already copied through

	for _, h := range d.Hunks {
		target := h.OldRange.Start - 1
		if h.OldRange.Len == 0 {
			target = h.OldRange.Start
		}
		if target < 0 {
			target = 0
		}

		pos, err := locateHunk(lines, h, target, cfg)
		if err != nil {
			return nil, err
		}

		out = append(out, lines[cursor:pos]...)
		produced, consumed := renderHunk(h)
		out = append(out, produced...)
		cursor = pos + consumed
	}
	if cursor < len(lines) {
		out = append(out, lines[cursor:]...)
	}
	return []byte(strings.Join(out, "")), nil
}

// locateHunk finds the line index where h's context/delete lines match
// lines, starting at target and sliding outward up to cfg.MaxFuzz lines in
// either direction.
func locateHunk(lines []string, h Hunk, target int, cfg FuzzyConfig) (int, error) {
	oldLines := oldSideLines(h)
	for delta := 0; delta <= cfg.MaxFuzz; delta++ {
		for _, pos := range []int{target - delta, target + delta} {
			if pos < 0 || pos > len(lines) {
				continue
			}
			if matchesAt(lines, pos, oldLines, cfg) {
				return pos, nil
			}
			if delta == 0 {
				break // avoid testing target twice when delta == 0
			}
		}
	}
	return 0, newPatchError("hunk failed to apply: no matching context found near line %d", target+1)
}

// oldSideLines extracts the context+delete lines a hunk expects to find in
// the original file, in order.
func oldSideLines(h Hunk) []string {
	var out []string
	for _, l := range h.Lines {
		if l.Kind == LineContext || l.Kind == LineDelete {
			out = append(out, l.Text)
		}
	}
	return out
}

func matchesAt(lines []string, pos int, want []string, cfg FuzzyConfig) bool {
	if pos+len(want) > len(lines) {
		return false
	}
	for i, w := range want {
		got := stripEOL(lines[pos+i])
		if !linesEqual(got, w, cfg) {
			return false
		}
	}
	return true
}

func linesEqual(a, b string, cfg FuzzyConfig) bool {
	if cfg.IgnoreWhitespace {
		a = strings.Join(strings.Fields(a), " ")
		b = strings.Join(strings.Fields(b), " ")
	}
	if cfg.IgnoreCase {
		a, b = strings.ToLower(a), strings.ToLower(b)
	}
	return a == b
}

// renderHunk produces the replacement lines for h's old-side span and
// returns how many original lines that span consumed.
func renderHunk(h Hunk) ([]string, int) {
	var out []string
	consumed := 0
	for _, l := range h.Lines {
		switch l.Kind {
		case LineContext:
			out = append(out, withEOL(l))
			consumed++
		case LineDelete:
			consumed++
		case LineInsert:
			out = append(out, withEOL(l))
		}
	}
	return out, consumed
}

func withEOL(l Line) string {
	if l.NoNewlineAtEOF {
		return l.Text
	}
	return l.Text + "\n"
}

func stripEOL(s string) string {
	return strings.TrimRight(s, "\r\n")
}

// splitLinesKeepEnds is like splitLines but also accepts input that may not
// end in a trailing newline, matching how original file bytes are read.
func splitLinesKeepEnds(s string) []string {
	return splitLines(s)
}
