package diag

// Suggest returns the entries of candidates within editDistance 2 of name,
// sorted by closeness, for use in "undefined variable" / "unknown key"
// diagnostics (spec.md §7). This is a small local utility, not a general
// string-similarity library: the only third-party candidate in the pack
// (agext/levenshtein) reaches the tree solely as a transitive dependency of
// a TUI library the teacher pulls in for an unrelated reason, so leaning on
// it here would mean depending on something never actually chosen for this
// concern. A handful of lines of Levenshtein distance is cheaper and clearer
// than that implicit coupling.
func Suggest(name string, candidates []string) []string {
	type scored struct {
		name string
		dist int
	}
	var out []scored
	for _, c := range candidates {
		d := levenshtein(name, c)
		if d <= 2 {
			out = append(out, scored{c, d})
		}
	}
	// insertion sort: suggestion lists are short
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].dist > out[j].dist; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	names := make([]string, len(out))
	for i, s := range out {
		names[i] = s.name
	}
	return names
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
