package template

import "regexp"

// identRe matches bare identifiers in an expression, used to pre-declare
// CEL environment variables for every variant key (and candidate function
// name) the expression might reference. CEL requires all free variables to
// be declared before compilation, but the set of variant keys is only known
// at evaluation time, so this module builds a fresh [cel.Env] per call
// rather than once at startup.
var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

var celKeywords = map[string]bool{
	"true": true, "false": true, "null": true, "in": true,
}

// freeIdentifiers returns the distinct bare-word tokens in expr that are
// not CEL keywords and not immediately followed by `(` (those are function
// calls, declared separately in buildFunctions).
func freeIdentifiers(expr string) []string {
	seen := map[string]bool{}
	var out []string
	locs := identRe.FindAllStringIndex(expr, -1)
	for _, loc := range locs {
		word := expr[loc[0]:loc[1]]
		if celKeywords[word] || seen[word] {
			continue
		}
		// skip the member name in `env.get`/`env.exists` dotted calls and
		// the bare function identifier in `compiler(...)`-style calls.
		if loc[1] < len(expr) && expr[loc[1]] == '(' {
			continue
		}
		if loc[0] > 0 && expr[loc[0]-1] == '.' {
			continue
		}
		seen[word] = true
		out = append(out, word)
	}
	return out
}
