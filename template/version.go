package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/archlayer/pkgforge/diag"
)

// matchesVersionSpec implements the subset of conda version-spec syntax
// `match(variant_value, spec)` needs (spec.md §4.2): a spec is a
// comma-separated list of ANDed clauses, each an operator
// (`==`,`!=`,`>=`,`<=`,`>`,`<`) followed by a dotted version, or a bare
// `x.y.*` glob meaning "starts with x.y.".
func matchesVersionSpec(value, spec string) (bool, error) {
	for _, clause := range strings.Split(spec, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		ok, err := matchesClause(value, clause)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchesClause(value, clause string) (bool, error) {
	if strings.HasSuffix(clause, ".*") {
		prefix := strings.TrimSuffix(clause, "*")
		return strings.HasPrefix(value+".", prefix), nil
	}
	for _, op := range []string{">=", "<=", "==", "!=", ">", "<"} {
		if strings.HasPrefix(clause, op) {
			want := strings.TrimSpace(strings.TrimPrefix(clause, op))
			cmp, err := compareVersions(value, want)
			if err != nil {
				return false, err
			}
			switch op {
			case ">=":
				return cmp >= 0, nil
			case "<=":
				return cmp <= 0, nil
			case "==":
				return cmp == 0, nil
			case "!=":
				return cmp != 0, nil
			case ">":
				return cmp > 0, nil
			case "<":
				return cmp < 0, nil
			}
		}
	}
	// bare version with no operator means exact match, per conda matchspec
	cmp, err := compareVersions(value, clause)
	if err != nil {
		return false, err
	}
	return cmp == 0, nil
}

// compareVersions compares two dotted-numeric version strings component by
// component, treating a missing trailing component as zero.
func compareVersions(a, b string) (int, error) {
	as, err := splitVersion(a)
	if err != nil {
		return 0, err
	}
	bs, err := splitVersion(b)
	if err != nil {
		return 0, err
	}
	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv int
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		if av != bv {
			if av < bv {
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, nil
}

func splitVersion(v string) ([]int, error) {
	parts := strings.Split(v, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, diag.New(diag.KindEvaluation, diag.Span{}, "invalid version component %q in %q", p, v)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, diag.New(diag.KindEvaluation, diag.Span{}, "%s", fmt.Sprintf("empty version %q", v))
	}
	return out, nil
}
