package variant

import "strings"

// normalizeKey lowercases an axis name and replaces `-` with `_`, per
// spec.md §3 "Variant".
func normalizeKey(k string) string {
	return strings.ReplaceAll(strings.ToLower(k), "-", "_")
}

// cartesianProduct enumerates every candidate variant assignment,
// collapsing zip-groups into lockstep tuples first (spec.md §4.4 step 1).
func cartesianProduct(cfg Config) []map[string]any {
	zipped := map[string]bool{}
	for _, group := range cfg.ZipKeys {
		for _, k := range group {
			zipped[normalizeKey(k)] = true
		}
	}

	// axisValues holds one entry per independent axis: either a normal
	// single-key axis, or a zip-group tuple axis whose "values" are
	// pre-merged maps.
	var axisValues [][]map[string]any

	for _, group := range cfg.ZipKeys {
		n := 0
		for _, k := range group {
			if vals := cfg.Axes[k]; len(vals) > n {
				n = len(vals)
			}
		}
		var tuples []map[string]any
		for i := 0; i < n; i++ {
			tuple := map[string]any{}
			for _, k := range group {
				vals := cfg.Axes[k]
				if len(vals) == 0 {
					continue
				}
				v := vals[i%len(vals)]
				tuple[normalizeKey(k)] = v
			}
			tuples = append(tuples, tuple)
		}
		if len(tuples) > 0 {
			axisValues = append(axisValues, tuples)
		}
	}

	var plainKeys []string
	for k := range cfg.Axes {
		if !zipped[normalizeKey(k)] {
			plainKeys = append(plainKeys, k)
		}
	}
	sortStrings(plainKeys)
	for _, k := range plainKeys {
		var tuples []map[string]any
		for _, v := range cfg.Axes[k] {
			tuples = append(tuples, map[string]any{normalizeKey(k): v})
		}
		if len(tuples) > 0 {
			axisValues = append(axisValues, tuples)
		}
	}

	combos := []map[string]any{{}}
	for _, values := range axisValues {
		var next []map[string]any
		for _, combo := range combos {
			for _, v := range values {
				merged := make(map[string]any, len(combo)+len(v))
				for k, val := range combo {
					merged[k] = val
				}
				for k, val := range v {
					merged[k] = val
				}
				next = append(next, merged)
			}
		}
		combos = next
	}
	return combos
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
