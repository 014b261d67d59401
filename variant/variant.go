// Package variant implements the variant expander (spec.md §4.4, component
// E): Cartesian product enumeration over a variant configuration, dedupe by
// accessed-variable projection, and the build-hash/prefix/build-string
// computation.
package variant

import (
	"sort"

	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/recipe/eval"
	"github.com/archlayer/pkgforge/recipe/stage0"
	"github.com/archlayer/pkgforge/recipe/stage1"
	"github.com/archlayer/pkgforge/template"
)

// Config is a parsed variant configuration file: an axis → candidate
// values mapping plus zip-groups and run-export pinning (spec.md §6
// "Variant configuration file").
type Config struct {
	Axes          map[string][]string
	ZipKeys       [][]string
	PinRunAsBuild map[string]bool
}

// RenderedVariant is one surviving build point, ready for the build driver
// (spec.md §4.4 "Output").
type RenderedVariant struct {
	Recipe         *stage1.Recipe
	ActualVariant  map[string]string
	Hash           string
	BuildString    string
	TargetPlatform string
}

// Expand runs the full algorithm of spec.md §4.4: candidate generation,
// evaluation probe, projection/dedupe, and hash/prefix/build-string
// computation.
func Expand(recipe *stage0.Recipe, cfg Config, platform string) ([]RenderedVariant, error) {
	candidates := cartesianProduct(cfg)
	if len(candidates) == 0 {
		candidates = []map[string]any{{}}
	}

	type probe struct {
		result *eval.Result
		point  map[string]any
	}
	var probes []probe
	seen := map[string]bool{}

	for _, point := range candidates {
		res, err := eval.Evaluate(recipe, point, platform, template.Lenient)
		if err != nil {
			return nil, err
		}
		key := projectionKey(res.UsedKeys, point, platform)
		if seen[key] {
			continue
		}
		seen[key] = true
		probes = append(probes, probe{result: res, point: point})
	}
	if len(probes) == 0 {
		return nil, diag.New(diag.KindVariant, diag.Span{}, "no variants survive dedupe")
	}

	out := make([]RenderedVariant, 0, len(probes))
	for _, p := range probes {
		rv, err := finalize(p.result, p.point, platform)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, nil
}

// projectionKey identifies a candidate's equivalence class: two candidates
// that agree on used_keys ∪ {target_platform, channel_targets,
// channel_sources} are equivalent (spec.md §4.4 step 3). Channel
// targets/sources are not modeled as variant axes in this module's scope,
// so the key reduces to used_keys ∪ target_platform.
func projectionKey(usedKeys map[string]bool, point map[string]any, platform string) string {
	names := make([]string, 0, len(usedKeys))
	for k := range usedKeys {
		names = append(names, k)
	}
	sort.Strings(names)

	key := platform + "|"
	for _, n := range names {
		key += n + "=" + stringifyAny(point[n]) + ";"
	}
	return key
}

func stringifyAny(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int64:
		return itoa(t)
	default:
		return ""
	}
}

func itoa(i int64) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
