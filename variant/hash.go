package variant

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/archlayer/pkgforge/recipe/eval"
	"github.com/archlayer/pkgforge/recipe/stage1"
	"github.com/archlayer/pkgforge/template"
)

// languageKeys orders the language-pin prefix contributions deterministically
// (spec.md §4.4 step 5).
var languageKeys = []struct {
	variantKey, prefix, depName string
}{
	{"python", "py", "python"},
	{"numpy", "np", "numpy"},
	{"perl", "pl", "perl"},
	{"r_base", "r", "r-base"},
	{"pypy", "pypy", "pypy"},
	{"lua", "lua", "lua"},
}

// noarchExcludedKeys are dropped from the hashed variant for the
// corresponding noarch kind (spec.md §4.4 step 4).
func noarchExcludedKeys(kind stage1.NoArchKind) map[string]bool {
	if kind == stage1.NoArchPython {
		return map[string]bool{"python": true}
	}
	return nil
}

func finalize(res *eval.Result, point map[string]any, platform string) (RenderedVariant, error) {
	recipe := res.Recipe
	excluded := noarchExcludedKeys(recipe.Build.NoArch)

	always := map[string]bool{}
	for _, k := range recipe.Build.VariantKeys {
		always[normalizeKey(k)] = true
	}

	actual := map[string]string{}
	for k := range res.UsedKeys {
		if excluded[k] {
			continue
		}
		actual[k] = stringifyAny(point[k])
	}
	for k := range always {
		if excluded[k] || actual[k] != "" {
			continue
		}
		if v, ok := point[k]; ok {
			actual[k] = stringifyAny(v)
		}
	}

	targetPlatform := platform
	if recipe.Build.NoArch != stage1.NoArchNone {
		targetPlatform = "noarch"
	}
	actual["target_platform"] = targetPlatform

	hash := computeHash(actual)
	prefix := computePrefix(recipe, actual)

	buildString := prefix + "h" + hash + "_" + strconv.FormatInt(recipe.Build.Number, 10)
	if recipe.Build.String != nil {
		rendered, err := renderUserBuildString(recipe.Build.String.Source, hash, actual, platform)
		if err != nil {
			return RenderedVariant{}, err
		}
		buildString = rendered
	}

	return RenderedVariant{
		Recipe:         recipe,
		ActualVariant:  actual,
		Hash:           hash,
		BuildString:    buildString,
		TargetPlatform: targetPlatform,
	}, nil
}

// computeHash implements spec.md §4.4 step 4: canonical JSON (sorted keys,
// no whitespace) over actual_variant, SHA-256, first 7 hex digits.
func computeHash(actual map[string]string) string {
	keys := make([]string, 0, len(actual))
	for k := range actual {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.WriteString(strconv.Quote(actual[k]))
	}
	b.WriteByte('}')

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:7]
}

// computePrefix implements spec.md §4.4 step 5: an empty prefix for any
// noarch package, otherwise the ordered concatenation of language-pin
// contributions the package's host requirements actually depend on.
func computePrefix(recipe *stage1.Recipe, actual map[string]string) string {
	if recipe.Build.NoArch != stage1.NoArchNone {
		return ""
	}
	hostNames := map[string]bool{}
	for _, d := range recipe.Requirements.Host {
		if d.Kind == stage1.DepMatchSpec {
			hostNames[strings.Fields(d.Raw)[0]] = true
		}
	}

	var prefix strings.Builder
	for _, lk := range languageKeys {
		if !hostNames[lk.depName] {
			continue
		}
		v, ok := actual[lk.variantKey]
		if !ok {
			continue
		}
		prefix.WriteString(lk.prefix)
		prefix.WriteString(versionDigits(v))
	}
	return prefix.String()
}

// versionDigits turns "3.12" into "312": major+minor digits, dropping dots.
func versionDigits(v string) string {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return strings.ReplaceAll(v, ".", "")
	}
	return parts[0] + parts[1]
}

// renderUserBuildString re-renders a user-supplied build.string template
// with `hash` and the actual-variant keys in scope (spec.md §4.4 step 5).
// `hash_inputs` is not defined; under Lenient handling it renders as "".
func renderUserBuildString(src, hash string, actual map[string]string, platform string) (string, error) {
	vars := map[string]any{"hash": hash}
	for k, v := range actual {
		vars[k] = v
	}
	ctx := template.NewContext(vars, platform, template.Lenient)
	return template.NewEngine().RenderStr(src, ctx)
}
