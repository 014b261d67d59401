package variant

import (
	"github.com/goccy/go-yaml"

	"github.com/archlayer/pkgforge/diag"
)

// LoadConfig parses a variant configuration file (spec.md §6): a YAML map
// from axis name to its list of candidate values, with the reserved keys
// `zip_keys` (list of axis groups that vary together) and
// `pin_run_as_build` (axes whose host/run pin follows the build pin).
func LoadConfig(dt []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(dt, &raw); err != nil {
		return Config{}, diag.Wrap(diag.KindVariant, diag.Span{}, err, "parsing variant configuration")
	}

	cfg := Config{Axes: map[string][]string{}, PinRunAsBuild: map[string]bool{}}
	for key, val := range raw {
		switch key {
		case "zip_keys":
			groups, ok := val.([]any)
			if !ok {
				return Config{}, diag.New(diag.KindVariant, diag.Span{}, "zip_keys must be a list of lists")
			}
			for _, g := range groups {
				cfg.ZipKeys = append(cfg.ZipKeys, toStringSlice(g))
			}
		case "pin_run_as_build":
			names, ok := val.(map[string]any)
			if !ok {
				return Config{}, diag.New(diag.KindVariant, diag.Span{}, "pin_run_as_build must be a map")
			}
			for name := range names {
				cfg.PinRunAsBuild[name] = true
			}
		default:
			cfg.Axes[normalizeKey(key)] = toStringSlice(val)
		}
	}
	return cfg, nil
}

func toStringSlice(val any) []string {
	list, ok := val.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case int:
			out = append(out, itoa(int64(t)))
		case int64:
			out = append(out, itoa(t))
		}
	}
	return out
}
