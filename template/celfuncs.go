package template

import (
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// buildFunctions declares the registered-function table of spec.md §4.2 as
// CEL environment options, closing over ctx so each function can read the
// variant (and record accessed/undefined keys) the same way a bare
// identifier reference does.
func buildFunctions(ctx *Context) []cel.EnvOption {
	return []cel.EnvOption{
		cel.Function("compiler",
			cel.Overload("compiler_string", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(lang ref.Val) ref.Val {
					out, err := compilerFn(ctx, string(lang.(types.String)))
					if err != nil {
						return types.NewErr(err.Error())
					}
					return types.String(out)
				}),
			),
		),
		cel.Function("stdlib",
			cel.Overload("stdlib_string", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(lang ref.Val) ref.Val {
					out, err := stdlibFn(ctx, string(lang.(types.String)))
					if err != nil {
						return types.NewErr(err.Error())
					}
					return types.String(out)
				}),
			),
		),
		cel.Function("cdt",
			cel.Overload("cdt_string", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(name ref.Val) ref.Val {
					out, err := cdtFn(ctx, string(name.(types.String)))
					if err != nil {
						return types.NewErr(err.Error())
					}
					return types.String(out)
				}),
			),
		),
		cel.Function("pin_subpackage",
			cel.Overload("pin_subpackage_string", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(name ref.Val) ref.Val {
					out, err := pinSubpackageFn(string(name.(types.String)), nil)
					if err != nil {
						return types.NewErr(err.Error())
					}
					return types.String(out)
				}),
			),
			cel.Overload("pin_subpackage_string_map", []*cel.Type{cel.StringType, cel.MapType(cel.StringType, cel.StringType)}, cel.StringType,
				cel.BinaryBinding(func(name, kwargs ref.Val) ref.Val {
					out, err := pinSubpackageFn(string(name.(types.String)), toStringMap(kwargs))
					if err != nil {
						return types.NewErr(err.Error())
					}
					return types.String(out)
				}),
			),
		),
		cel.Function("pin_compatible",
			cel.Overload("pin_compatible_string", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(name ref.Val) ref.Val {
					out, err := pinCompatibleFn(string(name.(types.String)), nil)
					if err != nil {
						return types.NewErr(err.Error())
					}
					return types.String(out)
				}),
			),
			cel.Overload("pin_compatible_string_map", []*cel.Type{cel.StringType, cel.MapType(cel.StringType, cel.StringType)}, cel.StringType,
				cel.BinaryBinding(func(name, kwargs ref.Val) ref.Val {
					out, err := pinCompatibleFn(string(name.(types.String)), toStringMap(kwargs))
					if err != nil {
						return types.NewErr(err.Error())
					}
					return types.String(out)
				}),
			),
		),
		cel.Function("match",
			// The variant-value argument is already forced to "" when
			// undefined by EvalExpr's Lenient handling (Strict and
			// Semistrict report an undefined variable instead), so an
			// empty left-hand side is treated as "satisfies anything" —
			// the "undefined value → true" rule of spec.md §4.2.
			cel.Overload("match_string_string", []*cel.Type{cel.StringType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(func(value, spec ref.Val) ref.Val {
					v := string(value.(types.String))
					if v == "" {
						return types.True
					}
					ok, err := matchesVersionSpec(v, string(spec.(types.String)))
					if err != nil {
						return types.NewErr(err.Error())
					}
					return types.Bool(ok)
				}),
			),
		),
		cel.Function("is_linux",
			cel.Overload("is_linux_void", []*cel.Type{}, cel.BoolType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val { return types.Bool(isLinux(ctx.Platform)) }),
			),
		),
		cel.Function("is_osx",
			cel.Overload("is_osx_void", []*cel.Type{}, cel.BoolType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val { return types.Bool(isOSX(ctx.Platform)) }),
			),
		),
		cel.Function("is_windows",
			cel.Overload("is_windows_void", []*cel.Type{}, cel.BoolType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val { return types.Bool(isWindows(ctx.Platform)) }),
			),
		),
		cel.Function("is_unix",
			cel.Overload("is_unix_void", []*cel.Type{}, cel.BoolType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val { return types.Bool(isUnix(ctx.Platform)) }),
			),
		),
		cel.Function("load_from_file",
			cel.Overload("load_from_file_string", []*cel.Type{cel.StringType}, cel.DynType,
				cel.UnaryBinding(func(path ref.Val) ref.Val {
					out, err := loadFromFile(ctx, string(path.(types.String)))
					if err != nil {
						return types.NewErr(err.Error())
					}
					return types.DefaultTypeAdapter.NativeToValue(out)
				}),
			),
		),
		cel.Function("get",
			cel.MemberOverload("env_get_2", []*cel.Type{cel.DynType, cel.StringType}, cel.StringType,
				cel.BinaryBinding(func(recv, name ref.Val) ref.Val {
					return types.String(envGet(string(name.(types.String)), ""))
				}),
			),
			cel.MemberOverload("env_get_3", []*cel.Type{cel.DynType, cel.StringType, cel.StringType}, cel.StringType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val {
					name := string(args[1].(types.String))
					def := string(args[2].(types.String))
					return types.String(envGet(name, def))
				}),
			),
		),
		cel.Function("exists",
			cel.MemberOverload("env_exists_2", []*cel.Type{cel.DynType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(func(recv, name ref.Val) ref.Val {
					return types.Bool(envExists(string(name.(types.String))))
				}),
			),
		),
		cel.Function("defined",
			cel.Overload("defined_dyn", []*cel.Type{cel.DynType}, cel.BoolType,
				cel.UnaryBinding(func(v ref.Val) ref.Val { return types.Bool(!types.IsUnknownOrError(v)) }),
			),
		),
	}
}

func toStringMap(v ref.Val) map[string]string {
	m, ok := v.Value().(map[ref.Val]ref.Val)
	out := map[string]string{}
	if !ok {
		return out
	}
	for k, val := range m {
		out[keyString(k)] = keyString(val)
	}
	return out
}

func keyString(v ref.Val) string {
	if s, ok := v.Value().(string); ok {
		return s
	}
	return ""
}
