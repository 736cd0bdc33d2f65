package blend

import (
	"fmt"
	"math"
	"strings"
)

// Built-in separable mode names.
const (
	Multiply    = "multiply"
	Screen      = "screen"
	Overlay     = "overlay"
	Darken      = "darken"
	Lighten     = "lighten"
	ColorDodge  = "color-dodge"
	ColorBurn   = "color-burn"
	HardLight   = "hard-light"
	SoftLight   = "soft-light"
	Difference  = "difference"
	Exclusion   = "exclusion"
	LinearBurn  = "linear-burn"
	LinearDodge = "linear-dodge"
	Subtract    = "subtract"
	Divide      = "divide"
)

func init() {
	// Formulas follow the W3C Compositing and Blending Level 1 separable
	// blend modes, with base as the backdrop channel and blend as the
	// source channel. None of them clamp: color-dodge at blend == 1 and
	// divide at blend == 0 produce non-finite values that propagate
	// unchanged into later pipeline stages.
	mustRegister(separable(Multiply, "multiply",
		"base * blend",
		"base * blend",
		func(base, blend float64) float64 { return base * blend }))

	mustRegister(separable(Screen, "screen",
		"1.0 - (1.0 - base) * (1.0 - blend)",
		"1.0 - (1.0 - base) * (1.0 - blend)",
		func(base, blend float64) float64 { return 1 - (1-base)*(1-blend) }))

	mustRegister(separable(Overlay, "overlay",
		"(base < 0.5) ? (2.0 * base * blend) : (1.0 - 2.0 * (1.0 - base) * (1.0 - blend))",
		"select(1.0 - 2.0 * (1.0 - base) * (1.0 - blend), 2.0 * base * blend, base < 0.5)",
		func(base, blend float64) float64 {
			if base < 0.5 {
				return 2 * base * blend
			}
			return 1 - 2*(1-base)*(1-blend)
		}))

	mustRegister(separable(Darken, "darken",
		"min(base, blend)",
		"min(base, blend)",
		math.Min))

	mustRegister(separable(Lighten, "lighten",
		"max(base, blend)",
		"max(base, blend)",
		math.Max))

	mustRegister(separable(ColorDodge, "colorDodge",
		"base / (1.0 - blend)",
		"base / (1.0 - blend)",
		func(base, blend float64) float64 { return base / (1 - blend) }))

	mustRegister(separable(ColorBurn, "colorBurn",
		"1.0 - (1.0 - base) / blend",
		"1.0 - (1.0 - base) / blend",
		func(base, blend float64) float64 { return 1 - (1-base)/blend }))

	mustRegister(separable(HardLight, "hardLight",
		"(blend < 0.5) ? (2.0 * base * blend) : (1.0 - 2.0 * (1.0 - base) * (1.0 - blend))",
		"select(1.0 - 2.0 * (1.0 - base) * (1.0 - blend), 2.0 * base * blend, blend < 0.5)",
		func(base, blend float64) float64 {
			if blend < 0.5 {
				return 2 * base * blend
			}
			return 1 - 2*(1-base)*(1-blend)
		}))

	mustRegister(separable(SoftLight, "softLight",
		"(blend < 0.5) ? (2.0 * base * blend + base * base * (1.0 - 2.0 * blend)) : (sqrt(base) * (2.0 * blend - 1.0) + 2.0 * base * (1.0 - blend))",
		"select(sqrt(base) * (2.0 * blend - 1.0) + 2.0 * base * (1.0 - blend), 2.0 * base * blend + base * base * (1.0 - 2.0 * blend), blend < 0.5)",
		func(base, blend float64) float64 {
			if blend < 0.5 {
				return 2*base*blend + base*base*(1-2*blend)
			}
			return math.Sqrt(base)*(2*blend-1) + 2*base*(1-blend)
		}))

	mustRegister(separable(Difference, "difference",
		"abs(base - blend)",
		"abs(base - blend)",
		func(base, blend float64) float64 { return math.Abs(base - blend) }))

	mustRegister(separable(Exclusion, "exclusion",
		"base + blend - 2.0 * base * blend",
		"base + blend - 2.0 * base * blend",
		func(base, blend float64) float64 { return base + blend - 2*base*blend }))

	mustRegister(separable(LinearBurn, "linearBurn",
		"max(0.0, base + blend - 1.0)",
		"max(0.0, base + blend - 1.0)",
		func(base, blend float64) float64 { return math.Max(0, base+blend-1) }))

	mustRegister(separable(LinearDodge, "linearDodge",
		"min(1.0, base + blend)",
		"min(1.0, base + blend)",
		func(base, blend float64) float64 { return math.Min(1, base+blend) }))

	mustRegister(separable(Subtract, "subtract",
		"max(0.0, base - blend)",
		"max(0.0, base - blend)",
		func(base, blend float64) float64 { return math.Max(0, base-blend) }))

	mustRegister(separable(Divide, "divide",
		"base / blend",
		"base / blend",
		func(base, blend float64) float64 { return base / blend }))
}

// separable builds a full contract for a separable blend mode from the two
// per-channel scalar expressions. The vector and main scaffolding is shared,
// so the re-mix by opacity and the output protocol cannot drift between
// modes or backends.
//
// fn is the scalar function name; the vector function is named blend<Fn>.
func separable(mode, fn, glExpr, wgslExpr string, ref func(base, blend float64) float64) *Contract {
	vector := "blend" + strings.ToUpper(fn[:1]) + fn[1:]
	return &Contract{
		Mode: mode,
		GL: Fragments{
			Scalar: glslScalar(fn, glExpr),
			Vector: glslVector(vector, fn),
			Main:   glslMain(vector),
		},
		GPU: Fragments{
			Scalar: wgslScalar(fn, wgslExpr),
			Vector: wgslVector(vector, fn),
			Main:   wgslMain(vector),
		},
		Ref: ref,
	}
}

func glslScalar(name, expr string) string {
	return fmt.Sprintf(`float %s(float base, float blend)
{
    return %s;
}
`, name, expr)
}

func glslVector(name, scalar string) string {
	return fmt.Sprintf(`vec3 %s(vec3 base, vec3 blend, float opacity)
{
    vec3 blended = vec3(
        %s(base.r, blend.r),
        %s(base.g, blend.g),
        %s(base.b, blend.b)
    );
    return blended * opacity + base * (1.0 - opacity);
}
`, name, scalar, scalar, scalar)
}

func glslMain(vector string) string {
	return fmt.Sprintf("finalColor = vec4(%s(back.rgb, front.rgb, front.a), uBlend);\n", vector)
}

func wgslScalar(name, expr string) string {
	return fmt.Sprintf(`fn %s(base: f32, blend: f32) -> f32 {
    return %s;
}
`, name, expr)
}

func wgslVector(name, scalar string) string {
	return fmt.Sprintf(`fn %s(base: vec3<f32>, blend: vec3<f32>, opacity: f32) -> vec3<f32> {
    let blended = vec3<f32>(
        %s(base.r, blend.r),
        %s(base.g, blend.g),
        %s(base.b, blend.b)
    );
    return blended * opacity + base * (1.0 - opacity);
}
`, name, scalar, scalar, scalar)
}

func wgslMain(vector string) string {
	return fmt.Sprintf("result = vec4<f32>(%s(back.rgb, front.rgb, front.a), blendUniforms.uBlend);\n", vector)
}
