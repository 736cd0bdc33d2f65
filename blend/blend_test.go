package blend

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestColorDodgeScalarValues(t *testing.T) {
	c, err := Get(ColorDodge)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	tests := []struct {
		base, blend, want float64
	}{
		{0.5, 0.25, 0.5 / 0.75},
		{0.2, 0.0, 0.2},
		{0.0, 0.5, 0.0},
		{1.0, 0.5, 2.0},
	}
	for _, tt := range tests {
		got := c.Ref(tt.base, tt.blend)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("colorDodge(%v, %v): expected %v, got %v", tt.base, tt.blend, tt.want, got)
		}
	}
}

func TestColorDodgeDivisionBoundaryUnclamped(t *testing.T) {
	c, err := Get(ColorDodge)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// blend == 1 divides by zero. The contract does not clamp: a positive
	// base yields +Inf, a zero base yields NaN, and both propagate.
	if got := c.Ref(0.5, 1.0); !math.IsInf(got, 1) {
		t.Errorf("colorDodge(0.5, 1.0): expected +Inf, got %v", got)
	}
	if got := c.Ref(0.0, 1.0); !math.IsNaN(got) {
		t.Errorf("colorDodge(0.0, 1.0): expected NaN, got %v", got)
	}
}

func TestColorDodgeFormulaAgreesAcrossBackends(t *testing.T) {
	c, err := Get(ColorDodge)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	const formula = "base / (1.0 - blend)"
	if !strings.Contains(c.GL.Scalar, formula) {
		t.Errorf("GLSL scalar does not carry %q:\n%s", formula, c.GL.Scalar)
	}
	if !strings.Contains(c.GPU.Scalar, formula) {
		t.Errorf("WGSL scalar does not carry %q:\n%s", formula, c.GPU.Scalar)
	}
}

func TestBlendRGBOpacityMix(t *testing.T) {
	c, err := Get(Multiply)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	base := [3]float64{0.5, 0.5, 0.5}
	blend := [3]float64{0.5, 1.0, 0.0}

	// Opacity 0 leaves the base untouched.
	got := c.BlendRGB(base, blend, 0)
	if got != base {
		t.Errorf("opacity 0: expected base %v, got %v", base, got)
	}

	// Opacity 1 is the pure blend result.
	got = c.BlendRGB(base, blend, 1)
	want := [3]float64{0.25, 0.5, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("opacity 1, channel %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	// Opacity 0.5 interpolates linearly.
	got = c.BlendRGB(base, blend, 0.5)
	for i := range want {
		mid := want[i]*0.5 + base[i]*0.5
		if math.Abs(got[i]-mid) > 1e-9 {
			t.Errorf("opacity 0.5, channel %d: expected %v, got %v", i, mid, got[i])
		}
	}
}

func TestReferenceFormulas(t *testing.T) {
	tests := []struct {
		mode              string
		base, blend, want float64
	}{
		{Multiply, 0.5, 0.5, 0.25},
		{Screen, 0.5, 0.5, 0.75},
		{Overlay, 0.25, 0.5, 0.25},
		{Overlay, 0.75, 0.5, 0.75},
		{Darken, 0.3, 0.7, 0.3},
		{Lighten, 0.3, 0.7, 0.7},
		{ColorBurn, 0.5, 0.5, 0.0},
		{HardLight, 0.5, 0.25, 0.25},
		{Difference, 0.2, 0.7, 0.5},
		{Exclusion, 0.5, 0.5, 0.5},
		{LinearBurn, 0.4, 0.4, 0.0},
		{LinearDodge, 0.7, 0.7, 1.0},
		{Subtract, 0.7, 0.2, 0.5},
		{Divide, 0.25, 0.5, 0.5},
	}
	for _, tt := range tests {
		c, err := Get(tt.mode)
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", tt.mode, err)
		}
		got := c.Ref(tt.base, tt.blend)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s(%v, %v): expected %v, got %v", tt.mode, tt.base, tt.blend, tt.want, got)
		}
	}
}

func TestEveryModeValidates(t *testing.T) {
	modes := Modes()
	if len(modes) < 15 {
		t.Fatalf("expected at least 15 built-in modes, got %d", len(modes))
	}
	for _, mode := range modes {
		c, err := Get(mode)
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", mode, err)
		}
		if err := c.Validate(); err != nil {
			t.Errorf("mode %q fails validation: %v", mode, err)
		}
	}
}

func TestEveryModeFollowsNamingProtocol(t *testing.T) {
	for _, mode := range Modes() {
		c, err := Get(mode)
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", mode, err)
		}

		// Both main fragments mix back/front/front.a and bind the external
		// blend-strength uniform, never the per-pixel alpha.
		for _, main := range []string{c.GL.Main, c.GPU.Main} {
			if !strings.Contains(main, "back.rgb, front.rgb, front.a") {
				t.Errorf("mode %q: main fragment breaks the input protocol:\n%s", mode, main)
			}
			if !strings.Contains(main, "uBlend") {
				t.Errorf("mode %q: main fragment does not bind uBlend:\n%s", mode, main)
			}
		}
		if !strings.Contains(c.GL.Main, "finalColor = vec4(") {
			t.Errorf("mode %q: GLSL main does not write finalColor:\n%s", mode, c.GL.Main)
		}
		if !strings.Contains(c.GPU.Main, "result = vec4<f32>(") {
			t.Errorf("mode %q: WGSL main does not write result:\n%s", mode, c.GPU.Main)
		}

		// The vector fragment re-mixes by opacity identically everywhere.
		const mix = "blended * opacity + base * (1.0 - opacity)"
		if !strings.Contains(c.GL.Vector, mix) {
			t.Errorf("mode %q: GLSL vector misses the opacity mix", mode)
		}
		if !strings.Contains(c.GPU.Vector, mix) {
			t.Errorf("mode %q: WGSL vector misses the opacity mix", mode)
		}
	}
}

func TestRegisterRejectsMissingBackend(t *testing.T) {
	c, err := Get(ColorDodge)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	broken := &Contract{Mode: "broken", GL: c.GL, Ref: c.Ref}
	if err := Register(broken); !errors.Is(err, ErrMissingBackend) {
		t.Errorf("expected ErrMissingBackend, got %v", err)
	}
	if IsRegistered("broken") {
		t.Error("invalid contract must not be registered")
	}

	// A single empty role is just as broken as a missing backend.
	partial := &Contract{Mode: "partial", GL: c.GL, GPU: Fragments{Scalar: "x"}, Ref: c.Ref}
	if err := Register(partial); !errors.Is(err, ErrMissingBackend) {
		t.Errorf("expected ErrMissingBackend for partial fragments, got %v", err)
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	c, err := Get(ColorDodge)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	custom := &Contract{Mode: "custom-dodge", GL: c.GL, GPU: c.GPU, Ref: c.Ref}
	if err := Register(custom); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	defer Unregister("custom-dodge")

	got, err := Get("custom-dodge")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != custom {
		t.Error("expected the registered contract by identity")
	}

	Unregister("custom-dodge")
	if _, err := Get("custom-dodge"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode after Unregister, got %v", err)
	}
}

func TestGetUnknownMode(t *testing.T) {
	if _, err := Get("no-such-mode"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}

func TestBackendString(t *testing.T) {
	if BackendGL.String() != "gl" {
		t.Errorf("expected %q, got %q", "gl", BackendGL.String())
	}
	if BackendGPU.String() != "gpu" {
		t.Errorf("expected %q, got %q", "gpu", BackendGPU.String())
	}
}

func TestFragmentsUnknownBackend(t *testing.T) {
	c, err := Get(ColorDodge)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := c.Fragments(Backend(99)); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
}
