// Package blend implements the cross-backend blend-mode contract: for every
// compositing mode, declarative shader fragments with identical per-pixel
// math for the GL (rasterization, GLSL) and the GPU (compute-oriented, WGSL)
// shading backends.
//
// A pipeline assembler selects a contract by mode name and backend kind and
// concatenates its three fragments into a generated program. No shader
// compiler checks this contract across variants, so every fragment follows a
// fixed naming protocol:
//
//   - back: background color (vec4), bound by the assembler
//   - front: foreground color, rgb plus per-pixel alpha (vec4)
//   - uBlend: external blend-strength scalar uniform, distinct from front.a
//     (WGSL reaches it as blendUniforms.uBlend)
//   - finalColor (GLSL) / result (WGSL): the output color target
//
// The scalar functions compute unclamped results. Modes that divide, like
// color-dodge at blend == 1, propagate infinities and NaNs downstream; that
// boundary behavior is backend-dependent and deliberately not papered over.
package blend

import (
	"errors"
	"fmt"
)

// Blend errors.
var (
	// ErrMissingBackend is returned when a contract omits one of the two
	// required backend fragment sets, or leaves a fragment role empty.
	ErrMissingBackend = errors.New("blend: missing backend implementation")

	// ErrUnknownMode is returned when looking up an unregistered mode.
	ErrUnknownMode = errors.New("blend: unknown blend mode")

	// ErrUnknownBackend is returned for a backend kind outside the enum.
	ErrUnknownBackend = errors.New("blend: unknown backend kind")
)

// Backend identifies one of the two GPU shading-language targets.
type Backend uint8

// Backend kinds.
const (
	// BackendGL is the rasterization-oriented backend; fragments are GLSL.
	BackendGL Backend = iota

	// BackendGPU is the compute-oriented backend; fragments are WGSL.
	BackendGPU
)

// String returns a human-readable backend name.
func (b Backend) String() string {
	switch b {
	case BackendGL:
		return "gl"
	case BackendGPU:
		return "gpu"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(b))
	}
}

// Fragments holds the three textual roles a backend entry must expose.
type Fragments struct {
	// Scalar is the pure per-channel blend function
	// fn(base, blend) -> result, defined for inputs conceptually in [0,1]
	// but not clamped.
	Scalar string

	// Vector applies Scalar per color channel and interpolates back
	// toward the base color by the source alpha:
	// blended*opacity + base*(1-opacity).
	Vector string

	// Main writes vec4(vector(back.rgb, front.rgb, front.a), uBlend) to
	// the output target.
	Main string
}

// complete reports whether all three roles are filled.
func (f Fragments) complete() bool {
	return f.Scalar != "" && f.Vector != "" && f.Main != ""
}

// Contract is one blend mode's declaration for both shading backends.
// Contracts are immutable after construction and safe to share across any
// number of concurrent readers.
type Contract struct {
	// Mode is the kebab-case mode name, e.g. "color-dodge".
	Mode string

	// GL holds the GLSL fragments for the rasterization backend.
	GL Fragments

	// GPU holds the WGSL fragments for the compute-oriented backend.
	GPU Fragments

	// Ref is the CPU reference of the scalar blend function. Both backend
	// encodings must compute exactly this function; tests and software
	// fallbacks evaluate it.
	Ref func(base, blend float64) float64
}

// BlendRGB is the CPU mirror of the vector fragment: it applies Ref per
// channel and interpolates back toward base by opacity (the source alpha,
// not the external blend-strength uniform).
func (c *Contract) BlendRGB(base, blend [3]float64, opacity float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		blended := c.Ref(base[i], blend[i])
		out[i] = blended*opacity + base[i]*(1-opacity)
	}
	return out
}

// Fragments returns the fragment set for the given backend.
func (c *Contract) Fragments(b Backend) (Fragments, error) {
	switch b {
	case BackendGL:
		return c.GL, nil
	case BackendGPU:
		return c.GPU, nil
	default:
		return Fragments{}, fmt.Errorf("%w: %d", ErrUnknownBackend, uint8(b))
	}
}

// Validate checks the contract shape: a mode name, a CPU reference, and a
// complete fragment set for both backends.
func (c *Contract) Validate() error {
	if c.Mode == "" {
		return errors.New("blend: contract has no mode name")
	}
	if c.Ref == nil {
		return fmt.Errorf("blend: mode %q has no CPU reference", c.Mode)
	}
	if !c.GL.complete() {
		return fmt.Errorf("%w: mode %q, backend %s", ErrMissingBackend, c.Mode, BackendGL)
	}
	if !c.GPU.complete() {
		return fmt.Errorf("%w: mode %q, backend %s", ErrMissingBackend, c.Mode, BackendGPU)
	}
	return nil
}
