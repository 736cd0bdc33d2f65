package blend

import (
	"fmt"
	"strings"

	"github.com/gogpu/naga"
)

// Assemble concatenates the three fragments of a registered mode for the
// given backend, in scalar/vector/main order. The result is the textual
// payload a pipeline generator splices into its program template.
func Assemble(mode string, backend Backend) (string, error) {
	c, err := Get(mode)
	if err != nil {
		return "", err
	}
	f, err := c.Fragments(backend)
	if err != nil {
		return "", err
	}
	return f.Scalar + "\n" + f.Vector + "\n" + f.Main, nil
}

// glProgramTemplate is the GLSL ES 3.00 fragment shader the GL backend
// wraps blend fragments in. The sampler, uniform, and output names follow
// the fragment naming protocol (see the package comment).
const glProgramTemplate = `#version 300 es
precision mediump float;

in vec2 vTextureCoord;

uniform sampler2D uBackTexture;
uniform sampler2D uTexture;
uniform float uBlend;

out vec4 finalColor;

%s
%s
void main()
{
    vec4 back = texture(uBackTexture, vTextureCoord);
    vec4 front = texture(uTexture, vTextureCoord);

    %s}
`

// gpuProgramTemplate is the WGSL fragment shader the compute-oriented
// backend wraps blend fragments in.
const gpuProgramTemplate = `struct BlendUniforms {
    uBlend: f32,
}

@group(0) @binding(0) var uBackTexture: texture_2d<f32>;
@group(0) @binding(1) var uTexture: texture_2d<f32>;
@group(0) @binding(2) var uSampler: sampler;
@group(0) @binding(3) var<uniform> blendUniforms: BlendUniforms;

%s
%s
@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    let back = textureSample(uBackTexture, uSampler, uv);
    let front = textureSample(uTexture, uSampler, uv);

    var result: vec4<f32>;
    %s    return result;
}
`

// Program wraps a registered mode's fragments into a complete, standalone
// fragment shader for the given backend.
func Program(mode string, backend Backend) (string, error) {
	c, err := Get(mode)
	if err != nil {
		return "", err
	}
	f, err := c.Fragments(backend)
	if err != nil {
		return "", err
	}
	switch backend {
	case BackendGL:
		return fmt.Sprintf(glProgramTemplate, f.Scalar, f.Vector, indent(f.Main, 4)), nil
	default:
		return fmt.Sprintf(gpuProgramTemplate, f.Scalar, f.Vector, indent(f.Main, 4)), nil
	}
}

// CompileSPIRV assembles the complete WGSL program for a mode and compiles
// it to SPIR-V words through naga, validating the fragment protocol against
// a real shader front end.
func CompileSPIRV(mode string) ([]uint32, error) {
	source, err := Program(mode, BackendGPU)
	if err != nil {
		return nil, err
	}
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("blend: compile %q: %w", mode, err)
	}

	// SPIR-V is little-endian 32-bit words.
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirvCode, nil
}

// indent prefixes every non-empty line after the first with n spaces, so a
// multi-line fragment stays aligned inside the program template.
func indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = pad + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
