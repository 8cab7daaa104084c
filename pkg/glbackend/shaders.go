package glbackend

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.3-core/gl"
)

// The proxy geometry is the unit cube centred on the origin. Its texture
// coordinates run 0..1 on every face, so the fragment shader recovers the
// volume coordinate from the interpolated model-space position instead.
const vertexShaderSource = `
#version 410 core

uniform mat4 u_MVPMatrix;
uniform mat4 u_MVMatrix;
uniform mat4 u_MMatrix;

in vec3 a_Position;
in vec3 a_Normal;
in vec2 a_TexCoordinate;

out vec3 v_VolumePos;
out vec3 v_EyePos;
out vec3 v_EyeNormal;
out vec2 v_TexCoordinate;

void main() {
    v_VolumePos = a_Position + vec3(0.5);
    v_EyePos = vec3(u_MVMatrix * vec4(a_Position, 1.0));
    v_EyeNormal = normalize(vec3(u_MVMatrix * vec4(a_Normal, 0.0)));
    v_TexCoordinate = a_TexCoordinate;
    gl_Position = u_MVPMatrix * vec4(a_Position, 1.0);
}
`

// Front-to-back compositing along the view ray. Samples outside
// [uMin, uMax] are transparent; uAmax caps the accumulated opacity.
const fragmentShaderSource = `
#version 410 core

uniform sampler3D u_Texture;
uniform mat4 u_MVMatrix;
uniform mat4 u_VPMatrix;
uniform vec3 u_LightPos;

uniform float uAmax;
uniform float uMin;
uniform float uMax;
uniform float uDist;
uniform float uNumSteps;
uniform float u_Zoom;
uniform float uLightToggle;

in vec3 v_VolumePos;
in vec3 v_EyePos;
in vec3 v_EyeNormal;
in vec2 v_TexCoordinate;

out vec4 fragColor;

vec3 gradient(vec3 p, float h) {
    return vec3(
        texture(u_Texture, p + vec3(h, 0, 0)).r - texture(u_Texture, p - vec3(h, 0, 0)).r,
        texture(u_Texture, p + vec3(0, h, 0)).r - texture(u_Texture, p - vec3(0, h, 0)).r,
        texture(u_Texture, p + vec3(0, 0, h)).r - texture(u_Texture, p - vec3(0, 0, h)).r);
}

void main() {
    // Orthographic view: every ray runs along -Z in eye space
    mat3 toModel = inverse(mat3(u_MVMatrix));
    vec3 dir = normalize(toModel * vec3(0.0, 0.0, -1.0));

    float stepLen = 1.0 / max(uDist * max(u_Zoom, 0.0001), 1.0);
    int steps = int(max(uNumSteps, 0.0));

    vec3 pos = v_VolumePos;
    vec4 acc = vec4(0.0);

    for (int i = 0; i < steps; i++) {
        if (any(lessThan(pos, vec3(0.0))) || any(greaterThan(pos, vec3(1.0)))) {
            break;
        }

        float value = texture(u_Texture, pos).r;
        if (value >= uMin && value <= uMax) {
            vec3 color = vec3(value);
            if (uLightToggle > 0.5) {
                vec3 g = gradient(pos, stepLen);
                vec3 n = length(g) > 0.0 ? normalize(toModel * -g) : v_EyeNormal;
                vec3 l = normalize(u_LightPos - v_EyePos);
                color *= 0.3 + 0.7 * max(dot(normalize(mat3(u_MVMatrix) * n), l), 0.0);
            }
            float a = value * stepLen;
            acc.rgb += (1.0 - acc.a) * a * color;
            acc.a += (1.0 - acc.a) * a;
            if (acc.a >= uAmax) {
                break;
            }
        }
        pos += dir * stepLen;
    }

    fragColor = vec4(acc.rgb, min(acc.a, uAmax));
}
`

// compileShader compiles a single shader
func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile shader: %s", strings.TrimRight(log, "\x00"))
	}

	return shader, nil
}

// linkProgram links vertex and fragment shaders into a program
func linkProgram(vertShader, fragShader uint32) (uint32, error) {
	program := gl.CreateProgram()
	gl.AttachShader(program, vertShader)
	gl.AttachShader(program, fragShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link failed: %s", strings.TrimRight(log, "\x00"))
	}

	return program, nil
}

// buildProgram compiles and links the ray-march program
func buildProgram() (uint32, error) {
	vert, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vert)

	frag, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(frag)

	return linkProgram(vert, frag)
}
