package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/puppet/internal/engine/shader"
)

const quadVertexShader = `
#version 410 core

layout (location = 0) in vec2 aPos;
layout (location = 1) in vec2 aUV;

uniform mat4 uMVP;

out vec2 vUV;

void main() {
	gl_Position = uMVP * vec4(aPos, 0.0, 1.0);
	vUV = aUV;
}
`

const quadFragmentShader = `
#version 410 core

in vec2 vUV;
out vec4 FragColor;

uniform sampler2D uTexture;
uniform float uOpacity;

void main() {
	vec4 c = texture(uTexture, vUV);
	FragColor = vec4(c.rgb, c.a * uOpacity);
}
`

// Quad draws one texture over the unit canvas [-1, 1] x [-1, 1].
type Quad struct {
	program  uint32
	vao, vbo uint32

	uMVP     int32
	uOpacity int32
	uTexture int32
}

// NewQuad compiles the quad program and uploads its geometry.
func NewQuad() (*Quad, error) {
	program, err := shader.CompileProgram(quadVertexShader, quadFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("quad program: %w", err)
	}
	q := &Quad{program: program}

	for name, loc := range map[string]*int32{"uMVP": &q.uMVP, "uOpacity": &q.uOpacity, "uTexture": &q.uTexture} {
		if *loc, err = shader.Uniform(program, name); err != nil {
			q.Close()
			return nil, err
		}
	}

	// x, y, u, v. Image rows run top-down, so v is flipped.
	vertices := []float32{
		-1, -1, 0, 1,
		1, -1, 1, 1,
		1, 1, 1, 0,
		-1, -1, 0, 1,
		1, 1, 1, 0,
		-1, 1, 0, 0,
	}

	gl.GenVertexArrays(1, &q.vao)
	gl.BindVertexArray(q.vao)
	gl.GenBuffers(1, &q.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, q.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)

	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 4*4, nil)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, 4*4, unsafe.Pointer(uintptr(2*4)))
	gl.EnableVertexAttribArray(1)

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	return q, nil
}

// Draw renders texture through mvp with the given opacity.
func (q *Quad) Draw(texture uint32, mvp [16]float32, opacity float32) {
	gl.UseProgram(q.program)
	gl.UniformMatrix4fv(q.uMVP, 1, false, &mvp[0])
	gl.Uniform1f(q.uOpacity, opacity)
	gl.Uniform1i(q.uTexture, 0)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, texture)
	gl.BindVertexArray(q.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// Close frees the program and geometry.
func (q *Quad) Close() {
	if q.vao != 0 {
		gl.DeleteVertexArrays(1, &q.vao)
	}
	if q.vbo != 0 {
		gl.DeleteBuffers(1, &q.vbo)
	}
	if q.program != 0 {
		gl.DeleteProgram(q.program)
	}
}
