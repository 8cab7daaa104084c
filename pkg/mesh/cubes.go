// Package mesh builds the interleaved vertex buffer for the cube(s) the
// volume is ray-marched through.
package mesh

import (
	"errors"
	"fmt"
)

// Vertex layout: position, normal, texture coordinate
const (
	PositionSize    = 3
	NormalSize      = 3
	TexCoordSize    = 2
	FloatsPerVertex = PositionSize + NormalSize + TexCoordSize
	BytesPerFloat   = 4

	// Stride is the byte distance between consecutive vertices
	Stride = FloatsPerVertex * BytesPerFloat

	// NormalOffset and TexCoordOffset are byte offsets inside a vertex
	NormalOffset   = PositionSize * BytesPerFloat
	TexCoordOffset = (PositionSize + NormalSize) * BytesPerFloat

	VerticesPerFace = 6
	VerticesPerCube = 6 * VerticesPerFace

	// MaxFactor bounds the cubes per axis
	MaxFactor = 16
)

// Cubes are laid out inside [MinPosition, MaxPosition] on every axis
const (
	MinPosition = -0.5
	MaxPosition = 0.5
)

// ErrInvalidFactor is returned for cube factors outside [1, MaxFactor]
var ErrInvalidFactor = errors.New("mesh: cube factor out of range")

// Face normals in the order faces are emitted
var faceNormals = [6][3]float32{
	{0, 0, 1},  // front
	{1, 0, 0},  // right
	{0, 0, -1}, // back
	{-1, 0, 0}, // left
	{0, 1, 0},  // top
	{0, -1, 0}, // bottom
}

// Texture coordinates are the same for every face. The t axis is flipped
// because image rows grow downward.
var faceTexCoords = [VerticesPerFace][2]float32{
	{0, 0}, {0, 1}, {1, 0},
	{0, 1}, {1, 1}, {1, 0},
}

// Corner indices per face into the eight cube points, two triangles each.
// Points 0-3 are the front face (top-left, top-right, bottom-left,
// bottom-right); 4-7 are the same corners at the back.
var faceCorners = [6][VerticesPerFace]int{
	{0, 2, 1, 2, 3, 1}, // front
	{1, 3, 5, 3, 7, 5}, // right
	{5, 7, 4, 7, 6, 4}, // back
	{4, 6, 0, 6, 2, 0}, // left
	{4, 0, 5, 0, 1, 5}, // top
	{7, 3, 6, 3, 2, 6}, // bottom
}

// Mesh is an interleaved vertex buffer of factor^3 cubes
type Mesh struct {
	Factor int
	Data   []float32
}

// VertexCount returns the number of vertices to draw
func (m *Mesh) VertexCount() int {
	return len(m.Data) / FloatsPerVertex
}

// SizeBytes returns the buffer size in bytes
func (m *Mesh) SizeBytes() int {
	return len(m.Data) * BytesPerFloat
}

// BuildCubes lays out factor cubes per axis with equal gaps between them.
// With factor 1 a single cube fills the whole range.
func BuildCubes(factor int) (*Mesh, error) {
	if factor < 1 || factor > MaxFactor {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFactor, factor)
	}

	segments := float32(factor + (factor - 1))
	span := float32(MaxPosition-MinPosition) / segments
	bound := func(i int) (float32, float32) {
		return MinPosition + span*float32(i*2), MinPosition + span*float32(i*2+1)
	}

	data := make([]float32, 0, factor*factor*factor*VerticesPerCube*FloatsPerVertex)
	for x := 0; x < factor; x++ {
		x1, x2 := bound(x)
		for y := 0; y < factor; y++ {
			y1, y2 := bound(y)
			for z := 0; z < factor; z++ {
				z1, z2 := bound(z)
				points := [8][3]float32{
					{x1, y2, z2}, {x2, y2, z2}, {x1, y1, z2}, {x2, y1, z2},
					{x1, y2, z1}, {x2, y2, z1}, {x1, y1, z1}, {x2, y1, z1},
				}
				data = appendCube(data, &points)
			}
		}
	}

	return &Mesh{Factor: factor, Data: data}, nil
}

func appendCube(data []float32, points *[8][3]float32) []float32 {
	for face, corners := range faceCorners {
		n := faceNormals[face]
		for v, c := range corners {
			p := points[c]
			tc := faceTexCoords[v]
			data = append(data, p[0], p[1], p[2], n[0], n[1], n[2], tc[0], tc[1])
		}
	}
	return data
}
