package imgl

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex components per attribute.
const (
	positionComponents = 3
	texCoordComponents = 2
	normalComponents   = 3
	colorComponents    = 4
)

// Vertex is one recorded vertex.
type Vertex struct {
	Position mgl32.Vec3
	TexCoord mgl32.Vec2
	Normal   mgl32.Vec3
	Color    color.RGBA
}

// VertexBuffer holds vertex attributes in flat, separately packed arrays of
// fixed capacity. Backends upload each array as its own vertex stream.
type VertexBuffer struct {
	// Positions holds x, y, z per vertex.
	Positions []float32
	// TexCoords holds u, v per vertex.
	TexCoords []float32
	// Normals holds x, y, z per vertex.
	Normals []float32
	// Colors holds r, g, b, a bytes per vertex.
	Colors []uint8

	capacity int
}

// NewVertexBuffer allocates a buffer for capacity vertices.
func NewVertexBuffer(capacity int) *VertexBuffer {
	return &VertexBuffer{
		Positions: make([]float32, capacity*positionComponents),
		TexCoords: make([]float32, capacity*texCoordComponents),
		Normals:   make([]float32, capacity*normalComponents),
		Colors:    make([]uint8, capacity*colorComponents),
		capacity:  capacity,
	}
}

// Capacity returns the number of vertex slots.
func (b *VertexBuffer) Capacity() int { return b.capacity }

// Set writes v into slot i.
func (b *VertexBuffer) Set(i int, v *Vertex) {
	p := i * positionComponents
	b.Positions[p] = v.Position[0]
	b.Positions[p+1] = v.Position[1]
	b.Positions[p+2] = v.Position[2]

	t := i * texCoordComponents
	b.TexCoords[t] = v.TexCoord[0]
	b.TexCoords[t+1] = v.TexCoord[1]

	n := i * normalComponents
	b.Normals[n] = v.Normal[0]
	b.Normals[n+1] = v.Normal[1]
	b.Normals[n+2] = v.Normal[2]

	c := i * colorComponents
	b.Colors[c] = v.Color.R
	b.Colors[c+1] = v.Color.G
	b.Colors[c+2] = v.Color.B
	b.Colors[c+3] = v.Color.A
}

// Copy duplicates slot src into slot dst.
func (b *VertexBuffer) Copy(dst, src int) {
	copy(b.Positions[dst*positionComponents:(dst+1)*positionComponents],
		b.Positions[src*positionComponents:(src+1)*positionComponents])
	copy(b.TexCoords[dst*texCoordComponents:(dst+1)*texCoordComponents],
		b.TexCoords[src*texCoordComponents:(src+1)*texCoordComponents])
	copy(b.Normals[dst*normalComponents:(dst+1)*normalComponents],
		b.Normals[src*normalComponents:(src+1)*normalComponents])
	copy(b.Colors[dst*colorComponents:(dst+1)*colorComponents],
		b.Colors[src*colorComponents:(src+1)*colorComponents])
}

// At reads slot i.
func (b *VertexBuffer) At(i int) Vertex {
	p := i * positionComponents
	t := i * texCoordComponents
	n := i * normalComponents
	c := i * colorComponents
	return Vertex{
		Position: mgl32.Vec3{b.Positions[p], b.Positions[p+1], b.Positions[p+2]},
		TexCoord: mgl32.Vec2{b.TexCoords[t], b.TexCoords[t+1]},
		Normal:   mgl32.Vec3{b.Normals[n], b.Normals[n+1], b.Normals[n+2]},
		Color:    color.RGBA{R: b.Colors[c], G: b.Colors[c+1], B: b.Colors[c+2], A: b.Colors[c+3]},
	}
}

// Range returns the vertices in [first, first+count) as a new slice.
func (b *VertexBuffer) Range(first, count int) []Vertex {
	out := make([]Vertex, count)
	for i := range out {
		out[i] = b.At(first + i)
	}
	return out
}
