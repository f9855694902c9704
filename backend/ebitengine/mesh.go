// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ebitengine

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/gogpu/imgl"
)

// maxChunkVertices bounds the vertices of one DrawTriangles call so that
// uint16 indices stay in range. It is a multiple of both 3 and 4.
const maxChunkVertices = 65532

// mesh is the ebiten geometry of one draw, rebuilt per Draw call.
type mesh struct {
	vertices []ebiten.Vertex
	indices  []uint16
}

func (m *mesh) reset() {
	m.vertices = m.vertices[:0]
	m.indices = m.indices[:0]
}

// full reports whether n more vertices would overflow the chunk.
func (m *mesh) full(n int) bool { return len(m.vertices)+n > maxChunkVertices }

func (m *mesh) empty() bool { return len(m.indices) == 0 }

// projector maps positions through the MVP into target pixels.
type projector struct {
	mvp mgl32.Mat4
	// vp is the unclipped viewport in target pixels.
	vp image.Rectangle
}

// project returns the pixel position of pos, or false when pos is behind
// the eye.
func (p projector) project(pos mgl32.Vec3) (mgl32.Vec2, bool) {
	clip := p.mvp.Mul4x1(pos.Vec4(1))
	if clip.W() <= 0 {
		return mgl32.Vec2{}, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	return mgl32.Vec2{
		float32(p.vp.Min.X) + (ndc.X()+1)/2*float32(p.vp.Dx()),
		float32(p.vp.Min.Y) + (1-ndc.Y())/2*float32(p.vp.Dy()),
	}, true
}

// viewportRect returns vp in target pixels; an empty viewport covers
// bounds. Y is measured from the top.
func viewportRect(vp imgl.Viewport, bounds image.Rectangle) image.Rectangle {
	if vp.Empty() {
		return bounds
	}
	return image.Rect(vp.X, vp.Y, vp.X+vp.Width, vp.Y+vp.Height)
}

func toVertex(pos mgl32.Vec2, src image.Rectangle, v *imgl.Vertex) ebiten.Vertex {
	return ebiten.Vertex{
		DstX:   pos.X(),
		DstY:   pos.Y(),
		SrcX:   float32(src.Min.X) + v.TexCoord.X()*float32(src.Dx()),
		SrcY:   float32(src.Min.Y) + v.TexCoord.Y()*float32(src.Dy()),
		ColorR: float32(v.Color.R) / 255,
		ColorG: float32(v.Color.G) / 255,
		ColorB: float32(v.Color.B) / 255,
		ColorA: float32(v.Color.A) / 255,
	}
}

// appendTriangle appends the triangle starting at slot i. Triangles with a
// vertex behind the eye are skipped.
func (m *mesh) appendTriangle(p projector, src image.Rectangle, vb *imgl.VertexBuffer, i int) bool {
	var (
		verts [3]imgl.Vertex
		pos   [3]mgl32.Vec2
	)
	for k := range verts {
		verts[k] = vb.At(i + k)
		var ok bool
		if pos[k], ok = p.project(verts[k].Position); !ok {
			return false
		}
	}
	base := uint16(len(m.vertices)) //nolint:gosec // bounded by maxChunkVertices
	for k := range verts {
		m.vertices = append(m.vertices, toVertex(pos[k], src, &verts[k]))
	}
	m.indices = append(m.indices, base, base+1, base+2)
	return true
}

// appendLine appends the segment starting at slot i as a one pixel wide
// quad.
func (m *mesh) appendLine(p projector, src image.Rectangle, vb *imgl.VertexBuffer, i int) bool {
	v0, v1 := vb.At(i), vb.At(i+1)
	p0, ok0 := p.project(v0.Position)
	p1, ok1 := p.project(v1.Position)
	if !ok0 || !ok1 {
		return false
	}
	d := p1.Sub(p0)
	if d.Len() == 0 {
		return false
	}
	n := mgl32.Vec2{-d.Y(), d.X()}.Normalize().Mul(0.5)

	base := uint16(len(m.vertices)) //nolint:gosec // bounded by maxChunkVertices
	m.vertices = append(m.vertices,
		toVertex(p0.Add(n), src, &v0),
		toVertex(p1.Add(n), src, &v1),
		toVertex(p1.Sub(n), src, &v1),
		toVertex(p0.Sub(n), src, &v0),
	)
	m.indices = append(m.indices, base, base+1, base+2, base, base+2, base+3)
	return true
}
