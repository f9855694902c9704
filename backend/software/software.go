// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software provides a CPU imgl backend that rasterizes into an
// *image.RGBA with golang.org/x/image/vector.
//
// The backend implements a fixed pipeline: positions are transformed by
// the MVP uniform, clipped by w, mapped to the viewport and filled with a
// flat color per primitive. The color is the average vertex color
// multiplied by the bound texture sampled at the primitive's centroid.
// Lines are drawn as quads one pixel wide.
//
// Custom shaders are not supported; BindShader accepts only the default
// shader.
package software

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/gogpu/imgl"
)

// Default resources.
const (
	DefaultTexture imgl.TextureID = 1
	DefaultShader  imgl.ShaderID  = 1
)

// Errors returned by the software backend.
var (
	// ErrUnknownTexture is returned when binding a texture that was never
	// loaded or has been unloaded.
	ErrUnknownTexture = errors.New("software: unknown texture")

	// ErrUnsupportedShader is returned when binding a custom shader.
	ErrUnsupportedShader = errors.New("software: custom shaders are not supported")

	// ErrNoUpload is returned by Draw before any vertices were uploaded.
	ErrNoUpload = errors.New("software: draw without vertex upload")

	// ErrRange is returned when a draw exceeds the uploaded vertices.
	ErrRange = errors.New("software: draw range out of bounds")
)

// Backend is the software rasterizer. Create it with New.
type Backend struct {
	img *image.RGBA

	textures map[imgl.TextureID]*image.RGBA
	nextTex  imgl.TextureID

	vb    *imgl.VertexBuffer
	count int

	viewport imgl.Viewport
	texture  *image.RGBA
	mvpLoc   int32
	mvp      mgl32.Mat4

	rast   vector.Rasterizer
	logger *slog.Logger
}

var _ imgl.Backend = (*Backend)(nil)

func init() {
	imgl.RegisterBackend(imgl.BackendSoftware, func() (imgl.Backend, error) {
		return New(DefaultWidth, DefaultHeight), nil
	})
}

// Target size used when the backend is created through the registry.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// New creates a backend rendering into a new width×height image cleared to
// transparent black.
func New(width, height int) *Backend {
	return NewWithImage(image.NewRGBA(image.Rect(0, 0, width, height)))
}

// NewWithImage creates a backend rendering into img.
func NewWithImage(img *image.RGBA) *Backend {
	white := image.NewRGBA(image.Rect(0, 0, 1, 1))
	white.SetRGBA(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	return &Backend{
		img:      img,
		textures: map[imgl.TextureID]*image.RGBA{DefaultTexture: white},
		nextTex:  DefaultTexture + 1,
		mvpLoc:   int32(imgl.LocMatrixMVP),
		mvp:      mgl32.Ident4(),
		logger:   imgl.Logger(),
	}
}

// SetLogger implements the imgl logger propagation hook.
func (b *Backend) SetLogger(l *slog.Logger) { b.logger = l }

// Image returns the render target.
func (b *Backend) Image() *image.RGBA { return b.img }

// Clear fills the render target with c.
func (b *Backend) Clear(c color.Color) {
	draw.Draw(b.img, b.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// LoadTexture copies img into a new texture and returns its id.
func (b *Backend) LoadTexture(img image.Image) imgl.TextureID {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Copy(rgba, image.Point{}, img, bounds, xdraw.Src, nil)

	id := b.nextTex
	b.nextTex++
	b.textures[id] = rgba
	b.logger.Debug("software: texture loaded", "id", id, "width", bounds.Dx(), "height", bounds.Dy())
	return id
}

// UnloadTexture releases a texture. The default texture cannot be unloaded.
func (b *Backend) UnloadTexture(id imgl.TextureID) {
	if id == DefaultTexture {
		return
	}
	delete(b.textures, id)
}

// Name implements imgl.Backend.
func (b *Backend) Name() string { return imgl.BackendSoftware }

// DefaultTexture implements imgl.Backend.
func (b *Backend) DefaultTexture() imgl.TextureID { return DefaultTexture }

// DefaultShader implements imgl.Backend.
func (b *Backend) DefaultShader() imgl.Shader {
	return imgl.Shader{ID: DefaultShader, Locs: imgl.DefaultShaderLocations()}
}

// UploadVertices implements imgl.Backend. The buffer is read during Draw,
// so no copy is made.
func (b *Backend) UploadVertices(_ int, vb *imgl.VertexBuffer, count int) error {
	if count > vb.Capacity() {
		return fmt.Errorf("%w: upload of %d slots into %d", ErrRange, count, vb.Capacity())
	}
	b.vb, b.count = vb, count
	return nil
}

// BeginDraw implements imgl.Backend.
func (b *Backend) BeginDraw() error { return nil }

// EndDraw implements imgl.Backend.
func (b *Backend) EndDraw() error { return nil }

// SetViewport implements imgl.Backend.
func (b *Backend) SetViewport(vp imgl.Viewport) { b.viewport = vp }

// BindTexture implements imgl.Backend.
func (b *Backend) BindTexture(id imgl.TextureID) error {
	tex, ok := b.textures[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTexture, id)
	}
	b.texture = tex
	return nil
}

// BindShader implements imgl.Backend.
func (b *Backend) BindShader(s imgl.Shader) error {
	if s.ID != DefaultShader {
		return fmt.Errorf("%w: shader %d", ErrUnsupportedShader, s.ID)
	}
	b.mvpLoc = s.Loc(imgl.LocMatrixMVP)
	return nil
}

// SetUniformMatrix implements imgl.Backend. Only the MVP matrix is used.
func (b *Backend) SetUniformMatrix(loc int32, m mgl32.Mat4) error {
	if loc == b.mvpLoc {
		b.mvp = m
	}
	return nil
}

// Draw implements imgl.Backend.
func (b *Backend) Draw(mode imgl.PrimitiveMode, first, count int) error {
	if b.vb == nil {
		return ErrNoUpload
	}
	if first < 0 || first+count > b.count {
		return fmt.Errorf("%w: [%d, %d) of %d", ErrRange, first, first+count, b.count)
	}
	if b.texture == nil {
		b.texture = b.textures[DefaultTexture]
	}

	vp := b.targetRect()
	if vp.Empty() {
		return nil
	}
	switch mode {
	case imgl.Lines:
		for i := first; i+1 < first+count; i += 2 {
			b.drawLine(vp, i)
		}
	case imgl.Triangles:
		for i := first; i+2 < first+count; i += 3 {
			b.drawTriangle(vp, i)
		}
	default:
		return fmt.Errorf("software: unsupported topology %s", mode)
	}
	return nil
}

// targetRect returns the viewport clipped to the image. The viewport
// origin is the top-left corner of the image.
func (b *Backend) targetRect() image.Rectangle {
	if b.viewport.Empty() {
		return b.img.Bounds()
	}
	r := image.Rect(b.viewport.X, b.viewport.Y,
		b.viewport.X+b.viewport.Width, b.viewport.Y+b.viewport.Height)
	return r.Intersect(b.img.Bounds())
}

// project maps slot i to viewport-local pixel coordinates. It reports false
// for vertices behind the eye.
func (b *Backend) project(vp image.Rectangle, i int) (mgl32.Vec2, bool) {
	v := b.vb.At(i)
	clip := b.mvp.Mul4x1(v.Position.Vec4(1))
	if clip.W() <= 0 {
		return mgl32.Vec2{}, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	return mgl32.Vec2{
		(ndc.X() + 1) / 2 * float32(vp.Dx()),
		(1 - ndc.Y()) / 2 * float32(vp.Dy()),
	}, true
}

func (b *Backend) drawTriangle(vp image.Rectangle, i int) {
	var pts [3]mgl32.Vec2
	for k := range pts {
		p, ok := b.project(vp, i+k)
		if !ok {
			return
		}
		pts[k] = p
	}
	b.rast.Reset(vp.Dx(), vp.Dy())
	b.rast.DrawOp = draw.Over
	b.rast.MoveTo(pts[0].X(), pts[0].Y())
	b.rast.LineTo(pts[1].X(), pts[1].Y())
	b.rast.LineTo(pts[2].X(), pts[2].Y())
	b.rast.ClosePath()
	b.rast.Draw(b.img, vp, image.NewUniform(b.shade(i, 3)), image.Point{})
}

func (b *Backend) drawLine(vp image.Rectangle, i int) {
	p0, ok0 := b.project(vp, i)
	p1, ok1 := b.project(vp, i+1)
	if !ok0 || !ok1 {
		return
	}
	d := p1.Sub(p0)
	if d.Len() == 0 {
		return
	}
	// Half-pixel offset perpendicular to the segment.
	n := mgl32.Vec2{-d.Y(), d.X()}.Normalize().Mul(0.5)

	b.rast.Reset(vp.Dx(), vp.Dy())
	b.rast.DrawOp = draw.Over
	b.rast.MoveTo(p0.X()+n.X(), p0.Y()+n.Y())
	b.rast.LineTo(p1.X()+n.X(), p1.Y()+n.Y())
	b.rast.LineTo(p1.X()-n.X(), p1.Y()-n.Y())
	b.rast.LineTo(p0.X()-n.X(), p0.Y()-n.Y())
	b.rast.ClosePath()
	b.rast.Draw(b.img, vp, image.NewUniform(b.shade(i, 2)), image.Point{})
}

// shade returns the flat color of the n vertices starting at slot i.
func (b *Backend) shade(i, n int) color.NRGBA {
	var r, g, bl, a, u, v float32
	for k := range n {
		vert := b.vb.At(i + k)
		r += float32(vert.Color.R)
		g += float32(vert.Color.G)
		bl += float32(vert.Color.B)
		a += float32(vert.Color.A)
		u += vert.TexCoord[0]
		v += vert.TexCoord[1]
	}
	fn := float32(n)
	t := sampleNearest(b.texture, u/fn, v/fn)
	return color.NRGBA{
		R: modulate(r/fn, t.R),
		G: modulate(g/fn, t.G),
		B: modulate(bl/fn, t.B),
		A: modulate(a/fn, t.A),
	}
}

// sampleNearest samples tex at (u, v) with clamp-to-edge addressing.
func sampleNearest(tex *image.RGBA, u, v float32) color.NRGBA {
	bounds := tex.Bounds()
	x := clampInt(int(u*float32(bounds.Dx())), 0, bounds.Dx()-1)
	y := clampInt(int(v*float32(bounds.Dy())), 0, bounds.Dy()-1)
	return color.NRGBAModel.Convert(tex.RGBAAt(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA) //nolint:forcetypeassert // NRGBAModel always returns color.NRGBA
}

func modulate(c float32, t uint8) uint8 {
	return uint8(c*float32(t)/255 + 0.5)
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
