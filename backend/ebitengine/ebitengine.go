// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package ebitengine implements an imgl backend that draws into an
// *ebiten.Image with DrawTriangles.
//
// Ebitengine owns the GPU, so the MVP is applied on the CPU and each Draw
// becomes one or more DrawTriangles calls clipped to the viewport. Custom
// shaders are Kage programs loaded with LoadShader and drawn with
// DrawTrianglesShader; the bound texture is passed as image 0.
//
// Inside an ebiten.Game, point the backend at the screen every frame:
//
//	func (g *game) Draw(screen *ebiten.Image) {
//		g.backend.SetTarget(screen)
//		g.ctx.BeginFrame()
//		// ... immediate-mode drawing ...
//		_ = g.ctx.EndFrame()
//	}
package ebitengine

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/gogpu/imgl"
)

// Name is the registry name of the backend.
const Name = "ebiten"

// Default resources.
const (
	DefaultTexture imgl.TextureID = 1
	DefaultShader  imgl.ShaderID  = 1
)

// Size of the offscreen target of registry-created backends.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

var (
	// ErrNoTarget is returned by Draw before a target image is set.
	ErrNoTarget = errors.New("ebitengine: no target image")

	// ErrUnknownTexture is returned when binding a texture that was never
	// loaded or has been unloaded.
	ErrUnknownTexture = errors.New("ebitengine: unknown texture")

	// ErrUnknownShader is returned when binding a shader that was never
	// loaded or has been unloaded.
	ErrUnknownShader = errors.New("ebitengine: unknown shader")

	// ErrNotDrawing is returned by Draw outside BeginDraw/EndDraw.
	ErrNotDrawing = errors.New("ebitengine: draw outside BeginDraw/EndDraw")

	// ErrNoUpload is returned by Draw before any vertices were uploaded.
	ErrNoUpload = errors.New("ebitengine: draw without vertex upload")

	// ErrRange is returned when a draw reads past the uploaded vertices.
	ErrRange = errors.New("ebitengine: draw range out of bounds")
)

func init() {
	imgl.RegisterBackend(Name, func() (imgl.Backend, error) {
		return New(ebiten.NewImage(DefaultWidth, DefaultHeight)), nil
	})
}

// Backend draws imgl batches into an ebiten image.
//
// Backend is not safe for concurrent use; it is driven by one imgl.Context
// from the game's Draw callback.
type Backend struct {
	target *ebiten.Image

	textures    map[imgl.TextureID]*ebiten.Image
	nextTexture imgl.TextureID
	shaders     map[imgl.ShaderID]*ebiten.Shader
	nextShader  imgl.ShaderID

	vb       *imgl.VertexBuffer
	count    int
	drawing  bool
	viewport imgl.Viewport
	texture  *ebiten.Image
	shader   *ebiten.Shader // nil selects DrawTriangles
	mvpLoc   int32
	mvp      mgl32.Mat4

	mesh   mesh
	logger *slog.Logger
}

var _ imgl.Backend = (*Backend)(nil)

// New creates a backend drawing into target, which may be nil until the
// first SetTarget.
func New(target *ebiten.Image) *Backend {
	// A white sub-image of a larger image avoids sampling its edges.
	white := ebiten.NewImage(3, 3)
	white.Fill(color.White)
	b := &Backend{
		target:      target,
		textures:    make(map[imgl.TextureID]*ebiten.Image),
		nextTexture: DefaultTexture + 1,
		shaders:     make(map[imgl.ShaderID]*ebiten.Shader),
		nextShader:  DefaultShader + 1,
		mvp:         mgl32.Ident4(),
		logger:      imgl.Logger(),
	}
	b.textures[DefaultTexture] = white.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
	return b
}

// SetTarget sets the image subsequent draws render into, typically the
// screen passed to ebiten.Game.Draw.
func (b *Backend) SetTarget(target *ebiten.Image) { b.target = target }

// Target returns the current target image.
func (b *Backend) Target() *ebiten.Image { return b.target }

// SetLogger implements the imgl logger propagation hook.
func (b *Backend) SetLogger(l *slog.Logger) { b.logger = l }

// LoadTexture creates a texture from img.
func (b *Backend) LoadTexture(img image.Image) imgl.TextureID {
	id := b.nextTexture
	b.nextTexture++
	b.textures[id] = ebiten.NewImageFromImage(img)
	return id
}

// UnloadTexture releases a texture. The default texture cannot be unloaded.
func (b *Backend) UnloadTexture(id imgl.TextureID) {
	if id == DefaultTexture {
		return
	}
	if img, ok := b.textures[id]; ok {
		img.Deallocate()
		delete(b.textures, id)
	}
}

// LoadShader compiles a Kage shader. Vertices reach the shader already in
// target pixels, so it needs no matrix uniforms.
func (b *Backend) LoadShader(src []byte) (imgl.Shader, error) {
	s, err := ebiten.NewShader(src)
	if err != nil {
		return imgl.Shader{}, fmt.Errorf("ebitengine: compile shader: %w", err)
	}
	id := b.nextShader
	b.nextShader++
	b.shaders[id] = s
	return imgl.Shader{ID: id, Locs: imgl.DefaultShaderLocations()}, nil
}

// UnloadShader releases a shader.
func (b *Backend) UnloadShader(id imgl.ShaderID) {
	if s, ok := b.shaders[id]; ok {
		s.Deallocate()
		delete(b.shaders, id)
	}
}

// Name implements imgl.Backend.
func (b *Backend) Name() string { return Name }

// DefaultTexture implements imgl.Backend.
func (b *Backend) DefaultTexture() imgl.TextureID { return DefaultTexture }

// DefaultShader implements imgl.Backend.
func (b *Backend) DefaultShader() imgl.Shader {
	return imgl.Shader{ID: DefaultShader, Locs: imgl.DefaultShaderLocations()}
}

// UploadVertices implements imgl.Backend. The buffer is read during the
// following draws, so it is referenced rather than copied.
func (b *Backend) UploadVertices(_ int, vb *imgl.VertexBuffer, count int) error {
	b.vb = vb
	b.count = count
	return nil
}

// BeginDraw implements imgl.Backend.
func (b *Backend) BeginDraw() error {
	b.drawing = true
	return nil
}

// EndDraw implements imgl.Backend. Ebitengine submits at the end of the
// frame, so there is nothing to flush.
func (b *Backend) EndDraw() error {
	if !b.drawing {
		return ErrNotDrawing
	}
	b.drawing = false
	return nil
}

// SetViewport implements imgl.Backend.
func (b *Backend) SetViewport(vp imgl.Viewport) { b.viewport = vp }

// BindTexture implements imgl.Backend.
func (b *Backend) BindTexture(id imgl.TextureID) error {
	img, ok := b.textures[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTexture, id)
	}
	b.texture = img
	return nil
}

// BindShader implements imgl.Backend.
func (b *Backend) BindShader(s imgl.Shader) error {
	if s.ID == DefaultShader {
		b.shader = nil
	} else {
		sh, ok := b.shaders[s.ID]
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownShader, s.ID)
		}
		b.shader = sh
	}
	b.mvpLoc = s.Loc(imgl.LocMatrixMVP)
	return nil
}

// SetUniformMatrix implements imgl.Backend. Only the MVP is consumed.
func (b *Backend) SetUniformMatrix(loc int32, m mgl32.Mat4) error {
	if loc >= 0 && loc == b.mvpLoc {
		b.mvp = m
	}
	return nil
}

// Draw implements imgl.Backend.
func (b *Backend) Draw(mode imgl.PrimitiveMode, first, count int) error {
	switch {
	case !b.drawing:
		return ErrNotDrawing
	case b.target == nil:
		return ErrNoTarget
	case b.vb == nil:
		return ErrNoUpload
	case first < 0 || first+count > b.count:
		return fmt.Errorf("%w: [%d, %d) of %d", ErrRange, first, first+count, b.count)
	}
	if b.texture == nil {
		b.texture = b.textures[DefaultTexture]
	}

	bounds := b.target.Bounds()
	vp := viewportRect(b.viewport, bounds)
	clip := vp.Intersect(bounds)
	if clip.Empty() {
		return nil
	}
	dst := b.target
	if clip != bounds {
		dst = b.target.SubImage(clip).(*ebiten.Image)
	}

	p := projector{mvp: b.mvp, vp: vp}
	src := b.texture.Bounds()
	b.mesh.reset()
	switch mode {
	case imgl.Triangles:
		for i := first; i+2 < first+count; i += 3 {
			if b.mesh.full(3) {
				b.submit(dst)
			}
			b.mesh.appendTriangle(p, src, b.vb, i)
		}
	case imgl.Lines:
		for i := first; i+1 < first+count; i += 2 {
			if b.mesh.full(4) {
				b.submit(dst)
			}
			b.mesh.appendLine(p, src, b.vb, i)
		}
	default:
		return fmt.Errorf("ebitengine: unsupported topology %s", mode)
	}
	b.submit(dst)
	return nil
}

// submit draws the accumulated mesh into dst and resets it.
func (b *Backend) submit(dst *ebiten.Image) {
	if b.mesh.empty() {
		return
	}
	if b.shader != nil {
		op := &ebiten.DrawTrianglesShaderOptions{}
		op.Images[0] = b.texture
		dst.DrawTrianglesShader(b.mesh.vertices, b.mesh.indices, b.shader, op)
	} else {
		dst.DrawTriangles(b.mesh.vertices, b.mesh.indices, b.texture, &ebiten.DrawTrianglesOptions{})
	}
	b.mesh.reset()
}
