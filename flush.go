package imgl

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// drawBatch submits b to the backend and resets it. The batch is reset
// even when the backend fails, so a broken frame is dropped rather than
// resubmitted.
func (c *Context) drawBatch(b *RenderBatch) error {
	if b.cursor == 0 {
		b.reset()
		return nil
	}
	defer b.reset()

	// A trailing quad that is not complete yet is not uploaded.
	count := b.cursor
	if b.draws.Current().Mode == Quads {
		count -= b.quadVertex
	}
	if err := c.backend.UploadVertices(b.currentBuffer, b.Buffer(), count); err != nil {
		return fmt.Errorf("upload vertices: %w", err)
	}
	if err := c.backend.BeginDraw(); err != nil {
		return fmt.Errorf("begin draw: %w", err)
	}

	c.stats.Flushes++
	drawCalls, vertices := 0, 0
	for _, eye := range c.eyes() {
		n, v, err := c.drawEye(b, eye)
		drawCalls += n
		vertices += v
		if err != nil {
			c.stats.DrawCalls += drawCalls
			c.stats.Vertices += vertices
			// Submit what was recorded so the backend is left consistent.
			_ = c.backend.EndDraw()
			return err
		}
	}
	c.stats.DrawCalls += drawCalls
	c.stats.Vertices += vertices

	if err := c.backend.EndDraw(); err != nil {
		return fmt.Errorf("end draw: %w", err)
	}
	Logger().Debug("imgl: batch flushed",
		"backend", c.backend.Name(),
		"buffer", b.currentBuffer,
		"slots", count,
		"drawCalls", drawCalls,
		"vertices", vertices)
	return nil
}

// drawEye issues every non-empty draw call of b for one view.
func (c *Context) drawEye(b *RenderBatch, eye eyeView) (drawCalls, vertices int, err error) {
	c.backend.SetViewport(eye.viewport)

	var (
		bound     bool
		boundTex  TextureID
		boundShID ShaderID
	)
	first := 0
	for i := 0; i < b.draws.Len(); i++ {
		dc := b.draws.At(i)
		if dc.VertexCount == 0 {
			first += dc.Alignment
			continue
		}

		tex := dc.Texture
		if tex == 0 {
			tex = c.backend.DefaultTexture()
		}
		sh := dc.Shader
		if sh.IsDefault() {
			sh = c.backend.DefaultShader()
		}

		if !bound || tex != boundTex {
			if err := c.backend.BindTexture(tex); err != nil {
				return drawCalls, vertices, fmt.Errorf("bind texture %d: %w", tex, err)
			}
			boundTex = tex
		}
		if !bound || sh.ID != boundShID {
			if err := c.backend.BindShader(sh); err != nil {
				return drawCalls, vertices, fmt.Errorf("bind shader %d: %w", sh.ID, err)
			}
			if err := c.setMatrices(sh, eye); err != nil {
				return drawCalls, vertices, err
			}
			boundShID = sh.ID
		}
		bound = true

		if err := c.backend.Draw(dc.Mode.Topology(), first, dc.VertexCount); err != nil {
			return drawCalls, vertices, fmt.Errorf("draw %s: %w", dc, err)
		}
		drawCalls++
		vertices += dc.VertexCount
		first += dc.VertexCount + dc.Alignment
	}
	return drawCalls, vertices, nil
}

// setMatrices uploads the matrices sh declares locations for. Vertices are
// already in world space, so the model matrix uploaded is identity.
func (c *Context) setMatrices(sh Shader, eye eyeView) error {
	uniforms := [...]struct {
		loc ShaderLocation
		m   mgl32.Mat4
	}{
		{LocMatrixMVP, eye.projection.Mul4(eye.view)},
		{LocMatrixModel, mgl32.Ident4()},
		{LocMatrixView, eye.view},
		{LocMatrixProjection, eye.projection},
	}
	for _, u := range uniforms {
		loc := sh.Loc(u.loc)
		if loc < 0 {
			continue
		}
		if err := c.backend.SetUniformMatrix(loc, u.m); err != nil {
			return fmt.Errorf("set uniform %d: %w", loc, err)
		}
	}
	return nil
}
