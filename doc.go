// Package imgl is an immediate-mode rendering batch engine.
//
// # Overview
//
// imgl lets drawing code submit geometry one vertex at a time with a
// legacy Begin/Vertex/End protocol, while the engine accumulates the
// vertices into fixed-capacity buffers and issues a small number of draw
// calls to a buffered graphics backend.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/imgl"
//		"github.com/gogpu/imgl/backend/software"
//	)
//
//	sw := software.New(640, 480)
//	ctx, err := imgl.NewContext(sw, imgl.WithViewport(0, 0, 640, 480))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx.MatrixMode(imgl.Projection)
//	ctx.Ortho(0, 640, 480, 0, -1, 1)
//	ctx.MatrixMode(imgl.Model)
//
//	ctx.Begin(imgl.Quads)
//	ctx.Color4ub(230, 41, 55, 255)
//	ctx.Vertex2f(100, 100)
//	ctx.Vertex2f(100, 200)
//	ctx.Vertex2f(200, 200)
//	ctx.Vertex2f(200, 100)
//	ctx.End()
//
//	if err := ctx.DrawRenderBatchActive(); err != nil {
//		log.Fatal(err)
//	}
//
// # Batching
//
// A RenderBatch owns one or more vertex buffers and a bounded DrawCallList.
// Each DrawCall covers a contiguous range of vertex slots drawn with one
// mode, texture and shader. Changing the texture or shader closes the
// current DrawCall and opens another; it does not flush. A flush happens
// when the next primitive would not fit the buffer, when the draw call list
// is full, or when the caller asks for one with DrawRenderBatchActive.
// Flushes always happen at a primitive boundary.
//
// Quads are stored as two triangles, six slots per quad, so a single
// buffer layout serves lines, triangles and quads. The start offset of
// every DrawCall that follows a non-empty one is padded to a multiple of
// Config.VertexAlignment. Padding slots are never drawn.
//
// # Matrices
//
// Three matrix stacks (Model, View, Projection) are selected with
// MatrixMode. Transform calls right-multiply the active matrix, so the
// last operation applied is the first one a vertex sees. A non-identity
// model matrix is applied to vertices as they are recorded; the flusher
// uploads projection × view as the MVP matrix.
//
// # Backends
//
// The engine drives an implementation of Backend. Bundled backends:
//
//   - backend/native: GPU rendering through gogpu/wgpu HAL
//   - backend/software: CPU rasterizer into an *image.RGBA
//   - backend/ebitengine: draws into an *ebiten.Image
//   - recording: records backend calls for tests and debugging
//
// Backends can also be created by name after a blank import. DefaultBackend
// tries native, then software, then recording:
//
//	import _ "github.com/gogpu/imgl/backend/software"
//
//	b, err := imgl.NewBackend("software")
//
// # Errors
//
// Capacity overflow is handled by flushing and never surfaces as an
// error. Matrix stack overflow and underflow are clamped and logged.
// Protocol violations (End without Begin, incomplete primitives) are
// logged, or panic with an error wrapping ErrProtocol when debug
// assertions are enabled with WithDebugAssertions or the imgl_debug build
// tag. Backend errors are returned by DrawRenderBatchActive and EndFrame.
//
// # Concurrency
//
// A Context is single-threaded. SetLogger is the only function safe to
// call from other goroutines.
package imgl
