package imgl

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Context is the immediate-mode batching engine. It exposes a legacy
// Begin/Vertex/End API and turns it into a few large draw calls on a
// Backend.
//
// A Context is not safe for concurrent use: every call must come from the
// goroutine that owns the graphics context, in program order.
//
// Example:
//
//	ctx, err := imgl.NewContext(backend)
//	if err != nil {
//	    return err
//	}
//	ctx.Begin(imgl.Triangles)
//	ctx.Color4ub(255, 0, 0, 255)
//	ctx.Vertex2f(0, 0)
//	ctx.Vertex2f(100, 0)
//	ctx.Vertex2f(50, 80)
//	ctx.End()
//	err = ctx.DrawRenderBatchActive()
type Context struct {
	cfg     Config
	backend Backend

	state    vertexState
	matrices *MatrixStack

	defaultBatch *RenderBatch
	batch        *RenderBatch

	phase        phase
	mode         PrimitiveMode
	scopeVerts   int
	texture      TextureID
	shader       Shader
	viewport     Viewport
	projOverride *mgl32.Mat4
	viewOverride *mgl32.Mat4
	stereo       *StereoConfig

	stats Stats
	// errs collects backend errors from implicit flushes until the next
	// explicit flush reports them.
	errs   []error
	closed bool
}

// Stats counts engine activity since creation or the last BeginFrame.
type Stats struct {
	// Flushes is the number of batches submitted to the backend.
	Flushes int
	// ImplicitFlushes counts flushes triggered by capacity or draw call
	// limits rather than by the caller.
	ImplicitFlushes int
	// DrawCalls is the number of backend Draw calls issued.
	DrawCalls int
	// Vertices is the number of vertex slots drawn, padding excluded.
	Vertices int
	// StackOverflows counts dropped PushMatrix calls.
	StackOverflows int
	// StackUnderflows counts PopMatrix calls on an empty stack.
	StackUnderflows int
	// ProtocolViolations counts Begin/Vertex/End contract violations.
	ProtocolViolations int
}

// NewContext creates a Context drawing through backend.
func NewContext(backend Backend, opts ...Option) (*Context, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Context{
		cfg:      cfg,
		backend:  backend,
		state:    newVertexState(),
		matrices: NewMatrixStack(cfg.MaxMatrixStack),
		mode:     Quads,
		viewport: cfg.Viewport,
	}
	c.defaultBatch = NewRenderBatch(cfg.BufferCount, cfg.BufferElements, cfg.MaxDrawCalls, cfg.VertexAlignment)
	c.batch = c.defaultBatch
	propagateLogger(backend)

	Logger().Debug("imgl: context created",
		"backend", backend.Name(),
		"elements", cfg.BufferElements,
		"drawCalls", cfg.MaxDrawCalls,
		"buffers", cfg.BufferCount)
	return c, nil
}

// Config returns the configuration the Context was created with.
func (c *Context) Config() Config { return c.cfg }

// Backend returns the backend the Context draws through.
func (c *Context) Backend() Backend { return c.backend }

// Matrices returns the matrix stacks.
func (c *Context) Matrices() *MatrixStack { return c.matrices }

// Stats returns activity counters.
func (c *Context) Stats() Stats { return c.stats }

// Recording reports whether a Begin is open.
func (c *Context) Recording() bool { return c.phase == phaseRecording }

// Begin opens a primitive scope. Vertices up to the matching End are
// recorded as mode primitives bound to the current texture and shader.
func (c *Context) Begin(mode PrimitiveMode) {
	if c.closed {
		return
	}
	if !mode.Valid() {
		c.violation("Begin with invalid mode %d", mode)
		return
	}
	switch c.phase {
	case phaseFlushing:
		c.violation("Begin during flush")
		return
	case phaseRecording:
		c.violation("Begin(%s) while %s is open", mode, c.mode)
		c.End()
	}
	c.mode = mode
	c.scopeVerts = 0
	c.ensureDrawCall()
	c.phase = phaseRecording
}

// End closes the primitive scope opened by Begin. It never flushes.
// An incomplete trailing primitive is dropped.
func (c *Context) End() {
	if c.closed {
		return
	}
	if c.phase != phaseRecording {
		c.violation("End without Begin")
		return
	}
	if dropped := c.batch.dropPartial(); dropped > 0 {
		c.phase = phaseIdle
		c.violation("End with incomplete %s primitive, %d vertices dropped", c.mode, dropped)
		return
	}
	c.phase = phaseIdle
	if c.scopeVerts == 0 {
		c.violation("empty %s primitive", c.mode)
	}
}

// Vertex3f records a vertex with the current color, texture coordinate and
// normal. When the model matrix is not identity, the position and normal
// are transformed by it first.
func (c *Context) Vertex3f(x, y, z float32) {
	if c.closed {
		return
	}
	if c.phase != phaseRecording {
		c.violation("Vertex outside Begin/End")
		return
	}

	v := Vertex{
		Position: mgl32.Vec3{x, y, z},
		TexCoord: mgl32.Vec2(c.state.texCoord),
		Normal:   mgl32.Vec3(c.state.normal),
		Color:    c.state.color,
	}
	if c.matrices.ModelPending() {
		m := c.matrices.Matrix(Model)
		v.Position = m.Mul4x1(v.Position.Vec4(1)).Vec3()
		if n := m.Mat3().Mul3x1(v.Normal); n.Len() > 0 {
			v.Normal = n.Normalize()
		}
	}

	// A primitive never straddles two batches: before its first vertex,
	// make sure all of its slots fit.
	if c.batch.pendingSlots() == 0 && c.batch.cursor+c.mode.SlotSize() > c.batch.Capacity() {
		c.flushPreservingState(true)
	}
	c.batch.write(&v)
	c.scopeVerts++
}

// Vertex2f records a vertex at z = 0.
func (c *Context) Vertex2f(x, y float32) {
	c.Vertex3f(x, y, 0)
}

// SetTexture binds a texture for subsequent primitives. Zero selects the
// default white texture. Inside Begin/End the switch takes effect at the
// next primitive boundary by closing the current draw call; it never
// flushes unless the draw call list is full.
func (c *Context) SetTexture(id TextureID) {
	if c.texture == id {
		return
	}
	if c.phase == phaseRecording && c.batch.pendingSlots() > 0 {
		c.violation("SetTexture inside an incomplete %s primitive", c.mode)
		return
	}
	c.texture = id
	if c.phase == phaseRecording {
		c.ensureDrawCall()
	}
}

// Texture returns the bound texture.
func (c *Context) Texture() TextureID { return c.texture }

// SetShader binds a shader for subsequent primitives. A zero ID selects the
// backend default. It follows the same rules as SetTexture. Rebinding the
// same ID with new locations updates the pending draw calls of the active
// batch bound to it.
func (c *Context) SetShader(s Shader) {
	if c.shader.ID == s.ID {
		c.shader.Locs = s.Locs
		c.batch.draws.setShaderLocs(s.ID, s.Locs)
		return
	}
	if c.phase == phaseRecording && c.batch.pendingSlots() > 0 {
		c.violation("SetShader inside an incomplete %s primitive", c.mode)
		return
	}
	c.shader = s
	if c.phase == phaseRecording {
		c.ensureDrawCall()
	}
}

// ShaderBinding returns the bound shader.
func (c *Context) ShaderBinding() Shader { return c.shader }

// CheckRenderBatchLimit is the pre-flight check for a primitive of n vertex
// slots. It flushes when the slots do not fit in the active buffer or the
// draw call list is at capacity, restoring the current mode, texture and
// shader afterwards. It reports whether a flush happened.
func (c *Context) CheckRenderBatchLimit(n int) bool {
	if c.closed {
		return false
	}
	overflow := c.batch.cursor+n > c.batch.Capacity() || c.batch.draws.Full()
	if !overflow {
		return false
	}
	if c.phase == phaseRecording && c.batch.pendingSlots() > 0 {
		c.violation("CheckRenderBatchLimit inside an incomplete %s primitive", c.mode)
		return false
	}
	c.flushPreservingState(true)
	return true
}

// DrawRenderBatchActive flushes the active batch immediately and returns
// any backend error of this flush or of implicit flushes since the last
// explicit one.
func (c *Context) DrawRenderBatchActive() error {
	if c.closed {
		return ErrClosed
	}
	if c.phase == phaseRecording && c.batch.pendingSlots() > 0 {
		c.violation("flush inside an incomplete %s primitive", c.mode)
		return ErrBatchBusy
	}
	var err error
	if c.phase == phaseRecording {
		err = c.flushPreservingState(false)
	} else {
		err = c.flush(false)
	}
	return c.takeErrors(err)
}

// DrawRenderBatch flushes b, which need not be the active batch.
func (c *Context) DrawRenderBatch(b *RenderBatch) error {
	if b == nil || b == c.batch {
		return c.DrawRenderBatchActive()
	}
	if c.phase == phaseFlushing {
		return ErrFlushInProgress
	}
	prev := c.phase
	c.phase = phaseFlushing
	err := c.drawBatch(b)
	c.phase = prev
	return err
}

// LoadRenderBatch allocates an additional batch using the Context's draw
// call limit and alignment. The limits are those Config.Validate applies to
// the default batch.
func (c *Context) LoadRenderBatch(bufferCount, elements int) (*RenderBatch, error) {
	cfg := c.cfg
	cfg.BufferCount = bufferCount
	cfg.BufferElements = elements
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load render batch: %w", err)
	}
	return NewRenderBatch(bufferCount, elements, cfg.MaxDrawCalls, cfg.VertexAlignment), nil
}

// UnloadRenderBatch releases b. Unloading the active batch flushes it and
// reactivates the default batch; the default batch itself cannot be
// unloaded.
func (c *Context) UnloadRenderBatch(b *RenderBatch) error {
	if b == nil || b == c.defaultBatch {
		return nil
	}
	if b == c.batch {
		return c.SetRenderBatchActive(nil)
	}
	return nil
}

// SetRenderBatchActive flushes the active batch and makes b active. A nil b
// selects the default batch. Switching is only allowed between frames or
// primitives, never inside Begin/End.
func (c *Context) SetRenderBatchActive(b *RenderBatch) error {
	if c.phase != phaseIdle {
		c.violation("SetRenderBatchActive while %s", c.phase)
		return ErrBatchBusy
	}
	err := c.takeErrors(c.flush(false))
	if b == nil {
		b = c.defaultBatch
	}
	c.batch = b
	return err
}

// ActiveBatch returns the active batch.
func (c *Context) ActiveBatch() *RenderBatch { return c.batch }

// DefaultBatch returns the batch created with the Context.
func (c *Context) DefaultBatch() *RenderBatch { return c.defaultBatch }

// VertexCursor returns the write cursor of the active batch.
func (c *Context) VertexCursor() int { return c.batch.cursor }

// DrawCallsPending returns the number of non-empty draw calls waiting in the
// active batch.
func (c *Context) DrawCallsPending() int {
	n := 0
	for i := 0; i < c.batch.draws.Len(); i++ {
		if c.batch.draws.At(i).VertexCount > 0 {
			n++
		}
	}
	return n
}

// SetViewport sets the pixel rectangle subsequent flushes render into.
// Geometry already recorded is flushed first so it keeps the old viewport.
func (c *Context) SetViewport(x, y, width, height int) {
	vp := Viewport{X: x, Y: y, Width: width, Height: height}
	if vp == c.viewport {
		return
	}
	if !c.flushBeforeStateChange("SetViewport") {
		return
	}
	c.viewport = vp
}

// flushBeforeStateChange flushes recorded geometry so it is drawn with the
// flush state it was recorded under. Inside an incomplete primitive it
// reports a violation and returns false; the change must not be applied.
func (c *Context) flushBeforeStateChange(op string) bool {
	switch {
	case c.phase == phaseRecording && c.batch.pendingSlots() > 0:
		c.violation("%s inside an incomplete %s primitive", op, c.mode)
		return false
	case c.batch.Empty():
	case c.phase == phaseRecording:
		c.flushPreservingState(true)
	default:
		c.flush(true)
	}
	return true
}

// Viewport returns the current viewport.
func (c *Context) Viewport() Viewport { return c.viewport }

// BeginFrame resets the per-frame statistics.
func (c *Context) BeginFrame() {
	c.stats = Stats{}
}

// EndFrame flushes the active batch and checks frame-level invariants: no
// open Begin and balanced matrix stacks. It returns the accumulated backend
// errors of the frame.
func (c *Context) EndFrame() error {
	if c.closed {
		return ErrClosed
	}
	if c.phase == phaseRecording {
		// The engine does not recover an unterminated Begin; the next frame
		// starts in an undefined recording state.
		c.violation("frame ended inside Begin(%s)", c.mode)
		return c.takeErrors(ErrBatchBusy)
	}
	err := c.flush(false)
	if !c.matrices.Balanced() {
		Logger().Warn("imgl: unbalanced matrix stacks at end of frame",
			"model", c.matrices.Depth(Model),
			"view", c.matrices.Depth(View),
			"projection", c.matrices.Depth(Projection))
	}
	return c.takeErrors(err)
}

// Close flushes pending geometry and closes the backend if it supports it.
// The Context must not be used afterwards.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	var errs []error
	if c.phase == phaseRecording {
		c.batch.dropPartial()
		c.phase = phaseIdle
	}
	errs = appendErr(errs, c.takeErrors(c.flush(false)))
	switch b := c.backend.(type) {
	case interface{ Close() error }:
		errs = appendErr(errs, b.Close())
	case interface{ Close() }:
		b.Close()
	}
	forgetLogger(c.backend)
	c.closed = true
	return errors.Join(errs...)
}

// ensureDrawCall makes the current draw call match the recording state,
// flushing first when a new draw call cannot be opened.
func (c *Context) ensureDrawCall() {
	if c.batch.openDrawCall(c.mode, c.texture, c.shader) {
		return
	}
	c.flushPreservingState(true)
}

// flushPreservingState flushes and re-opens a draw call for the current
// mode, texture and shader so recording continues seamlessly.
func (c *Context) flushPreservingState(implicit bool) error {
	err := c.flush(implicit)
	c.batch.openDrawCall(c.mode, c.texture, c.shader)
	return err
}

// flush submits the active batch. Errors of implicit flushes are kept for
// the next explicit flush.
func (c *Context) flush(implicit bool) error {
	if c.phase == phaseFlushing {
		return ErrFlushInProgress
	}
	empty := c.batch.Empty()
	prev := c.phase
	c.phase = phaseFlushing
	err := c.drawBatch(c.batch)
	c.phase = prev

	if implicit && !empty {
		c.stats.ImplicitFlushes++
		if err != nil {
			Logger().Warn("imgl: implicit flush failed", "backend", c.backend.Name(), "err", err)
			c.errs = append(c.errs, err)
			return err
		}
	}
	return err
}

// takeErrors joins err with the pending implicit flush errors and clears
// them.
func (c *Context) takeErrors(err error) error {
	errs := appendErr(c.errs, err)
	c.errs = nil
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("imgl: flush: %w", errors.Join(errs...))
}

func appendErr(errs []error, err error) []error {
	if err == nil {
		return errs
	}
	return append(errs, err)
}
