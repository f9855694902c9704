package imgl

import (
	"errors"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// newTestContext returns a Context on a mock backend with assertions off
// regardless of build tags.
func newTestContext(t *testing.T, opts ...Option) (*Context, *mockBackend) {
	t.Helper()
	mock := newMockBackend()
	opts = append([]Option{WithDebugAssertions(false)}, opts...)
	ctx, err := NewContext(mock, opts...)
	if err != nil {
		t.Fatalf("NewContext() = %v", err)
	}
	return ctx, mock
}

func triangle(ctx *Context, x float32) {
	ctx.Vertex2f(x, 0)
	ctx.Vertex2f(x+1, 0)
	ctx.Vertex2f(x, 1)
}

func TestLinesScenarioSmallBuffer(t *testing.T) {
	ctx, mock := newTestContext(t, WithBufferElements(8))

	ctx.Begin(Lines)
	ctx.Vertex3f(0, 0, 0)
	ctx.Vertex3f(1, 1, 1)
	ctx.End()

	calls := ctx.ActiveBatch().DrawCalls().Calls()
	if len(calls) != 1 {
		t.Fatalf("draw calls = %d, want 1", len(calls))
	}
	if calls[0].Mode != Lines || calls[0].VertexCount != 2 {
		t.Errorf("draw call = %v, want Lines with 2 vertices", calls[0])
	}
	if ctx.Stats().Flushes != 0 || len(mock.uploads) != 0 {
		t.Errorf("unexpected flush: stats=%+v uploads=%v", ctx.Stats(), mock.uploads)
	}
}

func TestPrimitiveWithinCapacityNoFlush(t *testing.T) {
	tests := []struct {
		mode PrimitiveMode
		n    int
	}{
		{Lines, 8190},
		{Triangles, 8190},
		{Quads, 5460},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			ctx, _ := newTestContext(t)
			ctx.Begin(tt.mode)
			for i := range tt.n {
				ctx.Vertex2f(float32(i), 0)
			}
			ctx.End()

			if f := ctx.Stats().ImplicitFlushes; f != 0 {
				t.Errorf("ImplicitFlushes = %d, want 0", f)
			}
			if n := ctx.DrawCallsPending(); n != 1 {
				t.Errorf("DrawCallsPending() = %d, want 1", n)
			}
			wantSlots := tt.n / tt.mode.LogicalSize() * tt.mode.SlotSize()
			if got := ctx.ActiveBatch().DrawCalls().Current().VertexCount; got != wantSlots {
				t.Errorf("VertexCount = %d, want %d", got, wantSlots)
			}
		})
	}
}

func TestOverflowFlushesOnceAtCapacity(t *testing.T) {
	tests := []struct {
		mode     PrimitiveMode
		capacity int
		n        int
	}{
		{Lines, 8, 10},
		{Lines, 8192, 10000},
		{Triangles, 12, 15},
		{Triangles, 600, 900},
		{Quads, 12, 12},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			ctx, mock := newTestContext(t, WithBufferElements(tt.capacity))

			ctx.Begin(tt.mode)
			for i := range tt.n {
				ctx.Vertex2f(float32(i), float32(i))
			}
			ctx.End()

			if f := ctx.Stats().ImplicitFlushes; f != 1 {
				t.Fatalf("ImplicitFlushes = %d, want 1", f)
			}
			slots := tt.n / tt.mode.LogicalSize() * tt.mode.SlotSize()
			if got, want := ctx.VertexCursor(), slots%tt.capacity; got != want {
				t.Errorf("VertexCursor() = %d, want %d", got, want)
			}

			if err := ctx.DrawRenderBatchActive(); err != nil {
				t.Fatalf("DrawRenderBatchActive() = %v", err)
			}
			if got := mock.drawnVertices(); got != slots {
				t.Errorf("drawn vertex slots = %d, want %d", got, slots)
			}
		})
	}
}

func TestTenThousandTriangleVertices(t *testing.T) {
	ctx, mock := newTestContext(t)

	ctx.Begin(Triangles)
	for i := range 10000 / 3 * 3 {
		ctx.Vertex2f(float32(i), 0)
	}
	// 10000 is not a multiple of 3: the last vertex starts an incomplete
	// triangle that End drops.
	ctx.Vertex2f(0, 0)
	ctx.End()
	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatalf("DrawRenderBatchActive() = %v", err)
	}

	st := ctx.Stats()
	if st.ImplicitFlushes != 1 {
		t.Errorf("ImplicitFlushes = %d, want 1", st.ImplicitFlushes)
	}
	if st.Flushes != 2 {
		t.Errorf("Flushes = %d, want 2", st.Flushes)
	}
	if len(mock.draws) != 2 {
		t.Fatalf("draws = %d, want 2", len(mock.draws))
	}
	if mock.draws[0].count%3 != 0 {
		t.Errorf("first batch split a triangle: %d vertices", mock.draws[0].count)
	}
	if got := mock.drawnVertices(); got != 9999 {
		t.Errorf("drawn vertices = %d, want 9999", got)
	}
}

func TestTenThousandTriangleVerticesSpanBatches(t *testing.T) {
	ctx, mock := newTestContext(t)

	// 10,002 = 3334 whole triangles; the flush lands after 2730 of them.
	const n = 10002
	ctx.Begin(Triangles)
	for i := range n {
		ctx.Vertex2f(float32(i), 0)
	}
	ctx.End()
	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatal(err)
	}

	if ctx.Stats().ImplicitFlushes != 1 {
		t.Errorf("ImplicitFlushes = %d, want 1", ctx.Stats().ImplicitFlushes)
	}
	if mock.draws[0].count != 8190 {
		t.Errorf("first draw = %d vertices, want 8190", mock.draws[0].count)
	}
	if got := mock.drawnVertices(); got != n {
		t.Errorf("drawn vertices = %d, want %d", got, n)
	}

	// No vertex is duplicated or lost across the split.
	seen := make(map[float32]bool, n)
	for _, d := range mock.draws {
		for _, v := range d.vertices {
			x := v.Position[0]
			if seen[x] {
				t.Fatalf("vertex x=%v drawn twice", x)
			}
			seen[x] = true
		}
	}
	if len(seen) != n {
		t.Errorf("distinct vertices = %d, want %d", len(seen), n)
	}
}

func TestTextureSwitchSplitsDrawCalls(t *testing.T) {
	ctx, mock := newTestContext(t)
	const texA, texB = TextureID(10), TextureID(20)

	ctx.SetTexture(texA)
	ctx.Begin(Triangles)
	ctx.Color4ub(255, 0, 0, 255)
	triangle(ctx, 0)
	ctx.SetTexture(texB)
	ctx.Color4ub(0, 0, 255, 255)
	triangle(ctx, 100)
	ctx.End()

	if ctx.Stats().Flushes != 0 {
		t.Fatal("texture switch flushed the batch")
	}
	if n := ctx.DrawCallsPending(); n != 2 {
		t.Fatalf("DrawCallsPending() = %d, want 2", n)
	}
	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatal(err)
	}

	if len(mock.draws) != 2 {
		t.Fatalf("backend draws = %d, want 2", len(mock.draws))
	}
	a, b := mock.draws[0], mock.draws[1]
	if a.texture != texA || b.texture != texB {
		t.Errorf("textures = %d, %d, want %d, %d", a.texture, b.texture, texA, texB)
	}
	if a.first != 0 || a.count != 3 {
		t.Errorf("draw A = [%d, +%d), want [0, +3)", a.first, a.count)
	}
	if b.first%DefaultVertexAlignment != 0 || b.first < 3 || b.count != 3 {
		t.Errorf("draw B = [%d, +%d), want aligned start and 3 vertices", b.first, b.count)
	}
	for _, v := range b.vertices {
		if v.Color != (color.RGBA{0, 0, 255, 255}) || v.Position[0] < 100 {
			t.Errorf("draw B contains vertex from A: %+v", v)
		}
	}
	for _, v := range a.vertices {
		if v.Color != (color.RGBA{255, 0, 0, 255}) || v.Position[0] >= 100 {
			t.Errorf("draw A contains vertex from B: %+v", v)
		}
	}
}

func TestTextureSwitchMidPrimitiveRejected(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.Begin(Quads)
	ctx.Vertex2f(0, 0)
	ctx.Vertex2f(0, 1)
	ctx.SetTexture(5)
	ctx.Vertex2f(1, 1)
	ctx.Vertex2f(1, 0)
	ctx.End()

	if ctx.Texture() != 0 {
		t.Errorf("Texture() = %d, want switch ignored", ctx.Texture())
	}
	if ctx.Stats().ProtocolViolations != 1 {
		t.Errorf("ProtocolViolations = %d, want 1", ctx.Stats().ProtocolViolations)
	}
	if ctx.DrawCallsPending() != 1 {
		t.Errorf("DrawCallsPending() = %d, want 1", ctx.DrawCallsPending())
	}
}

func TestShaderSwitchSplitsDrawCalls(t *testing.T) {
	ctx, mock := newTestContext(t)
	custom := Shader{ID: 7, Locs: DefaultShaderLocations()}

	ctx.Begin(Lines)
	ctx.Vertex2f(0, 0)
	ctx.Vertex2f(1, 1)
	ctx.End()
	ctx.SetShader(custom)
	ctx.Begin(Lines)
	ctx.Vertex2f(2, 2)
	ctx.Vertex2f(3, 3)
	ctx.End()
	ctx.SetShader(Shader{})

	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatal(err)
	}
	if len(mock.draws) != 2 {
		t.Fatalf("draws = %d, want 2", len(mock.draws))
	}
	// Shader 0 resolves to the backend default (1 in the mock).
	if mock.draws[0].shader != 1 || mock.draws[1].shader != 7 {
		t.Errorf("shaders = %d, %d, want 1, 7", mock.draws[0].shader, mock.draws[1].shader)
	}
	if mock.draws[0].texture != 1 {
		t.Errorf("texture 0 resolved to %d, want default 1", mock.draws[0].texture)
	}
}

func TestSetShaderUpdatesLocations(t *testing.T) {
	mvpAt := func(loc int32) []int32 {
		locs := make([]int32, NumShaderLocations)
		for i := range locs {
			locs[i] = -1
		}
		locs[LocMatrixMVP] = loc
		return locs
	}

	ctx, mock := newTestContext(t)
	ctx.SetShader(Shader{ID: 5, Locs: mvpAt(10)})
	ctx.Begin(Triangles)
	triangle(ctx, 0)
	ctx.SetShader(Shader{ID: 5, Locs: mvpAt(20)})
	triangle(ctx, 1)
	ctx.End()
	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatal(err)
	}

	if len(mock.draws) != 1 {
		t.Fatalf("draws = %d, want 1 for the same shader", len(mock.draws))
	}
	if _, ok := mock.uniforms[20]; !ok {
		t.Error("MVP not uploaded to the updated location")
	}
	if _, ok := mock.uniforms[10]; ok {
		t.Error("MVP uploaded to the replaced location")
	}
}

func TestSameBindingMergesPrimitives(t *testing.T) {
	ctx, _ := newTestContext(t)
	for i := range 5 {
		ctx.Begin(Triangles)
		triangle(ctx, float32(i))
		ctx.End()
	}
	if n := ctx.DrawCallsPending(); n != 1 {
		t.Errorf("DrawCallsPending() = %d, want 1", n)
	}
	if c := ctx.ActiveBatch().DrawCalls().Current().VertexCount; c != 15 {
		t.Errorf("VertexCount = %d, want 15", c)
	}
}

func TestDrawCallLimitFlushes(t *testing.T) {
	ctx, mock := newTestContext(t, WithMaxDrawCalls(2))
	for i := range 3 {
		ctx.SetTexture(TextureID(i + 2))
		ctx.Begin(Triangles)
		triangle(ctx, float32(i))
		ctx.End()
	}
	if ctx.Stats().ImplicitFlushes != 1 {
		t.Errorf("ImplicitFlushes = %d, want 1", ctx.Stats().ImplicitFlushes)
	}
	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatal(err)
	}
	if len(mock.draws) != 3 {
		t.Fatalf("draws = %d, want 3", len(mock.draws))
	}
	for i, d := range mock.draws {
		if d.texture != TextureID(i+2) {
			t.Errorf("draw %d texture = %d, want %d", i, d.texture, i+2)
		}
	}
}

func TestCheckRenderBatchLimit(t *testing.T) {
	ctx, _ := newTestContext(t, WithBufferElements(12))
	ctx.SetTexture(3)
	ctx.Begin(Triangles)
	triangle(ctx, 0)
	triangle(ctx, 1)
	triangle(ctx, 2)

	if ctx.CheckRenderBatchLimit(3) {
		t.Error("CheckRenderBatchLimit(3) flushed with 3 free slots")
	}
	if !ctx.CheckRenderBatchLimit(6) {
		t.Fatal("CheckRenderBatchLimit(6) did not flush")
	}
	if ctx.VertexCursor() != 0 {
		t.Errorf("VertexCursor() = %d after flush", ctx.VertexCursor())
	}

	// Recording resumes with the same mode and texture.
	triangle(ctx, 3)
	ctx.End()
	dc := ctx.ActiveBatch().DrawCalls().Current()
	if dc.Mode != Triangles || dc.Texture != 3 || dc.VertexCount != 3 {
		t.Errorf("draw call after flush = %v, want Triangles tex=3 with 3 vertices", dc)
	}
}

func TestCheckRenderBatchLimitMidPrimitive(t *testing.T) {
	ctx, _ := newTestContext(t, WithBufferElements(6))
	ctx.Begin(Triangles)
	ctx.Vertex2f(0, 0)
	if ctx.CheckRenderBatchLimit(100) {
		t.Error("CheckRenderBatchLimit flushed an incomplete primitive")
	}
	if ctx.Stats().ProtocolViolations != 1 {
		t.Errorf("ProtocolViolations = %d, want 1", ctx.Stats().ProtocolViolations)
	}
}

func TestModelMatrixAppliedToVertices(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.MatrixMode(Model)
	ctx.PushMatrix()
	ctx.Translatef(10, 20, 0)
	ctx.Rotatef(90, 0, 0, 1)
	ctx.Normal3f(1, 0, 0)

	ctx.Begin(Lines)
	ctx.Vertex2f(1, 0)
	ctx.Vertex2f(0, 0)
	ctx.End()
	ctx.PopMatrix()

	v := ctx.ActiveBatch().Buffer().At(0)
	if v.Position.Sub(mgl32.Vec3{10, 21, 0}).Len() > 1e-4 {
		t.Errorf("position = %v, want (10, 21, 0)", v.Position)
	}
	if v.Normal.Sub(mgl32.Vec3{0, 1, 0}).Len() > 1e-4 {
		t.Errorf("normal = %v, want (0, 1, 0)", v.Normal)
	}
	if ctx.Matrices().ModelPending() {
		t.Error("model still pending after PopMatrix")
	}
}

func TestViewAndProjectionNotAppliedOnCPU(t *testing.T) {
	ctx, mock := newTestContext(t)
	ctx.MatrixMode(Projection)
	ctx.Ortho(0, 100, 100, 0, -1, 1)
	ctx.MatrixMode(View)
	ctx.Translatef(5, 0, 0)

	ctx.Begin(Lines)
	ctx.Vertex2f(1, 2)
	ctx.Vertex2f(3, 4)
	ctx.End()

	v := ctx.ActiveBatch().Buffer().At(0)
	if v.Position != (mgl32.Vec3{1, 2, 0}) {
		t.Errorf("position = %v, want untransformed", v.Position)
	}

	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatal(err)
	}
	wantMVP := mgl32.Ortho(0, 100, 100, 0, -1, 1).Mul4(mgl32.Translate3D(5, 0, 0))
	if got := mock.uniforms[int32(LocMatrixMVP)]; got != wantMVP {
		t.Errorf("MVP = %v, want %v", got, wantMVP)
	}
	if got := mock.uniforms[int32(LocMatrixModel)]; got != mgl32.Ident4() {
		t.Errorf("model uniform = %v, want identity", got)
	}
}

func TestMatrixOverrides(t *testing.T) {
	ctx, mock := newTestContext(t)
	proj := mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})

	ctx.SetMatrixProjection(proj)
	ctx.SetMatrixView(view)
	if ctx.MatrixTransform() != proj.Mul4(view) {
		t.Error("MatrixTransform() ignores overrides")
	}
	if ctx.Matrices().Matrix(Projection) != mgl32.Ident4() {
		t.Error("override modified the projection stack")
	}

	ctx.Begin(Lines)
	ctx.Vertex2f(0, 0)
	ctx.Vertex2f(1, 1)
	ctx.End()
	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatal(err)
	}
	if mock.uniforms[int32(LocMatrixProjection)] != proj || mock.uniforms[int32(LocMatrixView)] != view {
		t.Error("flush did not upload override matrices")
	}

	ctx.ClearMatrixOverrides()
	if ctx.MatrixProjection() != mgl32.Ident4() || ctx.MatrixView() != mgl32.Ident4() {
		t.Error("ClearMatrixOverrides did not restore stack matrices")
	}
}

func TestPushPopOverflowCounted(t *testing.T) {
	ctx, _ := newTestContext(t, WithMaxMatrixStack(2))
	ctx.MatrixMode(View)
	for range 4 {
		ctx.PushMatrix()
	}
	for range 3 {
		ctx.PopMatrix()
	}
	st := ctx.Stats()
	if st.StackOverflows != 2 {
		t.Errorf("StackOverflows = %d, want 2", st.StackOverflows)
	}
	if st.StackUnderflows != 1 {
		t.Errorf("StackUnderflows = %d, want 1", st.StackUnderflows)
	}
	if ctx.MatrixView() != mgl32.Ident4() {
		t.Errorf("view = %v, want identity", ctx.MatrixView())
	}
}

func TestMultMatrixAndScale(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.MatrixMode(Projection)
	ctx.MultMatrixf(mgl32.Translate3D(1, 0, 0))
	ctx.Scalef(2, 2, 2)
	want := mgl32.Translate3D(1, 0, 0).Mul4(mgl32.Scale3D(2, 2, 2))
	if ctx.MatrixProjection() != want {
		t.Errorf("projection = %v, want %v", ctx.MatrixProjection(), want)
	}
	ctx.LoadIdentity()
	ctx.Frustum(-1, 1, -1, 1, 1, 10)
	if ctx.MatrixProjection() != mgl32.Frustum(-1, 1, -1, 1, 1, 10) {
		t.Error("Frustum not applied")
	}
}

func TestProtocolViolations(t *testing.T) {
	tests := []struct {
		name string
		fn   func(ctx *Context)
	}{
		{"End without Begin", func(ctx *Context) { ctx.End() }},
		{"Vertex outside Begin", func(ctx *Context) { ctx.Vertex2f(0, 0) }},
		{"empty primitive", func(ctx *Context) { ctx.Begin(Lines); ctx.End() }},
		{"incomplete primitive", func(ctx *Context) {
			ctx.Begin(Triangles)
			ctx.Vertex2f(0, 0)
			ctx.End()
		}},
		{"nested Begin", func(ctx *Context) {
			ctx.Begin(Lines)
			ctx.Vertex2f(0, 0)
			ctx.Vertex2f(1, 1)
			ctx.Begin(Lines)
			ctx.Vertex2f(0, 0)
			ctx.Vertex2f(1, 1)
			ctx.End()
		}},
		{"invalid mode", func(ctx *Context) { ctx.Begin(PrimitiveMode(0)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := newTestContext(t)
			tt.fn(ctx)
			if ctx.Stats().ProtocolViolations != 1 {
				t.Errorf("ProtocolViolations = %d, want 1", ctx.Stats().ProtocolViolations)
			}
			if ctx.Recording() {
				t.Error("context left recording")
			}
			if err := ctx.DrawRenderBatchActive(); err != nil {
				t.Errorf("DrawRenderBatchActive() = %v", err)
			}
		})
	}
}

func TestProtocolViolationPanicsWithAssertions(t *testing.T) {
	ctx, _ := newTestContext(t, WithDebugAssertions(true))
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrProtocol) {
			t.Errorf("recover() = %v, want error wrapping ErrProtocol", r)
		}
	}()
	ctx.End()
}

func TestIncompletePrimitiveDropped(t *testing.T) {
	ctx, mock := newTestContext(t)
	ctx.Begin(Quads)
	for i := range 7 {
		ctx.Vertex2f(float32(i), 0)
	}
	ctx.End()

	if ctx.VertexCursor() != 6 {
		t.Errorf("VertexCursor() = %d, want 6", ctx.VertexCursor())
	}
	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatal(err)
	}
	if mock.drawnVertices() != 6 {
		t.Errorf("drawn = %d, want 6", mock.drawnVertices())
	}
}

func TestImplicitFlushErrorsReported(t *testing.T) {
	ctx, mock := newTestContext(t, WithBufferElements(6))
	errUpload := errors.New("upload failed")
	mock.uploadErr = errUpload

	ctx.Begin(Triangles)
	for i := range 3 {
		triangle(ctx, float32(i))
	}
	ctx.End()
	mock.uploadErr = nil

	err := ctx.DrawRenderBatchActive()
	if !errors.Is(err, errUpload) {
		t.Fatalf("DrawRenderBatchActive() = %v, want upload error", err)
	}
	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Errorf("errors not cleared: %v", err)
	}
}

func TestFlushErrorResetsBatch(t *testing.T) {
	ctx, mock := newTestContext(t)
	errDraw := errors.New("draw failed")
	mock.drawErr = errDraw

	ctx.Begin(Lines)
	ctx.Vertex2f(0, 0)
	ctx.Vertex2f(1, 1)
	ctx.End()

	if err := ctx.DrawRenderBatchActive(); !errors.Is(err, errDraw) {
		t.Fatalf("DrawRenderBatchActive() = %v, want draw error", err)
	}
	if !ctx.ActiveBatch().Empty() {
		t.Error("batch not reset after failed flush")
	}
	if mock.ends != 1 {
		t.Errorf("EndDraw calls = %d, want 1", mock.ends)
	}
}

func TestDrawRenderBatchActiveMidPrimitive(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.Begin(Lines)
	ctx.Vertex2f(0, 0)
	if err := ctx.DrawRenderBatchActive(); !errors.Is(err, ErrBatchBusy) {
		t.Errorf("DrawRenderBatchActive() = %v, want ErrBatchBusy", err)
	}
}

func TestDrawRenderBatchActiveWhileRecording(t *testing.T) {
	ctx, mock := newTestContext(t)
	ctx.SetTexture(4)
	ctx.Begin(Lines)
	ctx.Vertex2f(0, 0)
	ctx.Vertex2f(1, 1)
	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatal(err)
	}
	ctx.Vertex2f(2, 2)
	ctx.Vertex2f(3, 3)
	ctx.End()
	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatal(err)
	}
	if len(mock.draws) != 2 || mock.draws[1].texture != 4 || mock.draws[1].mode != Lines {
		t.Errorf("draws = %+v", mock.draws)
	}
}

func TestMultiBufferRotation(t *testing.T) {
	ctx, mock := newTestContext(t, WithBufferCount(2))
	for range 3 {
		ctx.Begin(Lines)
		ctx.Vertex2f(0, 0)
		ctx.Vertex2f(1, 1)
		ctx.End()
		if err := ctx.DrawRenderBatchActive(); err != nil {
			t.Fatal(err)
		}
	}
	want := []int{0, 1, 0}
	for i, b := range mock.buffers {
		if b != want[i] {
			t.Errorf("upload %d used buffer %d, want %d", i, b, want[i])
		}
	}
}

func TestEmptyFlushSkipsBackend(t *testing.T) {
	ctx, mock := newTestContext(t)
	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatal(err)
	}
	if mock.begins != 0 || len(mock.uploads) != 0 {
		t.Error("empty batch reached the backend")
	}
}

func TestRenderBatchSwitching(t *testing.T) {
	ctx, mock := newTestContext(t)
	small, err := ctx.LoadRenderBatch(1, 12)
	if err != nil {
		t.Fatal(err)
	}

	ctx.Begin(Lines)
	ctx.Vertex2f(0, 0)
	ctx.Vertex2f(1, 1)
	ctx.End()

	if err := ctx.SetRenderBatchActive(small); err != nil {
		t.Fatal(err)
	}
	if len(mock.draws) != 1 {
		t.Fatalf("switch did not flush previous batch: %d draws", len(mock.draws))
	}
	if ctx.ActiveBatch() != small {
		t.Fatal("ActiveBatch() is not the loaded batch")
	}

	ctx.Begin(Triangles)
	for i := range 5 {
		triangle(ctx, float32(i))
	}
	ctx.End()
	if ctx.Stats().ImplicitFlushes != 1 {
		t.Errorf("ImplicitFlushes = %d, want 1 for a 12-slot batch", ctx.Stats().ImplicitFlushes)
	}

	if err := ctx.UnloadRenderBatch(small); err != nil {
		t.Fatal(err)
	}
	if ctx.ActiveBatch() != ctx.DefaultBatch() {
		t.Error("unloading the active batch did not restore the default")
	}
	if mock.drawnVertices() != 2+15 {
		t.Errorf("drawn = %d, want 17", mock.drawnVertices())
	}
}

func TestLoadRenderBatchLimits(t *testing.T) {
	tests := []struct {
		name     string
		buffers  int
		elements int
		align    int
		wantErr  bool
	}{
		{"zero elements", 1, 0, 6, true},
		{"smaller than a quad", 1, 4, 6, true},
		{"one quad", 1, 6, 6, false},
		{"below alignment", 1, 6, 8, true},
		{"at alignment", 1, 8, 8, false},
		{"no buffers", 0, 64, 6, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := newTestContext(t, WithVertexAlignment(tt.align))
			b, err := ctx.LoadRenderBatch(tt.buffers, tt.elements)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) || b != nil {
					t.Errorf("LoadRenderBatch() = %v, %v; want ErrInvalidConfig", b, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadRenderBatch() = %v", err)
			}
			if b.Capacity() != tt.elements {
				t.Errorf("Capacity() = %d, want %d", b.Capacity(), tt.elements)
			}
		})
	}
}

func TestSmallestBatchFlushesEveryQuad(t *testing.T) {
	ctx, mock := newTestContext(t)
	small, err := ctx.LoadRenderBatch(1, Quads.SlotSize())
	if err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetRenderBatchActive(small); err != nil {
		t.Fatal(err)
	}

	ctx.Begin(Quads)
	for i := range 3 {
		x := float32(i)
		ctx.Vertex2f(x, 0)
		ctx.Vertex2f(x, 1)
		ctx.Vertex2f(x+1, 1)
		ctx.Vertex2f(x+1, 0)
	}
	ctx.End()
	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatal(err)
	}
	if len(mock.draws) != 3 || mock.drawnVertices() != 18 {
		t.Errorf("draws = %d, drawn = %d; want 3 draws of 6 slots", len(mock.draws), mock.drawnVertices())
	}
	if ctx.Stats().ImplicitFlushes != 2 {
		t.Errorf("ImplicitFlushes = %d, want 2", ctx.Stats().ImplicitFlushes)
	}
}

func TestSetRenderBatchActiveWhileRecording(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.Begin(Lines)
	if err := ctx.SetRenderBatchActive(nil); !errors.Is(err, ErrBatchBusy) {
		t.Errorf("SetRenderBatchActive() = %v, want ErrBatchBusy", err)
	}
}

func TestDrawRenderBatchInactive(t *testing.T) {
	ctx, mock := newTestContext(t)
	other, err := ctx.LoadRenderBatch(1, 64)
	if err != nil {
		t.Fatal(err)
	}
	other.openDrawCall(Lines, 0, Shader{})
	other.write(vtx(0, 0))
	other.write(vtx(1, 1))

	if err := ctx.DrawRenderBatch(other); err != nil {
		t.Fatal(err)
	}
	if len(mock.draws) != 1 || !other.Empty() {
		t.Errorf("draws = %d, other empty = %v", len(mock.draws), other.Empty())
	}
}

func TestSetViewportFlushesPending(t *testing.T) {
	ctx, mock := newTestContext(t, WithViewport(0, 0, 100, 100))
	ctx.Begin(Lines)
	ctx.Vertex2f(0, 0)
	ctx.Vertex2f(1, 1)
	ctx.End()

	ctx.SetViewport(0, 0, 50, 50)
	if len(mock.views) != 1 || mock.views[0] != (Viewport{Width: 100, Height: 100}) {
		t.Errorf("views = %+v, want old viewport for pending geometry", mock.views)
	}
	if ctx.Viewport() != (Viewport{Width: 50, Height: 50}) {
		t.Errorf("Viewport() = %+v", ctx.Viewport())
	}
}

func TestSetViewportInsideBegin(t *testing.T) {
	ctx, mock := newTestContext(t, WithViewport(0, 0, 100, 100))
	ctx.Begin(Triangles)
	triangle(ctx, 0)
	ctx.SetViewport(50, 50, 10, 10)
	if !ctx.Recording() {
		t.Fatal("SetViewport() closed the open Begin")
	}
	triangle(ctx, 1)
	ctx.End()
	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatal(err)
	}

	want := []Viewport{{Width: 100, Height: 100}, {X: 50, Y: 50, Width: 10, Height: 10}}
	if len(mock.views) != len(want) {
		t.Fatalf("views = %+v, want %+v", mock.views, want)
	}
	for i := range want {
		if mock.views[i] != want[i] {
			t.Errorf("views[%d] = %+v, want %+v", i, mock.views[i], want[i])
		}
	}
	if len(mock.draws) != 2 {
		t.Fatalf("draws = %d, want one per viewport", len(mock.draws))
	}
	for i, d := range mock.draws {
		if d.mode != Triangles || d.count != 3 {
			t.Errorf("draw %d = %s x%d, want Triangles x3", i, d.mode, d.count)
		}
	}
}

func TestSetViewportInsideIncompletePrimitive(t *testing.T) {
	ctx, mock := newTestContext(t, WithViewport(0, 0, 100, 100))
	ctx.Begin(Triangles)
	ctx.Vertex2f(0, 0)
	ctx.SetViewport(50, 50, 10, 10)
	if ctx.Stats().ProtocolViolations != 1 {
		t.Errorf("ProtocolViolations = %d, want 1", ctx.Stats().ProtocolViolations)
	}
	if ctx.Viewport() != (Viewport{Width: 100, Height: 100}) {
		t.Errorf("Viewport() = %+v, want unchanged", ctx.Viewport())
	}
	ctx.Vertex2f(1, 0)
	ctx.Vertex2f(0, 1)
	ctx.End()
	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatal(err)
	}
	if len(mock.views) != 1 || len(mock.draws) != 1 {
		t.Errorf("views = %+v, draws = %d; want one flush", mock.views, len(mock.draws))
	}
}

func TestEnableStereoInsideBegin(t *testing.T) {
	ctx, mock := newTestContext(t, WithViewport(0, 0, 200, 100))
	cfg := StereoConfig{
		Projection: [2]mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()},
		ViewOffset: [2]mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()},
	}

	ctx.Begin(Triangles)
	ctx.Vertex2f(0, 0)
	if err := ctx.EnableStereo(cfg); !errors.Is(err, ErrBatchBusy) {
		t.Errorf("EnableStereo() inside a primitive = %v, want ErrBatchBusy", err)
	}
	ctx.Vertex2f(1, 0)
	ctx.Vertex2f(0, 1)
	if err := ctx.EnableStereo(cfg); err != nil {
		t.Fatal(err)
	}
	triangle(ctx, 1)
	ctx.End()
	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatal(err)
	}

	want := []Viewport{
		{Width: 200, Height: 100},
		{Width: 100, Height: 100},
		{X: 100, Width: 100, Height: 100},
	}
	if len(mock.views) != len(want) {
		t.Fatalf("views = %+v, want %+v", mock.views, want)
	}
	for i := range want {
		if mock.views[i] != want[i] {
			t.Errorf("views[%d] = %+v, want %+v", i, mock.views[i], want[i])
		}
	}
}

func TestStereoDrawsPerEye(t *testing.T) {
	ctx, mock := newTestContext(t, WithViewport(0, 0, 200, 100))
	left := mgl32.Translate3D(-1, 0, 0)
	right := mgl32.Translate3D(1, 0, 0)
	err := ctx.EnableStereo(StereoConfig{
		Projection: [2]mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()},
		ViewOffset: [2]mgl32.Mat4{left, right},
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx.Begin(Triangles)
	triangle(ctx, 0)
	ctx.End()
	if err := ctx.DrawRenderBatchActive(); err != nil {
		t.Fatal(err)
	}

	if len(mock.draws) != 2 {
		t.Fatalf("draws = %d, want one per eye", len(mock.draws))
	}
	want := []Viewport{{X: 0, Width: 100, Height: 100}, {X: 100, Width: 100, Height: 100}}
	for i, vp := range want {
		if mock.views[i] != vp {
			t.Errorf("eye %d viewport = %+v, want %+v", i, mock.views[i], vp)
		}
	}
	if mock.uniforms[int32(LocMatrixView)] != right {
		t.Errorf("last view uniform = %v, want right eye offset", mock.uniforms[int32(LocMatrixView)])
	}

	ctx.DisableStereo()
	if ctx.Stereo() {
		t.Error("Stereo() = true after DisableStereo")
	}
}

func TestEnableStereoNeedsViewport(t *testing.T) {
	ctx, _ := newTestContext(t)
	if err := ctx.EnableStereo(StereoConfig{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("EnableStereo() = %v, want ErrInvalidConfig", err)
	}
}

func TestFrameLifecycle(t *testing.T) {
	ctx, mock := newTestContext(t)
	ctx.BeginFrame()
	ctx.Begin(Quads)
	ctx.Vertex2f(0, 0)
	ctx.Vertex2f(0, 1)
	ctx.Vertex2f(1, 1)
	ctx.Vertex2f(1, 0)
	ctx.End()
	if err := ctx.EndFrame(); err != nil {
		t.Fatal(err)
	}
	st := ctx.Stats()
	if st.Flushes != 1 || st.DrawCalls != 1 || st.Vertices != 6 {
		t.Errorf("stats = %+v", st)
	}
	if mock.draws[0].mode != Triangles {
		t.Errorf("quads drawn as %v, want Triangles", mock.draws[0].mode)
	}

	ctx.BeginFrame()
	if ctx.Stats() != (Stats{}) {
		t.Errorf("BeginFrame did not reset stats: %+v", ctx.Stats())
	}
}

func TestEndFrameInsideBegin(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.Begin(Lines)
	if err := ctx.EndFrame(); !errors.Is(err, ErrBatchBusy) {
		t.Errorf("EndFrame() = %v, want ErrBatchBusy", err)
	}
	if ctx.Stats().ProtocolViolations != 1 {
		t.Errorf("ProtocolViolations = %d, want 1", ctx.Stats().ProtocolViolations)
	}
}

func TestClose(t *testing.T) {
	ctx, mock := newTestContext(t)
	ctx.Begin(Lines)
	ctx.Vertex2f(0, 0)
	ctx.Vertex2f(1, 1)
	ctx.End()

	if err := ctx.Close(); err != nil {
		t.Fatal(err)
	}
	if !mock.closed {
		t.Error("backend not closed")
	}
	if len(mock.draws) != 1 {
		t.Error("Close did not flush pending geometry")
	}
	if err := ctx.DrawRenderBatchActive(); !errors.Is(err, ErrClosed) {
		t.Errorf("DrawRenderBatchActive() after Close = %v, want ErrClosed", err)
	}
	if err := ctx.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestColorStateAttached(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.Color4f(1, 0.5, 2, -1)
	ctx.TexCoord2f(0.25, 0.75)
	ctx.Begin(Lines)
	ctx.Vertex2f(0, 0)
	ctx.Color3f(0, 1, 0)
	ctx.Vertex2f(1, 1)
	ctx.End()

	v0 := ctx.ActiveBatch().Buffer().At(0)
	if v0.Color != (color.RGBA{255, 128, 255, 0}) {
		t.Errorf("clamped color = %v", v0.Color)
	}
	if v0.TexCoord != (mgl32.Vec2{0.25, 0.75}) {
		t.Errorf("texcoord = %v", v0.TexCoord)
	}
	if v1 := ctx.ActiveBatch().Buffer().At(1); v1.Color != (color.RGBA{0, 255, 0, 255}) {
		t.Errorf("second color = %v", v1.Color)
	}
}
