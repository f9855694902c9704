package imgl

// RenderBatch accumulates vertices and draw calls between flushes. It owns
// one or more vertex buffers (rotated after each flush), a draw call list
// and the write cursor into the active buffer.
//
// A RenderBatch is created once and reset after every flush. Only one batch
// is active on a Context at a time; switch with Context.SetRenderBatchActive
// at frame boundaries.
type RenderBatch struct {
	buffers       []*VertexBuffer
	currentBuffer int
	cursor        int
	draws         *DrawCallList
	alignment     int

	// quadVertex counts vertices submitted for the current quad so the
	// fourth one can be expanded into two triangles.
	quadVertex int
}

// NewRenderBatch allocates a batch with bufferCount buffers of elements
// vertex slots, at most maxDrawCalls draw calls and the given start-offset
// alignment. Buffers hold at least one quad and one alignment unit.
func NewRenderBatch(bufferCount, elements, maxDrawCalls, alignment int) *RenderBatch {
	if bufferCount < 1 {
		bufferCount = 1
	}
	if alignment < 1 {
		alignment = 1
	}
	elements = max(elements, Quads.SlotSize(), alignment)
	b := &RenderBatch{
		buffers:   make([]*VertexBuffer, bufferCount),
		draws:     NewDrawCallList(maxDrawCalls),
		alignment: alignment,
	}
	for i := range b.buffers {
		b.buffers[i] = NewVertexBuffer(elements)
	}
	return b
}

// Capacity returns the slot capacity of each buffer.
func (b *RenderBatch) Capacity() int { return b.buffers[0].Capacity() }

// Cursor returns the write cursor of the active buffer.
func (b *RenderBatch) Cursor() int { return b.cursor }

// BufferCount returns the number of rotating buffers.
func (b *RenderBatch) BufferCount() int { return len(b.buffers) }

// CurrentBuffer returns the index of the active buffer.
func (b *RenderBatch) CurrentBuffer() int { return b.currentBuffer }

// Buffer returns the active vertex buffer.
func (b *RenderBatch) Buffer() *VertexBuffer { return b.buffers[b.currentBuffer] }

// DrawCalls returns the draw call list.
func (b *RenderBatch) DrawCalls() *DrawCallList { return b.draws }

// Empty reports whether nothing has been recorded since the last reset.
func (b *RenderBatch) Empty() bool { return b.cursor == 0 }

// Remaining returns the free slots in the active buffer.
func (b *RenderBatch) Remaining() int { return b.Capacity() - b.cursor }

// padding returns the slots needed to align the cursor.
func (b *RenderBatch) padding() int {
	if r := b.cursor % b.alignment; r != 0 {
		return b.alignment - r
	}
	return 0
}

// openDrawCall makes the current draw call match mode, texture and shader.
// An empty current entry is re-targeted in place; otherwise the current
// entry is closed with alignment padding and a new one appended. It returns
// false when a new entry is needed but the list is full or the padding does
// not fit, in which case the caller must flush first.
func (b *RenderBatch) openDrawCall(mode PrimitiveMode, tex TextureID, sh Shader) bool {
	cur := b.draws.Current()
	if cur.VertexCount == 0 {
		cur.Mode, cur.Texture, cur.Shader = mode, tex, sh
		return true
	}
	if cur.sameBinding(mode, tex, sh.ID) {
		return true
	}
	pad := b.padding()
	if b.draws.Full() || b.cursor+pad > b.Capacity() {
		return false
	}
	cur.Alignment = pad
	b.cursor += pad
	b.draws.Append(DrawCall{Mode: mode, Texture: tex, Shader: sh})
	return true
}

// write stores v at the cursor and advances it. Quad vertices are expanded:
// the fourth vertex of a quad also writes copies of the first and third so
// the quad is stored as two triangles (v0 v1 v2, v0 v2 v3).
func (b *RenderBatch) write(v *Vertex) {
	buf := b.Buffer()
	cur := b.draws.Current()
	if cur.Mode != Quads {
		buf.Set(b.cursor, v)
		b.cursor++
		cur.VertexCount++
		return
	}
	if b.quadVertex < 3 {
		buf.Set(b.cursor, v)
		b.cursor++
		b.quadVertex++
		return
	}
	first := b.cursor - 3
	buf.Copy(b.cursor, first)
	buf.Copy(b.cursor+1, first+2)
	buf.Set(b.cursor+2, v)
	b.cursor += 3
	b.quadVertex = 0
	cur.VertexCount += Quads.SlotSize()
}

// pendingSlots returns the slots written for a primitive that is not
// complete yet, for example the first three vertices of a quad or the
// first vertex of a line.
func (b *RenderBatch) pendingSlots() int {
	cur := b.draws.Current()
	if cur.Mode == Quads {
		return b.quadVertex
	}
	if n := cur.Mode.SlotSize(); n > 0 {
		return cur.VertexCount % n
	}
	return 0
}

// dropPartial discards the slots of an incomplete trailing primitive and
// returns how many were dropped.
func (b *RenderBatch) dropPartial() int {
	n := b.pendingSlots()
	if n == 0 {
		return 0
	}
	b.cursor -= n
	if cur := b.draws.Current(); cur.Mode == Quads {
		b.quadVertex = 0
	} else {
		cur.VertexCount -= n
	}
	return n
}

// reset clears recorded geometry, keeping the last texture and shader, and
// rotates to the next buffer.
func (b *RenderBatch) reset() {
	b.cursor = 0
	b.quadVertex = 0
	b.draws.Reset()
	b.currentBuffer = (b.currentBuffer + 1) % len(b.buffers)
}
