package imgl

import "fmt"

// DrawCall describes one contiguous vertex range drawn with a single
// mode, texture and shader binding.
type DrawCall struct {
	// Mode is the recorded primitive mode.
	Mode PrimitiveMode

	// VertexCount is the number of vertex slots drawn. It is always a
	// multiple of Mode.SlotSize().
	VertexCount int

	// Alignment is the number of padding slots that follow the range.
	// Padding is never drawn.
	Alignment int

	// Texture is the bound texture; 0 selects the backend default.
	Texture TextureID

	// Shader is the bound shader; a zero ID selects the backend default.
	Shader Shader
}

// sameBinding reports whether a primitive with the given state can be
// appended to d without changing backend bindings.
func (d *DrawCall) sameBinding(mode PrimitiveMode, tex TextureID, sh ShaderID) bool {
	return d.Mode == mode && d.Texture == tex && d.Shader.ID == sh
}

// String implements fmt.Stringer.
func (d DrawCall) String() string {
	return fmt.Sprintf("%s[%d+%d tex=%d shader=%d]", d.Mode, d.VertexCount, d.Alignment, d.Texture, d.Shader.ID)
}

// DrawCallList is an ordered, bounded list of draw calls partitioning a
// vertex buffer. It always holds at least one entry; the last entry is the
// current, mutable one.
type DrawCallList struct {
	calls []DrawCall
	max   int
}

// NewDrawCallList creates a list bounded to max entries.
func NewDrawCallList(max int) *DrawCallList {
	if max < 1 {
		max = 1
	}
	l := &DrawCallList{calls: make([]DrawCall, 1, max), max: max}
	l.calls[0].Mode = Quads
	return l
}

// Len returns the number of entries, including an empty current entry.
func (l *DrawCallList) Len() int { return len(l.calls) }

// Max returns the capacity of the list.
func (l *DrawCallList) Max() int { return l.max }

// Full reports whether no further entry can be appended.
func (l *DrawCallList) Full() bool { return len(l.calls) >= l.max }

// Current returns the last entry.
func (l *DrawCallList) Current() *DrawCall { return &l.calls[len(l.calls)-1] }

// CurrentIndex returns the index of the last entry.
func (l *DrawCallList) CurrentIndex() int { return len(l.calls) - 1 }

// At returns entry i.
func (l *DrawCallList) At(i int) DrawCall { return l.calls[i] }

// Calls returns a copy of the entries.
func (l *DrawCallList) Calls() []DrawCall {
	out := make([]DrawCall, len(l.calls))
	copy(out, l.calls)
	return out
}

// Append adds a new current entry. It returns false when the list is full.
func (l *DrawCallList) Append(dc DrawCall) bool {
	if l.Full() {
		return false
	}
	l.calls = append(l.calls, dc)
	return true
}

// Reset leaves a single empty entry that keeps the texture and shader of
// the previous current entry.
func (l *DrawCallList) Reset() {
	last := *l.Current()
	l.calls = l.calls[:1]
	l.calls[0] = DrawCall{Mode: last.Mode, Texture: last.Texture, Shader: last.Shader}
}

// setShaderLocs replaces the locations of every entry bound to shader id.
func (l *DrawCallList) setShaderLocs(id ShaderID, locs []int32) {
	for i := range l.calls {
		if l.calls[i].Shader.ID == id {
			l.calls[i].Shader.Locs = locs
		}
	}
}

// Slots returns the total slots covered by all entries, padding included.
func (l *DrawCallList) Slots() int {
	n := 0
	for i := range l.calls {
		n += l.calls[i].VertexCount + l.calls[i].Alignment
	}
	return n
}

// Vertices returns the total drawn slots, padding excluded.
func (l *DrawCallList) Vertices() int {
	n := 0
	for i := range l.calls {
		n += l.calls[i].VertexCount
	}
	return n
}
