package imgl

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MatrixStack maintains the model, view and projection matrices, each with
// its own bounded push/pop stack. Operations act on the matrix selected by
// SetMode; the selection is an index, never an alias, so matrices of other
// modes are never touched.
//
// Matrices use the column-vector convention of mgl32: transforms are
// right-multiplied onto the active matrix, so the last operation issued is
// the first one applied to a vertex.
type MatrixStack struct {
	mode     MatrixMode
	current  [numMatrixModes]mgl32.Mat4
	stacks   [numMatrixModes][]mgl32.Mat4
	maxDepth int

	// modelPending is true while the model matrix differs from identity.
	modelPending bool

	overflows  int
	underflows int
}

// NewMatrixStack creates a stack set with identity matrices and the given
// maximum push depth per mode. Depths below one are raised to one.
func NewMatrixStack(maxDepth int) *MatrixStack {
	if maxDepth < 1 {
		maxDepth = 1
	}
	s := &MatrixStack{maxDepth: maxDepth, mode: Model}
	for m := range s.current {
		s.current[m] = mgl32.Ident4()
		s.stacks[m] = make([]mgl32.Mat4, 0, maxDepth)
	}
	return s
}

// SetMode selects the matrix subsequent operations act on. Unknown modes
// are ignored.
func (s *MatrixStack) SetMode(mode MatrixMode) {
	if mode >= numMatrixModes {
		Logger().Warn("imgl: unknown matrix mode", "mode", mode)
		return
	}
	s.mode = mode
}

// Mode returns the selected matrix mode.
func (s *MatrixStack) Mode() MatrixMode { return s.mode }

// MaxDepth returns the configured maximum push depth.
func (s *MatrixStack) MaxDepth() int { return s.maxDepth }

// Depth returns the number of matrices pushed for mode.
func (s *MatrixStack) Depth(mode MatrixMode) int {
	if mode >= numMatrixModes {
		return 0
	}
	return len(s.stacks[mode])
}

// Matrix returns the active matrix of mode.
func (s *MatrixStack) Matrix(mode MatrixMode) mgl32.Mat4 {
	if mode >= numMatrixModes {
		return mgl32.Ident4()
	}
	return s.current[mode]
}

// Current returns the active matrix of the selected mode.
func (s *MatrixStack) Current() mgl32.Mat4 {
	return s.current[s.mode]
}

// ModelPending reports whether recorded vertices must be transformed by the
// model matrix.
func (s *MatrixStack) ModelPending() bool { return s.modelPending }

// Push saves a copy of the active matrix. At maximum depth the push is
// dropped, a warning is logged and false is returned.
func (s *MatrixStack) Push() bool {
	st := s.stacks[s.mode]
	if len(st) >= s.maxDepth {
		s.overflows++
		Logger().Warn("imgl: matrix stack overflow, push ignored",
			"mode", s.mode, "max", s.maxDepth)
		return false
	}
	s.stacks[s.mode] = append(st, s.current[s.mode])
	return true
}

// Pop restores the most recently pushed matrix. On an empty stack the
// active matrix is reset to identity, a warning is logged and false is
// returned.
func (s *MatrixStack) Pop() bool {
	st := s.stacks[s.mode]
	if len(st) == 0 {
		s.underflows++
		Logger().Warn("imgl: matrix stack underflow, resetting to identity", "mode", s.mode)
		s.set(mgl32.Ident4())
		return false
	}
	top := st[len(st)-1]
	s.stacks[s.mode] = st[:len(st)-1]
	s.set(top)
	return true
}

// LoadIdentity replaces the active matrix with identity.
func (s *MatrixStack) LoadIdentity() {
	s.set(mgl32.Ident4())
}

// Load replaces the active matrix.
func (s *MatrixStack) Load(m mgl32.Mat4) {
	s.set(m)
}

// Mult right-multiplies the active matrix by m.
func (s *MatrixStack) Mult(m mgl32.Mat4) {
	s.set(s.current[s.mode].Mul4(m))
}

// Translate right-multiplies the active matrix by a translation.
func (s *MatrixStack) Translate(x, y, z float32) {
	s.Mult(mgl32.Translate3D(x, y, z))
}

// Rotate right-multiplies the active matrix by a rotation of angle degrees
// around the axis (x, y, z). A zero axis leaves the matrix unchanged.
func (s *MatrixStack) Rotate(angle, x, y, z float32) {
	axis := mgl32.Vec3{x, y, z}
	if axis.Len() == 0 {
		return
	}
	s.Mult(mgl32.HomogRotate3D(mgl32.DegToRad(angle), axis.Normalize()))
}

// Scale right-multiplies the active matrix by a scale.
func (s *MatrixStack) Scale(x, y, z float32) {
	s.Mult(mgl32.Scale3D(x, y, z))
}

// Ortho right-multiplies the active matrix by an orthographic projection.
func (s *MatrixStack) Ortho(left, right, bottom, top, near, far float32) {
	s.Mult(mgl32.Ortho(left, right, bottom, top, near, far))
}

// Frustum right-multiplies the active matrix by a perspective frustum.
func (s *MatrixStack) Frustum(left, right, bottom, top, near, far float32) {
	s.Mult(mgl32.Frustum(left, right, bottom, top, near, far))
}

// Reset restores identity matrices, empties all stacks and selects Model.
func (s *MatrixStack) Reset() {
	for m := range s.current {
		s.current[m] = mgl32.Ident4()
		s.stacks[m] = s.stacks[m][:0]
	}
	s.mode = Model
	s.modelPending = false
}

// Balanced reports whether every stack is empty.
func (s *MatrixStack) Balanced() bool {
	for m := range s.stacks {
		if len(s.stacks[m]) != 0 {
			return false
		}
	}
	return true
}

// Overflows returns the number of dropped pushes.
func (s *MatrixStack) Overflows() int { return s.overflows }

// Underflows returns the number of pops on an empty stack.
func (s *MatrixStack) Underflows() int { return s.underflows }

func (s *MatrixStack) set(m mgl32.Mat4) {
	s.current[s.mode] = m
	if s.mode == Model {
		s.modelPending = m != mgl32.Ident4()
	}
}
