package imgl

import "github.com/go-gl/mathgl/mgl32"

// MatrixMode selects the stack subsequent matrix operations affect.
func (c *Context) MatrixMode(mode MatrixMode) {
	c.matrices.SetMode(mode)
}

// PushMatrix saves the active matrix. At maximum depth the call is dropped
// with a warning.
func (c *Context) PushMatrix() {
	if !c.matrices.Push() {
		c.stats.StackOverflows++
	}
}

// PopMatrix restores the last saved matrix. On an empty stack the active
// matrix is reset to identity with a warning.
func (c *Context) PopMatrix() {
	if !c.matrices.Pop() {
		c.stats.StackUnderflows++
	}
}

// LoadIdentity replaces the active matrix with identity.
func (c *Context) LoadIdentity() { c.matrices.LoadIdentity() }

// Translatef multiplies the active matrix by a translation.
func (c *Context) Translatef(x, y, z float32) { c.matrices.Translate(x, y, z) }

// Rotatef multiplies the active matrix by a rotation of angle degrees
// around (x, y, z).
func (c *Context) Rotatef(angle, x, y, z float32) { c.matrices.Rotate(angle, x, y, z) }

// Scalef multiplies the active matrix by a scale.
func (c *Context) Scalef(x, y, z float32) { c.matrices.Scale(x, y, z) }

// MultMatrixf multiplies the active matrix by m.
func (c *Context) MultMatrixf(m mgl32.Mat4) { c.matrices.Mult(m) }

// Ortho multiplies the active matrix by an orthographic projection.
func (c *Context) Ortho(left, right, bottom, top, near, far float32) {
	c.matrices.Ortho(left, right, bottom, top, near, far)
}

// Frustum multiplies the active matrix by a perspective projection.
func (c *Context) Frustum(left, right, bottom, top, near, far float32) {
	c.matrices.Frustum(left, right, bottom, top, near, far)
}

// SetMatrixProjection overrides the projection matrix used at flush time
// until ClearMatrixOverrides. The projection stack is left untouched.
func (c *Context) SetMatrixProjection(m mgl32.Mat4) { c.projOverride = &m }

// SetMatrixView overrides the view matrix used at flush time.
func (c *Context) SetMatrixView(m mgl32.Mat4) { c.viewOverride = &m }

// ClearMatrixOverrides returns to the stack matrices.
func (c *Context) ClearMatrixOverrides() {
	c.projOverride = nil
	c.viewOverride = nil
}

// MatrixModel returns the model matrix.
func (c *Context) MatrixModel() mgl32.Mat4 { return c.matrices.Matrix(Model) }

// MatrixView returns the view matrix in effect at flush time.
func (c *Context) MatrixView() mgl32.Mat4 {
	if c.viewOverride != nil {
		return *c.viewOverride
	}
	return c.matrices.Matrix(View)
}

// MatrixProjection returns the projection matrix in effect at flush time.
func (c *Context) MatrixProjection() mgl32.Mat4 {
	if c.projOverride != nil {
		return *c.projOverride
	}
	return c.matrices.Matrix(Projection)
}

// MatrixTransform returns projection × view, the MVP uploaded at flush.
// The model matrix is already applied to recorded vertices.
func (c *Context) MatrixTransform() mgl32.Mat4 {
	return c.MatrixProjection().Mul4(c.MatrixView())
}
