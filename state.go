package imgl

import "image/color"

// vertexState holds the attributes attached to the next recorded vertex.
type vertexState struct {
	color    color.RGBA
	texCoord [2]float32
	normal   [3]float32
}

func newVertexState() vertexState {
	return vertexState{
		color:  color.RGBA{R: 255, G: 255, B: 255, A: 255},
		normal: [3]float32{0, 0, 1},
	}
}

// Color4ub sets the color of subsequent vertices.
func (c *Context) Color4ub(r, g, b, a uint8) {
	c.state.color = color.RGBA{R: r, G: g, B: b, A: a}
}

// Color4f sets the color of subsequent vertices from normalized components.
// Components are clamped to [0, 1].
func (c *Context) Color4f(r, g, b, a float32) {
	c.Color4ub(unitToByte(r), unitToByte(g), unitToByte(b), unitToByte(a))
}

// Color3f sets an opaque color from normalized components.
func (c *Context) Color3f(r, g, b float32) {
	c.Color4f(r, g, b, 1)
}

// SetColor sets the color of subsequent vertices from any color.Color.
func (c *Context) SetColor(col color.Color) {
	c.state.color = color.RGBAModel.Convert(col).(color.RGBA) //nolint:forcetypeassert // RGBAModel always returns color.RGBA
}

// TexCoord2f sets the texture coordinate of subsequent vertices.
func (c *Context) TexCoord2f(u, v float32) {
	c.state.texCoord = [2]float32{u, v}
}

// Normal3f sets the normal of subsequent vertices.
func (c *Context) Normal3f(x, y, z float32) {
	c.state.normal = [3]float32{x, y, z}
}

// CurrentColor returns the color that the next vertex will receive.
func (c *Context) CurrentColor() color.RGBA {
	return c.state.color
}

func unitToByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
