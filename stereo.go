package imgl

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// StereoConfig describes side-by-side stereo rendering. Index 0 is the left
// eye, drawn into the left half of the viewport.
type StereoConfig struct {
	// Projection is the per-eye projection matrix.
	Projection [2]mgl32.Mat4
	// ViewOffset is pre-multiplied onto the view matrix for each eye.
	ViewOffset [2]mgl32.Mat4
}

// EnableStereo draws every subsequent flush once per eye. The viewport must
// be set since each eye renders into half of it. Geometry already recorded
// is flushed first; inside an incomplete primitive it returns ErrBatchBusy.
func (c *Context) EnableStereo(cfg StereoConfig) error {
	if c.viewport.Empty() {
		return fmt.Errorf("%w: stereo rendering needs a viewport", ErrInvalidConfig)
	}
	if !c.flushBeforeStateChange("EnableStereo") {
		return ErrBatchBusy
	}
	c.stereo = &cfg
	return nil
}

// DisableStereo returns to single-view rendering.
func (c *Context) DisableStereo() {
	if c.stereo == nil {
		return
	}
	if !c.flushBeforeStateChange("DisableStereo") {
		return
	}
	c.stereo = nil
}

// Stereo reports whether stereo rendering is enabled.
func (c *Context) Stereo() bool { return c.stereo != nil }

// eyeView is the viewport, projection and view of one pass over a batch.
type eyeView struct {
	viewport   Viewport
	projection mgl32.Mat4
	view       mgl32.Mat4
}

// eyes returns the passes a flush makes: one without stereo, two with.
func (c *Context) eyes() []eyeView {
	proj, view := c.MatrixProjection(), c.MatrixView()
	if c.stereo == nil {
		return []eyeView{{viewport: c.viewport, projection: proj, view: view}}
	}
	half := c.viewport.Width / 2
	out := make([]eyeView, 2)
	for eye := range out {
		out[eye] = eyeView{
			viewport: Viewport{
				X:      c.viewport.X + eye*half,
				Y:      c.viewport.Y,
				Width:  half,
				Height: c.viewport.Height,
			},
			projection: c.stereo.Projection[eye],
			view:       c.stereo.ViewOffset[eye].Mul4(view),
		}
	}
	return out
}
