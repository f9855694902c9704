// Command imglview opens a window and draws an animated immediate-mode
// scene through the Ebitengine backend.
package main

import (
	"flag"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/gogpu/imgl"
	"github.com/gogpu/imgl/backend/ebitengine"
)

type viewer struct {
	backend *ebitengine.Backend
	ctx     *imgl.Context
	width   int
	height  int
	tick    int
}

func (v *viewer) Update() error {
	v.tick++
	return nil
}

func (v *viewer) Draw(screen *ebiten.Image) {
	v.backend.SetTarget(screen)
	w, h := float32(v.width), float32(v.height)

	v.ctx.BeginFrame()
	v.ctx.MatrixMode(imgl.Projection)
	v.ctx.LoadIdentity()
	v.ctx.Ortho(0, w, h, 0, -1, 1)
	v.ctx.MatrixMode(imgl.Model)

	v.ctx.PushMatrix()
	v.ctx.Translatef(w/2, h/2, 0)
	v.ctx.Rotatef(float32(v.tick), 0, 0, 1)
	v.ctx.Begin(imgl.Quads)
	v.ctx.Color4ub(230, 41, 55, 255)
	v.ctx.Vertex2f(-80, -80)
	v.ctx.Color4ub(0, 121, 241, 255)
	v.ctx.Vertex2f(-80, 80)
	v.ctx.Color4ub(0, 228, 48, 255)
	v.ctx.Vertex2f(80, 80)
	v.ctx.Color4ub(253, 249, 0, 255)
	v.ctx.Vertex2f(80, -80)
	v.ctx.End()
	v.ctx.PopMatrix()

	v.ctx.Begin(imgl.Lines)
	v.ctx.Color4ub(255, 255, 255, 255)
	for i := 0; i < 64; i++ {
		x := float32(i) * w / 64
		y := h/2 + 100*float32(math.Sin(float64(i+v.tick)/8))
		v.ctx.Vertex2f(x, y)
		v.ctx.Vertex2f(x+w/64, h/2+100*float32(math.Sin(float64(i+1+v.tick)/8)))
	}
	v.ctx.End()

	if err := v.ctx.EndFrame(); err != nil {
		imgl.Logger().Warn("imglview: frame failed", "error", err)
	}
}

func (v *viewer) Layout(_, _ int) (int, int) {
	return v.width, v.height
}

func main() {
	var (
		width   = flag.Int("width", 800, "window width")
		height  = flag.Int("height", 600, "window height")
		verbose = flag.Bool("v", false, "log flush statistics")
	)
	flag.Parse()

	if *verbose {
		imgl.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	backend := ebitengine.New(nil)
	ctx, err := imgl.NewContext(backend)
	if err != nil {
		log.Fatalf("Failed to create context: %v", err)
	}

	ebiten.SetWindowTitle("imglview")
	ebiten.SetWindowSize(*width, *height)
	if err := ebiten.RunGame(&viewer{backend: backend, ctx: ctx, width: *width, height: *height}); err != nil {
		log.Fatalf("imglview: %v", err)
	}
	if err := ctx.Close(); err != nil {
		log.Printf("imglview: %v", err)
	}
}
