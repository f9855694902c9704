// Command imgldemo renders an immediate-mode scene with the software
// backend and writes it to a PNG file.
package main

import (
	"flag"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/imgl"
	"github.com/gogpu/imgl/backend/software"
)

func main() {
	var (
		width   = flag.Int("width", 800, "image width")
		height  = flag.Int("height", 600, "image height")
		output  = flag.String("output", "demo.png", "output file")
		config  = flag.String("config", "", "optional YAML batch configuration")
		stereo  = flag.Bool("stereo", false, "render side-by-side stereo")
		verbose = flag.Bool("v", false, "log flush statistics")
	)
	flag.Parse()

	if *verbose {
		imgl.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	cfg := imgl.DefaultConfig()
	if *config != "" {
		var err error
		if cfg, err = imgl.LoadConfig(*config); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	backend := software.New(*width, *height)
	ctx, err := imgl.NewContext(backend, imgl.WithConfig(cfg), imgl.WithViewport(0, 0, *width, *height))
	if err != nil {
		log.Fatalf("Failed to create context: %v", err)
	}

	w, h := float32(*width), float32(*height)
	if *stereo {
		proj := mgl32.Ortho(0, w/2, h, 0, -1, 1)
		err := ctx.EnableStereo(imgl.StereoConfig{
			Projection: [2]mgl32.Mat4{proj, proj},
			ViewOffset: [2]mgl32.Mat4{mgl32.Translate3D(-w/4, 0, 0), mgl32.Translate3D(-w/4, 0, 0)},
		})
		if err != nil {
			log.Fatalf("Failed to enable stereo: %v", err)
		}
	} else {
		ctx.MatrixMode(imgl.Projection)
		ctx.Ortho(0, w, h, 0, -1, 1)
		ctx.MatrixMode(imgl.Model)
	}

	ctx.BeginFrame()
	drawBackground(ctx, w, h)
	drawGrid(ctx, w, h)
	drawPinwheel(ctx, w/2, h/2)
	drawFan(ctx, w*0.8, h*0.75, 80)
	if err := ctx.EndFrame(); err != nil {
		log.Fatalf("Failed to render: %v", err)
	}
	stats := ctx.Stats()
	if err := ctx.Close(); err != nil {
		log.Fatalf("Failed to close context: %v", err)
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	if err := png.Encode(f, backend.Image()); err != nil {
		f.Close()
		log.Fatalf("Failed to save: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	log.Printf("Demo saved to %s (%dx%d, %d flushes, %d draw calls)\n",
		*output, *width, *height, stats.Flushes, stats.DrawCalls)
}

// drawBackground fills the frame with a vertical gradient of quads.
func drawBackground(ctx *imgl.Context, w, h float32) {
	const steps = 32
	ctx.Begin(imgl.Quads)
	for i := 0; i < steps; i++ {
		t0 := float32(i) / steps
		t1 := float32(i+1) / steps
		ctx.Color4f(0.1+t0*0.3, 0.15+t0*0.25, 0.35+t0*0.2, 1)
		ctx.Vertex2f(0, t0*h)
		ctx.Vertex2f(0, t1*h)
		ctx.Vertex2f(w, t1*h)
		ctx.Vertex2f(w, t0*h)
	}
	ctx.End()
}

func drawGrid(ctx *imgl.Context, w, h float32) {
	const cell = 40
	ctx.Begin(imgl.Lines)
	ctx.Color4ub(255, 255, 255, 48)
	for x := float32(0); x <= w; x += cell {
		ctx.Vertex2f(x, 0)
		ctx.Vertex2f(x, h)
	}
	for y := float32(0); y <= h; y += cell {
		ctx.Vertex2f(0, y)
		ctx.Vertex2f(w, y)
	}
	ctx.End()
}

// drawPinwheel draws rotated squares using the model matrix stack.
func drawPinwheel(ctx *imgl.Context, cx, cy float32) {
	for i := 0; i < 8; i++ {
		ctx.PushMatrix()
		ctx.Translatef(cx, cy, 0)
		ctx.Rotatef(float32(i)*45, 0, 0, 1)
		ctx.Translatef(90, 0, 0)

		hue := float64(i) / 8
		ctx.Color4f(float32(0.5+0.5*math.Cos(2*math.Pi*hue)),
			float32(0.5+0.5*math.Cos(2*math.Pi*(hue+1.0/3))),
			float32(0.5+0.5*math.Cos(2*math.Pi*(hue+2.0/3))), 0.9)
		ctx.Begin(imgl.Quads)
		ctx.Vertex2f(-30, -30)
		ctx.Vertex2f(-30, 30)
		ctx.Vertex2f(30, 30)
		ctx.Vertex2f(30, -30)
		ctx.End()
		ctx.PopMatrix()
	}
}

// drawFan draws a circle as independent triangles.
func drawFan(ctx *imgl.Context, cx, cy, r float32) {
	const segments = 48
	ctx.Begin(imgl.Triangles)
	for i := 0; i < segments; i++ {
		a0 := 2 * math.Pi * float64(i) / segments
		a1 := 2 * math.Pi * float64(i+1) / segments
		ctx.Color4ub(255, 200, 0, 255)
		ctx.Vertex2f(cx, cy)
		ctx.Color4ub(255, 80, 0, 255)
		ctx.Vertex2f(cx+r*float32(math.Cos(a0)), cy+r*float32(math.Sin(a0)))
		ctx.Vertex2f(cx+r*float32(math.Cos(a1)), cy+r*float32(math.Sin(a1)))
	}
	ctx.End()
}
