// Package recording provides an imgl backend that records backend calls.
//
// The recording backend captures every call the imgl flusher makes as a
// typed command instead of rendering. Recorded commands can be inspected
// in tests, dumped for debugging, or replayed to another backend.
//
// # Architecture
//
// The package follows a Command Pattern with three main components:
//
//   - Recorder: an imgl.Backend that captures calls as commands
//   - Recording: an immutable snapshot of commands and uploaded vertices
//   - VertexPool: vertex data referenced by upload commands
//
// # Basic Usage
//
//	rec := recording.NewRecorder()
//	ctx, _ := imgl.NewContext(rec)
//
//	ctx.Begin(imgl.Lines)
//	ctx.Vertex2f(0, 0)
//	ctx.Vertex2f(10, 10)
//	ctx.End()
//	ctx.DrawRenderBatchActive()
//
//	r := rec.Finish()
//	for _, d := range r.Draws() {
//		fmt.Println(d.Mode, d.Count, r.DrawVertices(d))
//	}
//
// # Playback
//
// A Recording can be replayed to any imgl.Backend:
//
//	sw := software.New(640, 480)
//	if err := r.Playback(sw); err != nil {
//		return err
//	}
//
// # Backend Registration
//
// The recorder registers itself with imgl under the name "recording":
//
//	b, err := imgl.NewBackend("recording")
package recording
