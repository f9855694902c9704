package recording

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/imgl"
)

// Default resources reported by the recorder.
const (
	DefaultTexture imgl.TextureID = 1
	DefaultShader  imgl.ShaderID  = 1
)

// ErrInjected wraps errors configured with FailOn.
var ErrInjected = errors.New("recording: injected failure")

// Recorder is an imgl.Backend that records every call as a Command.
//
// Recorder is not safe for concurrent use, matching imgl.Context.
type Recorder struct {
	commands []Command
	pool     *VertexPool

	// Bindings in effect, copied into each DrawCommand.
	texture  imgl.TextureID
	shader   imgl.ShaderID
	viewport imgl.Viewport
	upload   VertexRef

	failures map[CommandType]error
	logger   *slog.Logger
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		commands: make([]Command, 0, 64),
		pool:     NewVertexPool(),
		upload:   VertexRef(InvalidRef),
		logger:   imgl.Logger(),
	}
}

// SetLogger implements the imgl logger propagation hook.
func (r *Recorder) SetLogger(l *slog.Logger) { r.logger = l }

// FailOn makes the method for typ return err instead of recording. A nil
// err clears the failure. Only calls that return an error can fail.
func (r *Recorder) FailOn(typ CommandType, err error) {
	if err == nil {
		delete(r.failures, typ)
		return
	}
	if r.failures == nil {
		r.failures = make(map[CommandType]error)
	}
	r.failures[typ] = err
}

func (r *Recorder) fail(typ CommandType) error {
	if err, ok := r.failures[typ]; ok {
		return fmt.Errorf("%w: %s: %w", ErrInjected, typ, err)
	}
	return nil
}

// Name implements imgl.Backend.
func (r *Recorder) Name() string { return Name }

// DefaultTexture implements imgl.Backend.
func (r *Recorder) DefaultTexture() imgl.TextureID { return DefaultTexture }

// DefaultShader implements imgl.Backend.
func (r *Recorder) DefaultShader() imgl.Shader {
	return imgl.Shader{ID: DefaultShader, Locs: imgl.DefaultShaderLocations()}
}

// UploadVertices implements imgl.Backend.
func (r *Recorder) UploadVertices(buffer int, vb *imgl.VertexBuffer, count int) error {
	if err := r.fail(CmdUpload); err != nil {
		return err
	}
	r.upload = r.pool.Add(vb, count)
	r.commands = append(r.commands, UploadCommand{Buffer: buffer, Count: count, Vertices: r.upload})
	return nil
}

// BeginDraw implements imgl.Backend.
func (r *Recorder) BeginDraw() error {
	if err := r.fail(CmdBeginDraw); err != nil {
		return err
	}
	r.commands = append(r.commands, BeginDrawCommand{})
	return nil
}

// SetViewport implements imgl.Backend.
func (r *Recorder) SetViewport(vp imgl.Viewport) {
	r.viewport = vp
	r.commands = append(r.commands, SetViewportCommand{Viewport: vp})
}

// BindTexture implements imgl.Backend.
func (r *Recorder) BindTexture(id imgl.TextureID) error {
	if err := r.fail(CmdBindTexture); err != nil {
		return err
	}
	r.texture = id
	r.commands = append(r.commands, BindTextureCommand{Texture: id})
	return nil
}

// BindShader implements imgl.Backend.
func (r *Recorder) BindShader(s imgl.Shader) error {
	if err := r.fail(CmdBindShader); err != nil {
		return err
	}
	r.shader = s.ID
	locs := make([]int32, len(s.Locs))
	copy(locs, s.Locs)
	r.commands = append(r.commands, BindShaderCommand{Shader: imgl.Shader{ID: s.ID, Locs: locs}})
	return nil
}

// SetUniformMatrix implements imgl.Backend.
func (r *Recorder) SetUniformMatrix(loc int32, m mgl32.Mat4) error {
	if err := r.fail(CmdSetUniform); err != nil {
		return err
	}
	r.commands = append(r.commands, SetUniformCommand{Location: loc, Matrix: m})
	return nil
}

// Draw implements imgl.Backend.
func (r *Recorder) Draw(mode imgl.PrimitiveMode, first, count int) error {
	if err := r.fail(CmdDraw); err != nil {
		return err
	}
	r.commands = append(r.commands, DrawCommand{
		Mode:     mode,
		First:    first,
		Count:    count,
		Texture:  r.texture,
		Shader:   r.shader,
		Viewport: r.viewport,
		Vertices: r.upload,
	})
	return nil
}

// EndDraw implements imgl.Backend.
func (r *Recorder) EndDraw() error {
	if err := r.fail(CmdEndDraw); err != nil {
		return err
	}
	r.commands = append(r.commands, EndDrawCommand{})
	r.logger.Debug("recording: flush recorded", "commands", len(r.commands), "vertices", r.pool.Vertices())
	return nil
}

// Len returns the number of recorded commands.
func (r *Recorder) Len() int { return len(r.commands) }

// Reset discards everything recorded so far. Injected failures are kept.
func (r *Recorder) Reset() {
	r.commands = r.commands[:0]
	r.pool = NewVertexPool()
	r.upload = VertexRef(InvalidRef)
	r.texture, r.shader, r.viewport = 0, 0, imgl.Viewport{}
}

// Finish returns an immutable snapshot of what has been recorded. The
// recorder can keep recording afterwards.
func (r *Recorder) Finish() *Recording {
	cmds := make([]Command, len(r.commands))
	copy(cmds, r.commands)
	return &Recording{commands: cmds, vertices: r.pool.Clone()}
}

// Recording is an immutable container for recorded backend calls.
// It can be replayed to any imgl.Backend.
type Recording struct {
	commands []Command
	vertices *VertexPool
}

// Commands returns the recorded commands.
func (r *Recording) Commands() []Command {
	return r.commands
}

// Vertices returns the vertex pool.
func (r *Recording) Vertices() *VertexPool {
	return r.vertices
}

// Draws returns the draw commands in order.
func (r *Recording) Draws() []DrawCommand {
	var out []DrawCommand
	for _, cmd := range r.commands {
		if d, ok := cmd.(DrawCommand); ok {
			out = append(out, d)
		}
	}
	return out
}

// Count returns the number of commands of type typ.
func (r *Recording) Count(typ CommandType) int {
	n := 0
	for _, cmd := range r.commands {
		if cmd.Type() == typ {
			n++
		}
	}
	return n
}

// DrawVertices returns the vertices d draws.
func (r *Recording) DrawVertices(d DrawCommand) []imgl.Vertex {
	vs := r.vertices.Get(d.Vertices)
	if d.First < 0 || d.First+d.Count > len(vs) {
		return nil
	}
	return vs[d.First : d.First+d.Count]
}

// Playback replays the recording to backend.
func (r *Recording) Playback(backend imgl.Backend) error {
	for i, cmd := range r.commands {
		var err error
		switch c := cmd.(type) {
		case UploadCommand:
			err = backend.UploadVertices(c.Buffer, r.buffer(c), c.Count)
		case BeginDrawCommand:
			err = backend.BeginDraw()
		case EndDrawCommand:
			err = backend.EndDraw()
		case SetViewportCommand:
			backend.SetViewport(c.Viewport)
		case BindTextureCommand:
			err = backend.BindTexture(c.Texture)
		case BindShaderCommand:
			err = backend.BindShader(c.Shader)
		case SetUniformCommand:
			err = backend.SetUniformMatrix(c.Location, c.Matrix)
		case DrawCommand:
			err = backend.Draw(c.Mode, c.First, c.Count)
		}
		if err != nil {
			return fmt.Errorf("recording: playback command %d (%s): %w", i, cmd.Type(), err)
		}
	}
	return nil
}

// buffer rebuilds the vertex buffer of an upload.
func (r *Recording) buffer(c UploadCommand) *imgl.VertexBuffer {
	vs := r.vertices.Get(c.Vertices)
	vb := imgl.NewVertexBuffer(max(len(vs), 1))
	for i := range vs {
		vb.Set(i, &vs[i])
	}
	return vb
}
