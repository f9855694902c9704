package recording

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/imgl"
)

// CommandType identifies the type of a command.
// Each command type corresponds to one imgl.Backend method.
type CommandType uint8

const (
	// Submission commands
	CmdUpload    CommandType = iota // Upload a vertex range
	CmdBeginDraw                    // Start a flush
	CmdEndDraw                      // Submit a flush

	// State commands
	CmdSetViewport // Set the viewport
	CmdBindTexture // Bind a texture
	CmdBindShader  // Bind a shader
	CmdSetUniform  // Upload a matrix uniform

	// Drawing commands
	CmdDraw // Draw a vertex range
)

// commandTypeNames maps CommandType values to their string representation.
var commandTypeNames = [...]string{
	CmdUpload:      "Upload",
	CmdBeginDraw:   "BeginDraw",
	CmdEndDraw:     "EndDraw",
	CmdSetViewport: "SetViewport",
	CmdBindTexture: "BindTexture",
	CmdBindShader:  "BindShader",
	CmdSetUniform:  "SetUniform",
	CmdDraw:        "Draw",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is the interface implemented by all command types.
type Command interface {
	// Type returns the CommandType for this command.
	Type() CommandType
}

// VertexRef is a reference to an uploaded vertex range in the pool.
type VertexRef uint32

// InvalidRef is the sentinel value for an invalid reference.
const InvalidRef = ^uint32(0)

// IsValid returns true if the reference points to a vertex range.
func (r VertexRef) IsValid() bool {
	return uint32(r) != InvalidRef
}

// --------------------------------------------------------------------------
// Submission Commands
// --------------------------------------------------------------------------

// UploadCommand records a vertex upload. The uploaded slots are stored in
// the pool so later vertex changes do not affect the recording.
type UploadCommand struct {
	Buffer   int
	Count    int
	Vertices VertexRef
}

// Type implements Command.
func (UploadCommand) Type() CommandType { return CmdUpload }

// BeginDrawCommand starts a flush.
type BeginDrawCommand struct{}

// Type implements Command.
func (BeginDrawCommand) Type() CommandType { return CmdBeginDraw }

// EndDrawCommand ends a flush.
type EndDrawCommand struct{}

// Type implements Command.
func (EndDrawCommand) Type() CommandType { return CmdEndDraw }

// --------------------------------------------------------------------------
// State Commands
// --------------------------------------------------------------------------

// SetViewportCommand sets the viewport of subsequent draws.
type SetViewportCommand struct {
	Viewport imgl.Viewport
}

// Type implements Command.
func (SetViewportCommand) Type() CommandType { return CmdSetViewport }

// BindTextureCommand binds a texture.
type BindTextureCommand struct {
	Texture imgl.TextureID
}

// Type implements Command.
func (BindTextureCommand) Type() CommandType { return CmdBindTexture }

// BindShaderCommand binds a shader.
type BindShaderCommand struct {
	Shader imgl.Shader
}

// Type implements Command.
func (BindShaderCommand) Type() CommandType { return CmdBindShader }

// SetUniformCommand uploads a matrix to a shader location.
type SetUniformCommand struct {
	Location int32
	Matrix   mgl32.Mat4
}

// Type implements Command.
func (SetUniformCommand) Type() CommandType { return CmdSetUniform }

// --------------------------------------------------------------------------
// Drawing Commands
// --------------------------------------------------------------------------

// DrawCommand draws Count slots starting at First of the last upload.
// Texture and Shader are the bindings in effect when it was issued.
type DrawCommand struct {
	Mode     imgl.PrimitiveMode
	First    int
	Count    int
	Texture  imgl.TextureID
	Shader   imgl.ShaderID
	Viewport imgl.Viewport
	Vertices VertexRef
}

// Type implements Command.
func (DrawCommand) Type() CommandType { return CmdDraw }
