package imgl

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
)

// mockDraw is one Draw call seen by mockBackend.
type mockDraw struct {
	mode     PrimitiveMode
	first    int
	count    int
	texture  TextureID
	shader   ShaderID
	vertices []Vertex
}

// mockBackend is a test backend that records what the flusher does.
type mockBackend struct {
	name     string
	uploads  []int
	buffers  []int
	draws    []mockDraw
	uniforms map[int32]mgl32.Mat4
	views    []Viewport
	begins   int
	ends     int
	logger   *slog.Logger
	closed   bool

	uploadErr error
	drawErr   error

	vb      *VertexBuffer
	texture TextureID
	shader  ShaderID
}

func newMockBackend() *mockBackend {
	return &mockBackend{name: "mock", uniforms: make(map[int32]mgl32.Mat4)}
}

func (m *mockBackend) Name() string              { return m.name }
func (m *mockBackend) DefaultTexture() TextureID { return 1 }
func (m *mockBackend) DefaultShader() Shader {
	return Shader{ID: 1, Locs: DefaultShaderLocations()}
}

func (m *mockBackend) UploadVertices(buffer int, vb *VertexBuffer, count int) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.uploads = append(m.uploads, count)
	m.buffers = append(m.buffers, buffer)
	m.vb = vb
	return nil
}

func (m *mockBackend) BeginDraw() error { m.begins++; return nil }

func (m *mockBackend) SetViewport(vp Viewport) { m.views = append(m.views, vp) }

func (m *mockBackend) BindTexture(id TextureID) error { m.texture = id; return nil }

func (m *mockBackend) BindShader(s Shader) error { m.shader = s.ID; return nil }

func (m *mockBackend) SetUniformMatrix(loc int32, mat mgl32.Mat4) error {
	m.uniforms[loc] = mat
	return nil
}

func (m *mockBackend) Draw(mode PrimitiveMode, first, count int) error {
	if m.drawErr != nil {
		return m.drawErr
	}
	m.draws = append(m.draws, mockDraw{
		mode:     mode,
		first:    first,
		count:    count,
		texture:  m.texture,
		shader:   m.shader,
		vertices: m.vb.Range(first, count),
	})
	return nil
}

func (m *mockBackend) EndDraw() error { m.ends++; return nil }

func (m *mockBackend) SetLogger(l *slog.Logger) { m.logger = l }

func (m *mockBackend) Close() error { m.closed = true; return nil }

// drawnVertices sums the vertex counts of all recorded draws.
func (m *mockBackend) drawnVertices() int {
	n := 0
	for _, d := range m.draws {
		n += d.count
	}
	return n
}
