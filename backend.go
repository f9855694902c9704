package imgl

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// TextureID is an opaque backend texture handle. Zero selects the backend's
// default 1x1 white texture.
type TextureID uint32

// ShaderID is an opaque backend shader handle. Zero selects the backend's
// default shader.
type ShaderID uint32

// ShaderLocation indexes Shader.Locs.
type ShaderLocation int

// Shader locations the flusher and backends rely on.
const (
	LocVertexPosition ShaderLocation = iota
	LocVertexTexCoord
	LocVertexNormal
	LocVertexColor
	LocMatrixMVP
	LocMatrixModel
	LocMatrixView
	LocMatrixProjection
	LocMapDiffuse

	NumShaderLocations
)

// Shader identifies a backend shader and the locations of its inputs.
// A location of -1 marks an input the shader does not use.
type Shader struct {
	ID   ShaderID
	Locs []int32
}

// Loc returns the location for l, or -1 when it is not present.
func (s Shader) Loc(l ShaderLocation) int32 {
	if l < 0 || int(l) >= len(s.Locs) {
		return -1
	}
	return s.Locs[l]
}

// IsDefault reports whether s selects the backend default shader.
func (s Shader) IsDefault() bool { return s.ID == 0 }

// DefaultShaderLocations returns locations 0..NumShaderLocations-1, the
// layout the built-in shaders of every bundled backend use.
func DefaultShaderLocations() []int32 {
	locs := make([]int32, NumShaderLocations)
	for i := range locs {
		locs[i] = int32(i) //nolint:gosec // small constant range
	}
	return locs
}

// Backend is the graphics backend the flusher drives. Calls arrive in this
// order for every flush:
//
//	UploadVertices
//	BeginDraw
//	  (SetViewport
//	   (BindTexture BindShader SetUniformMatrix* Draw)*)+
//	EndDraw
//
// Draw only ever receives Lines or Triangles; quads are already
// triangulated. first and count are vertex slots of the uploaded buffer.
//
// Backends report resource failures as errors; the engine does not retry.
type Backend interface {
	// Name returns the backend identifier.
	Name() string

	// DefaultTexture returns the texture bound for TextureID 0.
	DefaultTexture() TextureID

	// DefaultShader returns the shader bound for ShaderID 0.
	DefaultShader() Shader

	// UploadVertices copies slots [0, count) of vb into GPU buffer index
	// buffer (0 <= buffer < Config.BufferCount).
	UploadVertices(buffer int, vb *VertexBuffer, count int) error

	// BeginDraw starts a flush submission.
	BeginDraw() error

	// SetViewport sets the pixel rectangle subsequent draws render into.
	// An empty viewport means the whole target.
	SetViewport(vp Viewport)

	// BindTexture binds the texture for subsequent draws.
	BindTexture(id TextureID) error

	// BindShader binds the shader for subsequent draws.
	BindShader(s Shader) error

	// SetUniformMatrix uploads a matrix to a location of the bound shader.
	SetUniformMatrix(loc int32, m mgl32.Mat4) error

	// Draw issues one draw of count slots starting at first.
	Draw(mode PrimitiveMode, first, count int) error

	// EndDraw submits the recorded draws. It does not wait for the GPU.
	EndDraw() error
}

// BackendFactory creates a backend instance.
type BackendFactory func() (Backend, error)

// Names of the bundled backends.
const (
	BackendNative    = "native"
	BackendSoftware  = "software"
	BackendRecording = "recording"
)

var (
	registryMu sync.RWMutex
	backends   = make(map[string]BackendFactory)
	// Priority order for DefaultBackend (first that opens wins).
	backendPriority = []string{BackendNative, BackendSoftware, BackendRecording}
)

// RegisterBackend registers a backend factory under name. Backend packages
// call it from init(), following the database/sql driver pattern.
//
// RegisterBackend panics if factory is nil or name is already registered.
func RegisterBackend(name string, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("imgl: RegisterBackend factory is nil")
	}
	if _, dup := backends[name]; dup {
		panic("imgl: RegisterBackend called twice for " + name)
	}
	backends[name] = factory
}

// UnregisterBackend removes a backend from the registry. It is mainly
// useful in tests.
func UnregisterBackend(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// NewBackend creates a backend by registered name.
func NewBackend(name string) (Backend, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotRegistered, name)
	}
	b, err := factory()
	if err != nil {
		return nil, fmt.Errorf("create backend %q: %w", name, err)
	}
	return b, nil
}

// Backends returns the sorted names of registered backends.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether a backend is registered under name.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// DefaultBackend creates the best available backend.
// Priority order: native > software > recording, then any other registered
// backend in name order. A backend whose factory fails (for example no GPU)
// is skipped; the errors are returned if none succeeds.
func DefaultBackend() (Backend, error) {
	names := Backends()
	order := make([]string, 0, len(names))
	for _, name := range backendPriority {
		if IsRegistered(name) {
			order = append(order, name)
		}
	}
	for _, name := range names {
		if !slices.Contains(backendPriority, name) {
			order = append(order, name)
		}
	}
	if len(order) == 0 {
		return nil, ErrNoBackend
	}

	var errs []error
	for _, name := range order {
		b, err := NewBackend(name)
		if err == nil {
			Logger().Info("imgl: backend selected", "backend", name)
			return b, nil
		}
		Logger().Debug("imgl: backend unavailable", "backend", name, "err", err)
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrNoBackend, errors.Join(errs...))
}
