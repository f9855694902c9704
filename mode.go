package imgl

import "fmt"

// PrimitiveMode is the topology of a group of vertices recorded between
// Begin and End.
type PrimitiveMode uint8

const (
	// Lines records independent line segments, two vertices each.
	Lines PrimitiveMode = iota + 1
	// Triangles records independent triangles, three vertices each.
	Triangles
	// Quads records independent quads, four vertices each. Quads are stored
	// as two triangles, six vertex slots per quad.
	Quads
)

// String returns the name of the primitive mode.
func (m PrimitiveMode) String() string {
	switch m {
	case Lines:
		return "Lines"
	case Triangles:
		return "Triangles"
	case Quads:
		return "Quads"
	default:
		return fmt.Sprintf("PrimitiveMode(%d)", int(m))
	}
}

// Valid reports whether m is one of the supported modes.
func (m PrimitiveMode) Valid() bool {
	return m >= Lines && m <= Quads
}

// LogicalSize returns the number of vertices a caller submits per primitive.
func (m PrimitiveMode) LogicalSize() int {
	switch m {
	case Lines:
		return 2
	case Triangles:
		return 3
	case Quads:
		return 4
	default:
		return 0
	}
}

// SlotSize returns the number of vertex buffer slots one primitive occupies.
// It differs from LogicalSize only for quads, which are triangulated.
func (m PrimitiveMode) SlotSize() int {
	if m == Quads {
		return 6
	}
	return m.LogicalSize()
}

// Topology returns the mode the backend draws with. Quads are recorded as
// triangle lists, so backends only ever see Lines or Triangles.
func (m PrimitiveMode) Topology() PrimitiveMode {
	if m == Quads {
		return Triangles
	}
	return m
}

// MatrixMode selects which logical matrix stack the matrix operations act on.
type MatrixMode uint8

const (
	// Model is the model transform. It is applied to vertex positions on the
	// CPU as they are recorded.
	Model MatrixMode = iota
	// View is the camera transform, uploaded to the shader at flush time.
	View
	// Projection is the projection transform, uploaded at flush time.
	Projection

	numMatrixModes
)

// String returns the name of the matrix mode.
func (m MatrixMode) String() string {
	switch m {
	case Model:
		return "Model"
	case View:
		return "View"
	case Projection:
		return "Projection"
	default:
		return fmt.Sprintf("MatrixMode(%d)", int(m))
	}
}
