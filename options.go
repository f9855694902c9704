package imgl

// Option configures a Context during creation.
//
// Example:
//
//	// Default limits
//	ctx, err := imgl.NewContext(backend)
//
//	// Small batch with two rotating buffers
//	ctx, err := imgl.NewContext(backend,
//	    imgl.WithBufferElements(1024),
//	    imgl.WithBufferCount(2))
type Option func(*Config)

// WithConfig replaces the whole configuration. Options applied after it
// still override individual fields.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithBufferElements sets the vertex slot capacity of each batch buffer.
func WithBufferElements(n int) Option {
	return func(c *Config) {
		c.BufferElements = n
	}
}

// WithMaxDrawCalls sets how many draw calls a batch holds before flushing.
func WithMaxDrawCalls(n int) Option {
	return func(c *Config) {
		c.MaxDrawCalls = n
	}
}

// WithBufferCount sets the number of vertex buffers rotated across flushes.
func WithBufferCount(n int) Option {
	return func(c *Config) {
		c.BufferCount = n
	}
}

// WithMaxMatrixStack sets the maximum Push depth of each matrix stack.
func WithMaxMatrixStack(n int) Option {
	return func(c *Config) {
		c.MaxMatrixStack = n
	}
}

// WithVertexAlignment sets the slot multiple draw calls start at.
// Use 1 to disable padding entirely.
func WithVertexAlignment(n int) Option {
	return func(c *Config) {
		c.VertexAlignment = n
	}
}

// WithDebugAssertions makes protocol violations (End without Begin,
// incomplete primitives, nested Begin) panic instead of logging a warning.
func WithDebugAssertions(enabled bool) Option {
	return func(c *Config) {
		c.DebugAssertions = enabled
	}
}

// WithViewport sets the initial viewport.
func WithViewport(x, y, width, height int) Option {
	return func(c *Config) {
		c.Viewport = Viewport{X: x, Y: y, Width: width, Height: height}
	}
}
