package imgl

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default engine limits.
const (
	// DefaultBufferElements is the vertex capacity of one batch buffer.
	DefaultBufferElements = 8192

	// DefaultMaxDrawCalls is the number of draw calls a batch can hold
	// before it must be flushed.
	DefaultMaxDrawCalls = 256

	// DefaultBufferCount is the number of vertex buffers rotated per flush.
	DefaultBufferCount = 1

	// DefaultMaxMatrixStack is the maximum push depth of each matrix stack.
	DefaultMaxMatrixStack = 32

	// DefaultVertexAlignment is the slot multiple every draw call starts at
	// when it follows a non-empty draw call. Six is the least common
	// multiple of the line, triangle and quad slot sizes.
	DefaultVertexAlignment = 6
)

// Config holds the batch engine limits. The zero value is not valid; start
// from DefaultConfig or LoadConfig.
type Config struct {
	// BufferElements is the vertex slot capacity of each batch buffer.
	BufferElements int `yaml:"buffer_elements"`

	// MaxDrawCalls bounds the draw call list of a batch.
	MaxDrawCalls int `yaml:"max_draw_calls"`

	// BufferCount is the number of buffers used for multi-buffering.
	BufferCount int `yaml:"buffer_count"`

	// MaxMatrixStack bounds Push depth per matrix mode.
	MaxMatrixStack int `yaml:"max_matrix_stack"`

	// VertexAlignment pads draw call start offsets. 1 disables padding.
	VertexAlignment int `yaml:"vertex_alignment"`

	// DebugAssertions turns protocol violations into panics.
	DebugAssertions bool `yaml:"debug_assertions"`

	// Viewport is the initial viewport in pixels. Zero width or height
	// leaves the viewport unset so backends use their full target.
	Viewport Viewport `yaml:"viewport"`
}

// Viewport is a rectangle in framebuffer pixels.
type Viewport struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Empty reports whether the viewport has no area.
func (v Viewport) Empty() bool {
	return v.Width <= 0 || v.Height <= 0
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		BufferElements:  DefaultBufferElements,
		MaxDrawCalls:    DefaultMaxDrawCalls,
		BufferCount:     DefaultBufferCount,
		MaxMatrixStack:  DefaultMaxMatrixStack,
		VertexAlignment: DefaultVertexAlignment,
		DebugAssertions: debugBuild,
	}
}

// Validate checks that every limit is usable.
func (c Config) Validate() error {
	switch {
	case c.BufferElements < Quads.SlotSize():
		return fmt.Errorf("%w: buffer_elements %d is smaller than one quad (%d slots)",
			ErrInvalidConfig, c.BufferElements, Quads.SlotSize())
	case c.MaxDrawCalls < 1:
		return fmt.Errorf("%w: max_draw_calls must be positive, got %d", ErrInvalidConfig, c.MaxDrawCalls)
	case c.BufferCount < 1:
		return fmt.Errorf("%w: buffer_count must be positive, got %d", ErrInvalidConfig, c.BufferCount)
	case c.MaxMatrixStack < 1:
		return fmt.Errorf("%w: max_matrix_stack must be positive, got %d", ErrInvalidConfig, c.MaxMatrixStack)
	case c.VertexAlignment < 1:
		return fmt.Errorf("%w: vertex_alignment must be positive, got %d", ErrInvalidConfig, c.VertexAlignment)
	case c.VertexAlignment > c.BufferElements:
		return fmt.Errorf("%w: vertex_alignment %d exceeds buffer_elements %d",
			ErrInvalidConfig, c.VertexAlignment, c.BufferElements)
	case c.Viewport.Width < 0 || c.Viewport.Height < 0:
		return fmt.Errorf("%w: negative viewport %dx%d", ErrInvalidConfig, c.Viewport.Width, c.Viewport.Height)
	}
	return nil
}

// ParseConfig decodes a YAML document on top of DefaultConfig. Keys that are
// absent keep their default values.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
