// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/imgl"
)

// Vertex stream layout. Each attribute lives in its own buffer so the
// packed arrays of imgl.VertexBuffer upload without interleaving:
//
//	slot 0: position  (vec3<f32>) = 12 bytes (location 0)
//	slot 1: tex_coord (vec2<f32>) =  8 bytes (location 1)
//	slot 2: normal    (vec3<f32>) = 12 bytes (location 2)
//	slot 3: color     (unorm8x4)  =  4 bytes (location 3)
const (
	positionStride = 12
	texCoordStride = 8
	normalStride   = 12
	colorStride    = 4
)

// mvpSize is the byte size of one uniform slot (mat4x4<f32>).
const mvpSize = 64

// uniformAlignment is the dynamic offset alignment required by WebGPU
// (minUniformBufferOffsetAlignment).
const uniformAlignment = 256

// vertexLayout returns the vertex buffer layouts for the imgl shaders.
func vertexLayout() []gputypes.VertexBufferLayout {
	stream := func(stride uint64, format gputypes.VertexFormat, loc uint32) gputypes.VertexBufferLayout {
		return gputypes.VertexBufferLayout{
			ArrayStride: stride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes:  []gputypes.VertexAttribute{{Format: format, Offset: 0, ShaderLocation: loc}},
		}
	}
	return []gputypes.VertexBufferLayout{
		stream(positionStride, gputypes.VertexFormatFloat32x3, 0),
		stream(texCoordStride, gputypes.VertexFormatFloat32x2, 1),
		stream(normalStride, gputypes.VertexFormatFloat32x3, 2),
		stream(colorStride, gputypes.VertexFormatUnorm8x4, 3),
	}
}

// bufferSet holds the GPU resources of one batch buffer index: the vertex
// streams, the uniform ring and the bind groups that reference it.
type bufferSet struct {
	index    int
	capacity int

	positions hal.Buffer
	texCoords hal.Buffer
	normals   hal.Buffer
	colors    hal.Buffer

	scratch  []byte
	uniforms uniformRing
	groups   map[imgl.TextureID]hal.BindGroup
}

func newBufferSet(index int) *bufferSet {
	return &bufferSet{
		index:  index,
		groups: make(map[imgl.TextureID]hal.BindGroup),
	}
}

// ensureCapacity (re)creates the vertex streams for capacity slots.
func (s *bufferSet) ensureCapacity(device hal.Device, capacity int) error {
	if s.positions != nil && s.capacity >= capacity {
		return nil
	}
	if s.positions != nil {
		// Earlier submissions may still read the old streams.
		if err := device.WaitIdle(); err != nil {
			return fmt.Errorf("native: wait idle: %w", err)
		}
	}
	s.destroyStreams(device)

	n := uint64(capacity) //nolint:gosec // capacity is positive
	usage := gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
	create := func(name string, stride uint64) (hal.Buffer, error) {
		buf, err := device.CreateBuffer(&hal.BufferDescriptor{
			Label: fmt.Sprintf("imgl_%s_%d", name, s.index),
			Size:  n * stride,
			Usage: usage,
		})
		if err != nil {
			return nil, fmt.Errorf("native: create %s buffer: %w", name, err)
		}
		return buf, nil
	}

	var err error
	if s.positions, err = create("positions", positionStride); err != nil {
		return err
	}
	if s.texCoords, err = create("texcoords", texCoordStride); err != nil {
		return err
	}
	if s.normals, err = create("normals", normalStride); err != nil {
		return err
	}
	if s.colors, err = create("colors", colorStride); err != nil {
		return err
	}
	s.capacity = capacity
	return nil
}

// write uploads slots [0, count) of vb.
func (s *bufferSet) write(queue hal.Queue, vb *imgl.VertexBuffer, count int) error {
	if count <= 0 {
		return nil
	}
	if count > s.capacity {
		return fmt.Errorf("%w: upload of %d slots into %d", ErrInvalidBuffer, count, s.capacity)
	}
	s.scratch = appendFloat32s(s.scratch[:0], vb.Positions[:count*3])
	if err := queue.WriteBuffer(s.positions, 0, s.scratch); err != nil {
		return fmt.Errorf("native: write positions: %w", err)
	}
	s.scratch = appendFloat32s(s.scratch[:0], vb.TexCoords[:count*2])
	if err := queue.WriteBuffer(s.texCoords, 0, s.scratch); err != nil {
		return fmt.Errorf("native: write texcoords: %w", err)
	}
	s.scratch = appendFloat32s(s.scratch[:0], vb.Normals[:count*3])
	if err := queue.WriteBuffer(s.normals, 0, s.scratch); err != nil {
		return fmt.Errorf("native: write normals: %w", err)
	}
	if err := queue.WriteBuffer(s.colors, 0, vb.Colors[:count*4]); err != nil {
		return fmt.Errorf("native: write colors: %w", err)
	}
	return nil
}

func (s *bufferSet) bindVertexBuffers(rp hal.RenderPassEncoder) {
	rp.SetVertexBuffer(0, s.positions, 0)
	rp.SetVertexBuffer(1, s.texCoords, 0)
	rp.SetVertexBuffer(2, s.normals, 0)
	rp.SetVertexBuffer(3, s.colors, 0)
}

func (s *bufferSet) destroyStreams(device hal.Device) {
	for _, buf := range []*hal.Buffer{&s.positions, &s.texCoords, &s.normals, &s.colors} {
		if *buf != nil {
			device.DestroyBuffer(*buf)
			*buf = nil
		}
	}
	s.capacity = 0
}

func (s *bufferSet) destroyGroups(device hal.Device) {
	for id, g := range s.groups {
		device.DestroyBindGroup(g)
		delete(s.groups, id)
	}
}

func (s *bufferSet) destroy(device hal.Device) {
	s.destroyGroups(device)
	s.destroyStreams(device)
	s.uniforms.destroy(device)
}

// uniformRing collects one aligned MVP slot per matrix change during a
// flush and uploads them in a single write. Draws select their slot with a
// dynamic offset.
type uniformRing struct {
	data []byte
	buf  hal.Buffer
	size uint64

	// grown reports that the last upload replaced buf.
	grown bool
}

func (r *uniformRing) reset() { r.data = r.data[:0] }

// push appends m and returns its byte offset.
func (r *uniformRing) push(m mgl32.Mat4) uint32 {
	offset := len(r.data)
	r.data = appendFloat32s(r.data, m[:])
	r.data = append(r.data, make([]byte, uniformAlignment-mvpSize)...)
	return uint32(offset) //nolint:gosec // bounded by batch size
}

// upload writes the collected slots, growing the buffer as needed.
func (r *uniformRing) upload(device hal.Device, queue hal.Queue) error {
	r.grown = false
	need := uint64(max(len(r.data), uniformAlignment))
	if r.buf == nil || need > r.size {
		size := uint64(uniformAlignment)
		for size < need {
			size *= 2
		}
		buf, err := device.CreateBuffer(&hal.BufferDescriptor{
			Label: "imgl_uniforms",
			Size:  size,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("native: create uniform buffer: %w", err)
		}
		if r.buf != nil {
			if err := device.WaitIdle(); err != nil {
				device.DestroyBuffer(buf)
				return fmt.Errorf("native: wait idle: %w", err)
			}
			device.DestroyBuffer(r.buf)
		}
		r.buf, r.size, r.grown = buf, size, true
	}
	if len(r.data) == 0 {
		return nil
	}
	if err := queue.WriteBuffer(r.buf, 0, r.data); err != nil {
		return fmt.Errorf("native: write uniforms: %w", err)
	}
	return nil
}

func (r *uniformRing) destroy(device hal.Device) {
	if r.buf != nil {
		device.DestroyBuffer(r.buf)
		r.buf = nil
	}
	r.size = 0
}

func appendFloat32s(dst []byte, src []float32) []byte {
	for _, f := range src {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}
