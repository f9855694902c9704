// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/imgl"
)

// Default resources.
const (
	DefaultTexture imgl.TextureID = 1
	DefaultShader  imgl.ShaderID  = 1
)

// TargetFormat is the format of the offscreen render target.
const TargetFormat = gputypes.TextureFormatRGBA8Unorm

// Backend renders imgl batches with a wgpu HAL device.
//
// Backend is not safe for concurrent use; it is driven by one imgl.Context.
type Backend struct {
	device hal.Device
	queue  hal.Queue

	// Set when the backend opened the device itself.
	instance   hal.Instance
	ownsDevice bool

	width, height uint32
	format        gputypes.TextureFormat
	target        hal.Texture // nil when rendering into a surface
	targetView    hal.TextureView

	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	sampler    hal.Sampler

	shaders    map[imgl.ShaderID]hal.ShaderModule
	nextShader imgl.ShaderID
	pipelines  map[pipelineKey]hal.RenderPipeline

	textures    map[imgl.TextureID]*texture
	nextTexture imgl.TextureID

	// One set per batch buffer index.
	sets []*bufferSet

	frame    frameState
	inFlight []submission

	logger *slog.Logger
	closed bool
}

// frameState is the command list recorded between BeginDraw and EndDraw.
type frameState struct {
	drawing  bool
	uploaded bool
	buffer   int
	viewport imgl.Viewport
	texture  imgl.TextureID
	shader   imgl.ShaderID
	mvpLoc   int32
	mvp      mgl32.Mat4
	slot     uint32
	slotSet  bool
	draws    []drawOp
}

type drawOp struct {
	viewport imgl.Viewport
	texture  imgl.TextureID
	shader   imgl.ShaderID
	topology gputypes.PrimitiveTopology
	uniform  uint32
	first    uint32
	count    uint32
}

type submission struct {
	index   uint64
	encoder hal.CommandEncoder
	cmd     hal.CommandBuffer
}

var _ imgl.Backend = (*Backend)(nil)

// New creates a backend on an existing device rendering into a width×height
// offscreen target. The caller keeps ownership of device and queue.
func New(device hal.Device, queue hal.Queue, width, height int) (*Backend, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("native: nil device or queue")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	b := &Backend{
		device:      device,
		queue:       queue,
		width:       uint32(width),  //nolint:gosec // checked positive
		height:      uint32(height), //nolint:gosec // checked positive
		format:      TargetFormat,
		shaders:     make(map[imgl.ShaderID]hal.ShaderModule),
		nextShader:  DefaultShader,
		pipelines:   make(map[pipelineKey]hal.RenderPipeline),
		textures:    make(map[imgl.TextureID]*texture),
		nextTexture: DefaultTexture,
		logger:      imgl.Logger(),
	}
	if err := b.init(); err != nil {
		b.destroy()
		return nil, err
	}
	return b, nil
}

// NewFromProvider creates a backend on a device shared by provider. The
// provider must expose HalDevice() and HalQueue() returning hal.Device and
// hal.Queue, as gogpu's device provider does.
func NewFromProvider(provider gpucontext.DeviceProvider, width, height int) (*Backend, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("native: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("native: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("native: provider HalQueue is not hal.Queue")
	}
	return New(device, queue, width, height)
}

func (b *Backend) init() error {
	if err := b.createLayouts(); err != nil {
		return err
	}
	if _, err := b.loadShaderModule("imgl_default", defaultShaderSource); err != nil {
		return fmt.Errorf("native: default shader: %w", err)
	}
	if err := b.createTarget(); err != nil {
		return err
	}
	white := []byte{255, 255, 255, 255}
	if _, err := b.createTexture("imgl_default_texture", 1, 1, white); err != nil {
		return fmt.Errorf("native: default texture: %w", err)
	}
	return nil
}

func (b *Backend) createLayouts() error {
	layout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "imgl_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer: &gputypes.BufferBindingLayout{
					Type:             gputypes.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   mvpSize,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("native: create bind group layout: %w", err)
	}
	b.bindLayout = layout

	pipeLayout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "imgl_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{b.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("native: create pipeline layout: %w", err)
	}
	b.pipeLayout = pipeLayout

	sampler, err := b.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "imgl_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("native: create sampler: %w", err)
	}
	b.sampler = sampler
	return nil
}

func (b *Backend) createTarget() error {
	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "imgl_target",
		Size:          hal.Extent3D{Width: b.width, Height: b.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        TargetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("native: create target: %w", err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "imgl_target_view",
		Format:        TargetFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return fmt.Errorf("native: create target view: %w", err)
	}
	b.target, b.targetView = tex, view
	return nil
}

// SetSurfaceTarget renders subsequent flushes into view, typically the
// current swapchain texture. The offscreen target is released on the first
// call. Pipelines are rebuilt when format changes.
func (b *Backend) SetSurfaceTarget(view hal.TextureView, width, height uint32, format gputypes.TextureFormat) {
	if b.target != nil {
		b.waitIdle()
		b.device.DestroyTextureView(b.targetView)
		b.device.DestroyTexture(b.target)
		b.target = nil
	}
	if format != b.format {
		b.destroyPipelines()
		b.format = format
	}
	b.targetView = view
	b.width, b.height = width, height
}

// Size returns the render target size in pixels.
func (b *Backend) Size() (width, height int) { return int(b.width), int(b.height) }

// SetLogger implements the imgl logger propagation hook.
func (b *Backend) SetLogger(l *slog.Logger) { b.logger = l }

// Name implements imgl.Backend.
func (b *Backend) Name() string { return imgl.BackendNative }

// DefaultTexture implements imgl.Backend.
func (b *Backend) DefaultTexture() imgl.TextureID { return DefaultTexture }

// DefaultShader implements imgl.Backend.
func (b *Backend) DefaultShader() imgl.Shader {
	return imgl.Shader{ID: DefaultShader, Locs: imgl.DefaultShaderLocations()}
}

// UploadVertices implements imgl.Backend.
func (b *Backend) UploadVertices(buffer int, vb *imgl.VertexBuffer, count int) error {
	if b.closed {
		return ErrClosed
	}
	if buffer < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBuffer, buffer)
	}
	for len(b.sets) <= buffer {
		b.sets = append(b.sets, newBufferSet(buffer))
	}
	set := b.sets[buffer]
	if err := set.ensureCapacity(b.device, vb.Capacity()); err != nil {
		return err
	}
	b.frame.buffer = buffer
	b.frame.uploaded = true
	return set.write(b.queue, vb, count)
}

// BeginDraw implements imgl.Backend.
func (b *Backend) BeginDraw() error {
	if b.closed {
		return ErrClosed
	}
	b.frame.drawing = true
	b.frame.draws = b.frame.draws[:0]
	b.frame.slotSet = false
	if b.frame.uploaded {
		b.sets[b.frame.buffer].uniforms.reset()
	}
	return nil
}

// SetViewport implements imgl.Backend.
func (b *Backend) SetViewport(vp imgl.Viewport) { b.frame.viewport = vp }

// BindTexture implements imgl.Backend.
func (b *Backend) BindTexture(id imgl.TextureID) error {
	if _, ok := b.textures[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTexture, id)
	}
	b.frame.texture = id
	return nil
}

// BindShader implements imgl.Backend.
func (b *Backend) BindShader(s imgl.Shader) error {
	if _, ok := b.shaders[s.ID]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownShader, s.ID)
	}
	b.frame.shader = s.ID
	b.frame.mvpLoc = s.Loc(imgl.LocMatrixMVP)
	return nil
}

// SetUniformMatrix implements imgl.Backend. Only the MVP location is
// consumed; the default shader has no other matrix inputs.
func (b *Backend) SetUniformMatrix(loc int32, m mgl32.Mat4) error {
	if loc >= 0 && loc == b.frame.mvpLoc {
		b.frame.mvp = m
		b.frame.slotSet = false
	}
	return nil
}

// Draw implements imgl.Backend.
func (b *Backend) Draw(mode imgl.PrimitiveMode, first, count int) error {
	if !b.frame.drawing {
		return ErrNotDrawing
	}
	if !b.frame.uploaded {
		return ErrNoUpload
	}
	topology, err := topologyFor(mode)
	if err != nil {
		return err
	}
	if !b.frame.slotSet {
		b.frame.slot = b.sets[b.frame.buffer].uniforms.push(b.frame.mvp)
		b.frame.slotSet = true
	}
	b.frame.draws = append(b.frame.draws, drawOp{
		viewport: b.frame.viewport,
		texture:  b.frame.texture,
		shader:   b.frame.shader,
		topology: topology,
		uniform:  b.frame.slot,
		first:    uint32(first), //nolint:gosec // batch slots fit uint32
		count:    uint32(count), //nolint:gosec // batch slots fit uint32
	})
	return nil
}

// EndDraw implements imgl.Backend. It encodes the recorded draws into one
// render pass and submits it without waiting for completion.
func (b *Backend) EndDraw() error {
	if !b.frame.drawing {
		return ErrNotDrawing
	}
	b.frame.drawing = false
	if len(b.frame.draws) == 0 {
		return nil
	}
	set := b.sets[b.frame.buffer]
	if err := set.uniforms.upload(b.device, b.queue); err != nil {
		return err
	}
	if set.uniforms.grown {
		set.destroyGroups(b.device)
	}
	return b.encodeAndSubmit(set)
}

func (b *Backend) encodeAndSubmit(set *bufferSet) error {
	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "imgl_encoder"})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("imgl_flush"); err != nil {
		encoder.Destroy()
		return fmt.Errorf("native: begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "imgl_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    b.targetView,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	if err := b.recordDraws(rp, set); err != nil {
		rp.End()
		encoder.DiscardEncoding()
		encoder.Destroy()
		return err
	}
	rp.End()

	return b.submit(encoder)
}

func (b *Backend) recordDraws(rp hal.RenderPassEncoder, set *bufferSet) error {
	set.bindVertexBuffers(rp)

	var (
		curPipeline hal.RenderPipeline
		curViewport imgl.Viewport
		viewportSet bool
	)
	for i := range b.frame.draws {
		d := &b.frame.draws[i]
		if !viewportSet || d.viewport != curViewport {
			x, y, w, h := b.viewportRect(d.viewport)
			rp.SetViewport(x, y, w, h, 0, 1)
			curViewport, viewportSet = d.viewport, true
		}
		pipeline, err := b.pipeline(d.shader, d.topology)
		if err != nil {
			return err
		}
		if pipeline != curPipeline {
			rp.SetPipeline(pipeline)
			curPipeline = pipeline
		}
		group, err := b.bindGroup(set, d.texture)
		if err != nil {
			return err
		}
		rp.SetBindGroup(0, group, []uint32{d.uniform})
		rp.Draw(d.count, 1, d.first, 0)
	}
	return nil
}

// viewportRect maps an imgl viewport to pixels; empty means the whole target.
func (b *Backend) viewportRect(vp imgl.Viewport) (x, y, w, h float32) {
	if vp.Empty() {
		return 0, 0, float32(b.width), float32(b.height)
	}
	return float32(vp.X), float32(vp.Y), float32(vp.Width), float32(vp.Height)
}

func (b *Backend) submit(encoder hal.CommandEncoder) error {
	cmd, err := encoder.EndEncoding()
	if err != nil {
		encoder.Destroy()
		return fmt.Errorf("native: end encoding: %w", err)
	}
	index, err := b.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		b.device.FreeCommandBuffer(cmd)
		encoder.Destroy()
		return fmt.Errorf("native: submit: %w", err)
	}
	b.inFlight = append(b.inFlight, submission{index: index, encoder: encoder, cmd: cmd})
	b.reclaim()
	return nil
}

// reclaim frees command buffers of completed submissions.
func (b *Backend) reclaim() {
	done := b.queue.PollCompleted()
	kept := b.inFlight[:0]
	for _, s := range b.inFlight {
		if s.index <= done {
			b.device.FreeCommandBuffer(s.cmd)
			s.encoder.Destroy()
			continue
		}
		kept = append(kept, s)
	}
	b.inFlight = kept
}

// Pending returns the number of submissions the GPU has not completed.
func (b *Backend) Pending() int {
	b.reclaim()
	return len(b.inFlight)
}

func (b *Backend) waitIdle() {
	if err := b.device.WaitIdle(); err != nil {
		b.logger.Warn("native: wait idle failed", "error", err)
	}
	b.reclaim()
}

// Close waits for submitted work and releases every GPU resource. Devices
// opened by Open are destroyed as well.
func (b *Backend) Close() error {
	if b.closed {
		return nil
	}
	var errs []error
	if err := b.device.WaitIdle(); err != nil {
		errs = append(errs, fmt.Errorf("native: wait idle: %w", err))
	}
	for _, s := range b.inFlight {
		b.device.FreeCommandBuffer(s.cmd)
		s.encoder.Destroy()
	}
	b.inFlight = nil
	b.destroy()
	b.closed = true
	b.logger.Debug("native: closed")
	return errors.Join(errs...)
}

func (b *Backend) destroy() {
	b.destroyPipelines()
	for id := range b.textures {
		b.destroyTexture(id)
	}
	for id, m := range b.shaders {
		b.device.DestroyShaderModule(m)
		delete(b.shaders, id)
	}
	for _, set := range b.sets {
		set.destroy(b.device)
	}
	b.sets = nil
	if b.target != nil {
		b.device.DestroyTextureView(b.targetView)
		b.device.DestroyTexture(b.target)
		b.target, b.targetView = nil, nil
	}
	if b.sampler != nil {
		b.device.DestroySampler(b.sampler)
		b.sampler = nil
	}
	if b.pipeLayout != nil {
		b.device.DestroyPipelineLayout(b.pipeLayout)
		b.pipeLayout = nil
	}
	if b.bindLayout != nil {
		b.device.DestroyBindGroupLayout(b.bindLayout)
		b.bindLayout = nil
	}
	if b.ownsDevice {
		b.device.Destroy()
		if b.instance != nil {
			b.instance.Destroy()
		}
	}
}

func topologyFor(mode imgl.PrimitiveMode) (gputypes.PrimitiveTopology, error) {
	switch mode {
	case imgl.Lines:
		return gputypes.PrimitiveTopologyLineList, nil
	case imgl.Triangles:
		return gputypes.PrimitiveTopologyTriangleList, nil
	default:
		return 0, fmt.Errorf("native: unsupported topology %s", mode)
	}
}
