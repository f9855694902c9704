// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/imgl"
)

//go:embed shaders/imgl.wgsl
var defaultShaderSource string

// DefaultShaderSource returns the WGSL source of the default shader, a
// starting point for custom shaders.
func DefaultShaderSource() string { return defaultShaderSource }

// pipelineKey identifies a render pipeline. The target format is shared by
// every pipeline of a backend.
type pipelineKey struct {
	shader   imgl.ShaderID
	topology gputypes.PrimitiveTopology
}

// LoadShader compiles a WGSL shader with vs_main and fs_main entry points.
// The source is validated with naga first so errors carry source positions.
// The returned shader uses the default locations.
func (b *Backend) LoadShader(wgsl string) (imgl.Shader, error) {
	if b.closed {
		return imgl.Shader{}, ErrClosed
	}
	if _, err := naga.Compile(wgsl); err != nil {
		return imgl.Shader{}, fmt.Errorf("native: shader validation: %w", err)
	}
	id, err := b.loadShaderModule(fmt.Sprintf("imgl_shader_%d", b.nextShader), wgsl)
	if err != nil {
		return imgl.Shader{}, err
	}
	b.logger.Debug("native: shader loaded", "id", id)
	return imgl.Shader{ID: id, Locs: imgl.DefaultShaderLocations()}, nil
}

// UnloadShader releases a shader and its pipelines. The default shader
// cannot be unloaded.
func (b *Backend) UnloadShader(id imgl.ShaderID) {
	if id == DefaultShader {
		return
	}
	m, ok := b.shaders[id]
	if !ok {
		return
	}
	b.waitIdle()
	for key, p := range b.pipelines {
		if key.shader == id {
			b.device.DestroyRenderPipeline(p)
			delete(b.pipelines, key)
		}
	}
	b.device.DestroyShaderModule(m)
	delete(b.shaders, id)
}

func (b *Backend) loadShaderModule(label, wgsl string) (imgl.ShaderID, error) {
	module, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{WGSL: wgsl},
	})
	if err != nil {
		return 0, fmt.Errorf("native: compile %s: %w", label, err)
	}
	id := b.nextShader
	b.nextShader++
	b.shaders[id] = module
	return id, nil
}

// pipeline returns the render pipeline for shader and topology, creating it
// on first use.
func (b *Backend) pipeline(shader imgl.ShaderID, topology gputypes.PrimitiveTopology) (hal.RenderPipeline, error) {
	key := pipelineKey{shader: shader, topology: topology}
	if p, ok := b.pipelines[key]; ok {
		return p, nil
	}
	module, ok := b.shaders[shader]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownShader, shader)
	}

	premulBlend := gputypes.BlendStatePremultiplied()
	p, err := b.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("imgl_pipeline_%d_%d", shader, topology),
		Layout: b.pipeLayout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    vertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    b.format,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: topology,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create pipeline: %w", err)
	}
	b.pipelines[key] = p
	return p, nil
}

func (b *Backend) destroyPipelines() {
	for key, p := range b.pipelines {
		b.device.DestroyRenderPipeline(p)
		delete(b.pipelines, key)
	}
}
