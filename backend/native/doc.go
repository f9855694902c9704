// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native implements an imgl backend on top of gogpu/wgpu's hardware
// abstraction layer.
//
// Each batch buffer owns four vertex streams (position, texcoord, normal,
// color) that match the packed arrays of imgl.VertexBuffer, so an upload is
// four queue writes with no interleaving.
//
// During a flush the backend only records commands. EndDraw writes the
// collected MVP matrices into a uniform ring, encodes one render pass and
// submits it without waiting. ReadPixels and Close wait for the GPU.
//
// Open creates a standalone Vulkan device:
//
//	b, err := native.Open(1280, 720)
//	if err != nil {
//		return err
//	}
//	ctx, err := imgl.NewContext(b)
//
// To share a device with a windowing library, use New or NewFromProvider
// and SetSurfaceTarget.
//
// Custom shaders are WGSL modules that declare the same bind group as the
// default shader (uniform MVP at binding 0, texture at 1, sampler at 2) and
// vertex inputs at locations 0 to 3. LoadShader validates the source with
// naga before creating the module.
package native
