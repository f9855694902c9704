// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/imgl"
)

type texture struct {
	tex           hal.Texture
	view          hal.TextureView
	width, height uint32
}

// LoadTexture uploads img as an RGBA8 texture sampled with nearest
// filtering and returns its ID.
func (b *Backend) LoadTexture(img image.Image) (imgl.TextureID, error) {
	if b.closed {
		return 0, ErrClosed
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return 0, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, bounds.Dx(), bounds.Dy())
	}
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Stride != 4*bounds.Dx() {
		nrgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		xdraw.Copy(nrgba, image.Point{}, img, bounds, xdraw.Src, nil)
	}
	id, err := b.createTexture(fmt.Sprintf("imgl_texture_%d", b.nextTexture),
		uint32(bounds.Dx()), uint32(bounds.Dy()), nrgba.Pix) //nolint:gosec // bounds checked non-empty
	if err != nil {
		return 0, err
	}
	b.logger.Debug("native: texture loaded", "id", id, "width", bounds.Dx(), "height", bounds.Dy())
	return id, nil
}

// UnloadTexture releases a texture and the bind groups that reference it.
// The default texture cannot be unloaded.
func (b *Backend) UnloadTexture(id imgl.TextureID) {
	if id == DefaultTexture {
		return
	}
	if _, ok := b.textures[id]; !ok {
		return
	}
	b.waitIdle()
	b.destroyTexture(id)
}

func (b *Backend) createTexture(label string, width, height uint32, pixels []byte) (imgl.TextureID, error) {
	size := hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}
	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return 0, fmt.Errorf("native: create texture: %w", err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return 0, fmt.Errorf("native: create texture view: %w", err)
	}
	err = b.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, Aspect: gputypes.TextureAspectAll},
		pixels,
		&hal.ImageDataLayout{BytesPerRow: width * 4, RowsPerImage: height},
		&size,
	)
	if err != nil {
		b.device.DestroyTextureView(view)
		b.device.DestroyTexture(tex)
		return 0, fmt.Errorf("native: write texture: %w", err)
	}

	id := b.nextTexture
	b.nextTexture++
	b.textures[id] = &texture{tex: tex, view: view, width: width, height: height}
	return id, nil
}

func (b *Backend) destroyTexture(id imgl.TextureID) {
	t, ok := b.textures[id]
	if !ok {
		return
	}
	for _, set := range b.sets {
		if g, ok := set.groups[id]; ok {
			b.device.DestroyBindGroup(g)
			delete(set.groups, id)
		}
	}
	b.device.DestroyTextureView(t.view)
	b.device.DestroyTexture(t.tex)
	delete(b.textures, id)
}

// bindGroup returns the bind group pairing set's uniform ring with texture
// id, creating it on first use.
func (b *Backend) bindGroup(set *bufferSet, id imgl.TextureID) (hal.BindGroup, error) {
	if g, ok := set.groups[id]; ok {
		return g, nil
	}
	t, ok := b.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTexture, id)
	}
	g, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  fmt.Sprintf("imgl_bind_%d_%d", set.index, id),
		Layout: b.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: set.uniforms.buf.NativeHandle(),
				Size:   mvpSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()}},
			{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: b.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create bind group: %w", err)
	}
	set.groups[id] = g
	return g, nil
}
