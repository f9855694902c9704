// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"image"
	"image/color"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the BytesPerRow alignment of texture-to-buffer
// copies.
const copyPitchAlignment = 256

// Clear fills the render target with c. It submits its own render pass and
// must not be called between BeginDraw and EndDraw.
func (b *Backend) Clear(c color.Color) error {
	if b.closed {
		return ErrClosed
	}
	if b.frame.drawing {
		return fmt.Errorf("native: clear during draw")
	}
	r, g, bl, a := c.RGBA()
	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "imgl_clear"})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("imgl_clear"); err != nil {
		encoder.Destroy()
		return fmt.Errorf("native: begin encoding: %w", err)
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "imgl_clear_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    b.targetView,
			LoadOp:  gputypes.LoadOpClear,
			StoreOp: gputypes.StoreOpStore,
			ClearValue: gputypes.Color{
				R: float64(r) / 0xffff,
				G: float64(g) / 0xffff,
				B: float64(bl) / 0xffff,
				A: float64(a) / 0xffff,
			},
		}},
	})
	rp.End()
	return b.submit(encoder)
}

// ReadPixels waits for submitted work and copies the offscreen target into
// a new image. It fails with ErrNoReadback after SetSurfaceTarget.
func (b *Backend) ReadPixels() (*image.RGBA, error) {
	if b.closed {
		return nil, ErrClosed
	}
	if b.target == nil {
		return nil, ErrNoReadback
	}
	w, h := b.width, b.height
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "imgl_readback",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create staging buffer: %w", err)
	}
	defer b.device.DestroyBuffer(staging)

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "imgl_readback"})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("imgl_readback"); err != nil {
		encoder.Destroy()
		return nil, fmt.Errorf("native: begin encoding: %w", err)
	}

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: b.target,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(b.target, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: b.target, Aspect: gputypes.TextureAspectAll},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: b.target,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	if err := b.submit(encoder); err != nil {
		return nil, err
	}
	if err := b.device.WaitIdle(); err != nil {
		return nil, fmt.Errorf("native: wait idle: %w", err)
	}
	b.reclaim()

	mapping, err := b.device.MapBuffer(staging, 0, stagingSize)
	if err != nil {
		return nil, fmt.Errorf("native: map staging buffer: %w", err)
	}
	data := unsafe.Slice((*byte)(mapping.Ptr), stagingSize)

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for row := 0; row < int(h); row++ {
		src := row * int(alignedBytesPerRow)
		copy(img.Pix[row*img.Stride:row*img.Stride+int(bytesPerRow)], data[src:src+int(bytesPerRow)])
	}
	if err := b.device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("native: unmap staging buffer: %w", err)
	}
	return img, nil
}
