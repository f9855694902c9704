// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "errors"

// Package errors for the native backend.
var (
	// ErrNoGPU is returned when no GPU adapter is available.
	ErrNoGPU = errors.New("native: no GPU adapter available")

	// ErrInvalidDimensions is returned when width or height is not positive.
	ErrInvalidDimensions = errors.New("native: invalid dimensions")

	// ErrUnknownTexture is returned when binding a texture that was never
	// loaded or has been unloaded.
	ErrUnknownTexture = errors.New("native: unknown texture")

	// ErrUnknownShader is returned when binding a shader that was never
	// loaded or has been unloaded.
	ErrUnknownShader = errors.New("native: unknown shader")

	// ErrInvalidBuffer is returned when uploading into a buffer index the
	// backend was not sized for.
	ErrInvalidBuffer = errors.New("native: invalid vertex buffer index")

	// ErrNotDrawing is returned by draw commands issued outside
	// BeginDraw/EndDraw.
	ErrNotDrawing = errors.New("native: draw command outside BeginDraw/EndDraw")

	// ErrNoUpload is returned by Draw before any vertices were uploaded.
	ErrNoUpload = errors.New("native: draw without vertex upload")

	// ErrNoReadback is returned by ReadPixels when rendering into a surface.
	ErrNoReadback = errors.New("native: readback requires the offscreen target")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("native: backend closed")
)
