// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build nogpu

package native

// Open always fails in builds tagged nogpu.
func Open(width, height int) (*Backend, error) {
	return nil, ErrNoGPU
}
