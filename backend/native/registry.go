// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "github.com/gogpu/imgl"

// Size of the offscreen target of registry-created backends.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

func init() {
	imgl.RegisterBackend(imgl.BackendNative, func() (imgl.Backend, error) {
		b, err := Open(DefaultWidth, DefaultHeight)
		if err != nil {
			return nil, err
		}
		return b, nil
	})
}
