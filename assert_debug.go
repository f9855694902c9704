//go:build imgl_debug

package imgl

const debugBuild = true
