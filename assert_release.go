//go:build !imgl_debug

package imgl

// debugBuild is the default for Config.DebugAssertions. Build with
// -tags imgl_debug to make protocol violations panic by default.
const debugBuild = false
