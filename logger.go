package imgl

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called from a different goroutine than the one
// owning the graphics context.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for imgl and its backends.
// By default, imgl produces no log output. Call SetLogger to enable logging.
//
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by imgl:
//   - [slog.LevelDebug]: flush statistics (draw calls, vertices, buffer index)
//   - [slog.LevelInfo]: backend lifecycle (device opened, pipelines created)
//   - [slog.LevelWarn]: recovered conditions (matrix stack overflow or
//     underflow, protocol violations, backend errors during implicit flushes)
//
// Example:
//
//	imgl.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	liveMu.Lock()
	defer liveMu.Unlock()
	for ls := range live {
		ls.SetLogger(l)
	}
}

// Logger returns the current logger used by imgl.
// Backend packages call this to share the same logger configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by backends that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// live holds the backends of open contexts that accept a logger, so that
// SetLogger reaches them.
var (
	liveMu sync.Mutex
	live   = make(map[loggerSetter]struct{})
)

// propagateLogger passes the current logger to a backend if it implements
// the loggerSetter interface and tracks it for later SetLogger calls.
func propagateLogger(b Backend) {
	ls, ok := b.(loggerSetter)
	if !ok {
		return
	}
	ls.SetLogger(Logger())
	liveMu.Lock()
	live[ls] = struct{}{}
	liveMu.Unlock()
}

// forgetLogger stops SetLogger propagation to b.
func forgetLogger(b Backend) {
	if ls, ok := b.(loggerSetter); ok {
		liveMu.Lock()
		delete(live, ls)
		liveMu.Unlock()
	}
}
