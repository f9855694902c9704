package imgl

import "errors"

// Engine errors.
var (
	// ErrNoBackend is returned when a Context is created without a backend.
	ErrNoBackend = errors.New("imgl: no backend configured")

	// ErrBackendNotRegistered is returned by NewBackend for unknown names.
	ErrBackendNotRegistered = errors.New("imgl: backend not registered")

	// ErrInvalidConfig is returned when configuration values are out of range.
	ErrInvalidConfig = errors.New("imgl: invalid configuration")

	// ErrProtocol marks Begin/Vertex/End contract violations. It is the
	// panic value (wrapped) when debug assertions are enabled.
	ErrProtocol = errors.New("imgl: protocol violation")

	// ErrFlushInProgress is returned when a flush is requested while the
	// batch is already being flushed.
	ErrFlushInProgress = errors.New("imgl: flush already in progress")

	// ErrBatchBusy is returned when the active batch is switched or unloaded
	// in the middle of a primitive.
	ErrBatchBusy = errors.New("imgl: batch is recording")

	// ErrClosed is returned by operations on a closed Context.
	ErrClosed = errors.New("imgl: context closed")
)
