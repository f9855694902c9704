package imgl

import "fmt"

// phase is the state of the Begin/Vertex/End state machine.
//
//	Idle --Begin(mode)--> Recording --End--> Idle
//	Recording --Vertex--> Recording     (may pass through Flushing)
//	Idle/Recording --flush--> Flushing --> previous phase
type phase uint8

const (
	phaseIdle phase = iota
	phaseRecording
	phaseFlushing
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "Idle"
	case phaseRecording:
		return "Recording"
	case phaseFlushing:
		return "Flushing"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// violation reports a caller contract violation. With debug assertions it
// panics with an error wrapping ErrProtocol; otherwise it logs a warning and
// the caller continues with its recovery path.
func (c *Context) violation(format string, args ...any) {
	c.stats.ProtocolViolations++
	err := fmt.Errorf("%w: "+format, append([]any{ErrProtocol}, args...)...)
	if c.cfg.DebugAssertions {
		panic(err)
	}
	Logger().Warn("imgl: protocol violation", "err", err, "phase", c.phase, "mode", c.mode)
}
