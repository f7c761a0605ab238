package realsense

import (
	"errors"
	"fmt"
)

var (
	ErrStreamUnavailable = errors.New("stream unavailable")
	ErrFrameTimeout      = errors.New("frame didn't arrive in time")
	ErrClosed            = errors.New("device closed")
)

// Error is a failure reported by librealsense. It carries the name and
// arguments of the SDK call that failed.
type Error struct {
	Function string
	Args     string
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("rs2 error was thrown when calling %s(%s):\n    %s", e.Function, e.Args, e.Message)
}
