package rgbdt

import (
	"context"
	"errors"
	"image"
	"time"
)

var (
	ErrNoDevice    = errors.New("no depth device connected")
	ErrShortBuffer = errors.New("frame buffer shorter than stream geometry")
)

// DepthContext owns the handles to every connected depth device.
type DepthContext interface {
	DeviceCount() (int, error)
	Device(index int) (DepthDevice, error)
	Close() error
}

type DepthDevice interface {
	Info() (DeviceInfo, error)
	EnableStream(cfg StreamConfig) error
	Start() error
	Intrinsics(s Stream) (Intrinsics, error)
	// WaitForFrames blocks until a new coherent set of frames is ready.
	WaitForFrames(ctx context.Context) (FrameSet, error)
	Close() error
}

// FrameSet is one synchronized set of frames. The slices returned by Data
// borrow SDK memory and must not be used after Release.
type FrameSet interface {
	Data(s Stream) ([]byte, error)
	Release()
}

// FrameSource is a blocking source of decoded frames, such as a webcam.
type FrameSource interface {
	ReadFrame() (image.Image, error)
	Close() error
}

type Display interface {
	// PollEvents drains pending window events without blocking. It returns
	// false once the user has asked to quit.
	PollEvents() bool
	// Show must not retain img after it returns; img may view borrowed
	// frame memory.
	Show(window string, img image.Image)
	WaitKey(timeout time.Duration) (key rune, ok bool)
	Close() error
}
