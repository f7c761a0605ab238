// Package videocap reads frames from OS-managed video devices through OpenCV.
package videocap

import (
	"errors"
	"fmt"
	"image"
	"log"

	"gocv.io/x/gocv"
)

var (
	ErrNotOpened  = errors.New("video device could not be opened")
	ErrEmptyFrame = errors.New("video device returned an empty frame")
)

// Options are requested from the backend. Zero fields keep the device default,
// and the backend may silently pick the closest mode it supports.
type Options struct {
	Width  int
	Height int
	FPS    float64
}

type Capture struct {
	index int
	cap   *gocv.VideoCapture
	mat   gocv.Mat
}

// Open opens the video device with the given OS index.
func Open(index int, opts Options) (*Capture, error) {
	vc, err := gocv.VideoCaptureDevice(index)
	if err != nil {
		return nil, fmt.Errorf("%w: index %d: %v", ErrNotOpened, index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: index %d", ErrNotOpened, index)
	}
	if opts.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
	}
	if opts.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	}
	if opts.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, opts.FPS)
	}
	log.Printf("opened video device %d at %vx%v", index, vc.Get(gocv.VideoCaptureFrameWidth), vc.Get(gocv.VideoCaptureFrameHeight))
	return &Capture{index: index, cap: vc, mat: gocv.NewMat()}, nil
}

// ReadFrame grabs the next frame. The returned image is a copy owned by the
// caller.
func (c *Capture) ReadFrame() (image.Image, error) {
	if ok := c.cap.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, fmt.Errorf("%w: index %d", ErrEmptyFrame, c.index)
	}
	return c.mat.ToImage()
}

func (c *Capture) Close() error {
	c.mat.Close()
	return c.cap.Close()
}
