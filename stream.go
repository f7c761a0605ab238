package rgbdt

import "fmt"

type Stream int

const (
	StreamDepth Stream = iota
	StreamColor
	StreamInfrared
	StreamInfrared2
	// StreamDepthAlignedToColor is the depth stream reprojected into the
	// color camera's pixel grid. It is derived, never enabled directly.
	StreamDepthAlignedToColor
)

func (s Stream) String() string {
	switch s {
	case StreamDepth:
		return "depth"
	case StreamColor:
		return "color"
	case StreamInfrared:
		return "infrared"
	case StreamInfrared2:
		return "infrared2"
	case StreamDepthAlignedToColor:
		return "depth_aligned_to_color"
	default:
		return fmt.Sprintf("stream(%d)", int(s))
	}
}

type Format int

const (
	FormatAny Format = iota
	FormatZ16
	FormatRGB8
	FormatBGR8
	FormatY8
)

func (f Format) String() string {
	switch f {
	case FormatAny:
		return "any"
	case FormatZ16:
		return "z16"
	case FormatRGB8:
		return "rgb8"
	case FormatBGR8:
		return "bgr8"
	case FormatY8:
		return "y8"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// BytesPerPixel returns the packed pixel size of f, or 0 if it is not fixed.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatZ16:
		return 2
	case FormatRGB8, FormatBGR8:
		return 3
	case FormatY8:
		return 1
	default:
		return 0
	}
}

type StreamConfig struct {
	Stream        Stream
	Width, Height int
	Format        Format
	FPS           int
	// Optional streams may fail to enable without aborting startup.
	Optional bool
}

func (c StreamConfig) String() string {
	return fmt.Sprintf("%s %dx%d %s@%d", c.Stream, c.Width, c.Height, c.Format, c.FPS)
}

// FrameSize is the size in bytes of one tightly packed frame of this stream.
func (c StreamConfig) FrameSize() int {
	return c.Width * c.Height * c.Format.BytesPerPixel()
}

// DefaultStreams configures depth, color and infrared at the same resolution
// and rate, plus a second infrared imager that not every device has.
func DefaultStreams(width, height, fps int) []StreamConfig {
	return []StreamConfig{
		{Stream: StreamDepth, Width: width, Height: height, Format: FormatZ16, FPS: fps},
		{Stream: StreamColor, Width: width, Height: height, Format: FormatRGB8, FPS: fps},
		{Stream: StreamInfrared, Width: width, Height: height, Format: FormatY8, FPS: fps},
		{Stream: StreamInfrared2, Width: width, Height: height, Format: FormatY8, FPS: fps, Optional: true},
	}
}

type DeviceInfo struct {
	Name     string
	Serial   string
	Firmware string
}

type Intrinsics struct {
	Width, Height int
	PPX, PPY      float32
	FX, FY        float32
	Model         string
	Coeffs        [5]float32
}
