// Package uvcdesc parses the class-specific video streaming descriptors of a
// UVC camera into the formats and frame sizes it advertises.
package uvcdesc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidDescriptor = errors.New("invalid descriptor")

const csInterface = 0x24

const (
	subtypeFormatUncompressed = 0x04
	subtypeFrameUncompressed  = 0x05
	subtypeFormatMJPEG        = 0x06
	subtypeFrameMJPEG         = 0x07
	subtypeFormatFrameBased   = 0x10
	subtypeFrameFrameBased    = 0x11
)

type Kind int

const (
	KindUncompressed Kind = iota
	KindMJPEG
	KindFrameBased
)

func (k Kind) String() string {
	switch k {
	case KindUncompressed:
		return "Uncompressed"
	case KindMJPEG:
		return "MJPEG"
	case KindFrameBased:
		return "Frame-Based"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// guidSuffix is shared by every GUID built from a FourCC.
var guidSuffix = []byte{0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71}

type Format struct {
	Index        uint8
	Kind         Kind
	GUID         uuid.UUID
	BitsPerPixel uint8
	Frames       []Frame
}

// FourCC returns the four character code embedded in the format GUID, or
// false if the GUID isn't one of the FourCC-derived ones. MJPEG formats carry
// no GUID and report "MJPG".
func (f *Format) FourCC() (string, bool) {
	if f.Kind == KindMJPEG {
		return "MJPG", true
	}
	if !bytes.Equal(f.GUID[4:], guidSuffix) {
		return "", false
	}
	return string(bytes.TrimRight(f.GUID[:4], "\x00 ")), true
}

func (f *Format) String() string {
	if fourcc, ok := f.FourCC(); ok {
		return fmt.Sprintf("%s %s", f.Kind, fourcc)
	}
	return fmt.Sprintf("%s %s", f.Kind, f.GUID)
}

type Frame struct {
	Index           uint8
	Width, Height   uint16
	DefaultInterval time.Duration

	// Intervals lists the discrete frame intervals. It is empty when the
	// device supports a continuous range instead.
	Intervals                []time.Duration
	MinInterval, MaxInterval time.Duration
	IntervalStep             time.Duration
}

// FPS returns the frame rates of the discrete intervals, or the bounds of the
// continuous range.
func (f *Frame) FPS() []float64 {
	ivs := f.Intervals
	if len(ivs) == 0 {
		ivs = []time.Duration{f.MinInterval, f.MaxInterval}
	}
	var out []float64
	for _, iv := range ivs {
		if iv > 0 {
			out = append(out, float64(time.Second)/float64(iv))
		}
	}
	return out
}

func interval(buf []byte) time.Duration {
	return time.Duration(binary.LittleEndian.Uint32(buf)) * 100 * time.Nanosecond
}

// Parse walks the concatenated class-specific descriptors found in the
// extra bytes of a video streaming interface. Descriptors other than the
// uncompressed, MJPEG and frame-based formats and frames are skipped.
func Parse(extra []byte) ([]Format, error) {
	var formats []Format
	for len(extra) > 0 {
		if len(extra) < 3 {
			return nil, io.ErrShortBuffer
		}
		n := int(extra[0])
		if n < 3 {
			return nil, fmt.Errorf("%w: length %d", ErrInvalidDescriptor, n)
		}
		if n > len(extra) {
			return nil, io.ErrShortBuffer
		}
		buf := extra[:n]
		extra = extra[n:]
		if buf[1] != csInterface {
			continue
		}
		switch buf[2] {
		case subtypeFormatUncompressed, subtypeFormatFrameBased:
			if n < 22 {
				return nil, fmt.Errorf("%w: format descriptor of length %d", ErrInvalidDescriptor, n)
			}
			f := Format{Index: buf[3], Kind: KindUncompressed, BitsPerPixel: buf[21]}
			if buf[2] == subtypeFormatFrameBased {
				f.Kind = KindFrameBased
			}
			copy(f.GUID[:], buf[5:21])
			formats = append(formats, f)
		case subtypeFormatMJPEG:
			if n < 11 {
				return nil, fmt.Errorf("%w: format descriptor of length %d", ErrInvalidDescriptor, n)
			}
			formats = append(formats, Format{Index: buf[3], Kind: KindMJPEG})
		case subtypeFrameUncompressed, subtypeFrameMJPEG, subtypeFrameFrameBased:
			if len(formats) == 0 {
				return nil, fmt.Errorf("%w: frame descriptor without a format", ErrInvalidDescriptor)
			}
			fr, err := parseFrame(buf)
			if err != nil {
				return nil, err
			}
			last := &formats[len(formats)-1]
			last.Frames = append(last.Frames, fr)
		}
	}
	return formats, nil
}

func parseFrame(buf []byte) (Frame, error) {
	// frame-based frames have no max buffer size field but a bytes-per-line
	// field after the interval type, so the offsets differ
	defaultAt, typeAt := 21, 25
	if buf[2] == subtypeFrameFrameBased {
		defaultAt, typeAt = 17, 21
	}
	if len(buf) < 26 {
		return Frame{}, fmt.Errorf("%w: frame descriptor of length %d", ErrInvalidDescriptor, len(buf))
	}
	fr := Frame{
		Index:           buf[3],
		Width:           binary.LittleEndian.Uint16(buf[5:7]),
		Height:          binary.LittleEndian.Uint16(buf[7:9]),
		DefaultInterval: interval(buf[defaultAt:]),
	}
	n := int(buf[typeAt])
	if n == 0 {
		if len(buf) < 38 {
			return Frame{}, io.ErrShortBuffer
		}
		fr.MinInterval = interval(buf[26:])
		fr.MaxInterval = interval(buf[30:])
		fr.IntervalStep = interval(buf[34:])
		return fr, nil
	}
	if len(buf) < 26+4*n {
		return Frame{}, io.ErrShortBuffer
	}
	fr.Intervals = make([]time.Duration, n)
	for i := range fr.Intervals {
		fr.Intervals[i] = interval(buf[26+4*i:])
	}
	return fr, nil
}
