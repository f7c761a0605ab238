package uvcdesc

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"
)

func yuy2Format(index, nframes uint8) []byte {
	b := make([]byte, 27)
	b[0], b[1], b[2] = 27, csInterface, subtypeFormatUncompressed
	b[3], b[4] = index, nframes
	copy(b[5:], []byte{'Y', 'U', 'Y', '2'})
	copy(b[9:], guidSuffix)
	b[21] = 16
	return b
}

func uncompressedFrame(index uint8, w, h uint16, intervals ...uint32) []byte {
	b := make([]byte, 26+4*len(intervals))
	b[0], b[1], b[2] = byte(len(b)), csInterface, subtypeFrameUncompressed
	b[3] = index
	binary.LittleEndian.PutUint16(b[5:], w)
	binary.LittleEndian.PutUint16(b[7:], h)
	binary.LittleEndian.PutUint32(b[21:], intervals[0])
	b[25] = byte(len(intervals))
	for i, iv := range intervals {
		binary.LittleEndian.PutUint32(b[26+4*i:], iv)
	}
	return b
}

func concat(bufs ...[]byte) []byte {
	var out []byte
	for _, b := range bufs {
		out = append(out, b...)
	}
	return out
}

func TestParseUncompressed(t *testing.T) {
	// an input header that should be skipped, then YUY2 with two frames
	header := []byte{5, csInterface, 0x01, 0, 0}
	extra := concat(header,
		yuy2Format(1, 2),
		uncompressedFrame(1, 640, 480, 333333, 666666),
		uncompressedFrame(2, 160, 120, 333333),
	)
	formats, err := Parse(extra)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(formats) != 1 {
		t.Fatalf("got %d formats, want 1", len(formats))
	}
	f := formats[0]
	if fourcc, ok := f.FourCC(); !ok || fourcc != "YUY2" {
		t.Errorf("FourCC() = %q, %v, want YUY2, true", fourcc, ok)
	}
	if f.String() != "Uncompressed YUY2" {
		t.Errorf("String() = %q, want %q", f.String(), "Uncompressed YUY2")
	}
	if f.BitsPerPixel != 16 {
		t.Errorf("BitsPerPixel = %d, want 16", f.BitsPerPixel)
	}
	if len(f.Frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(f.Frames))
	}
	fr := f.Frames[0]
	if fr.Width != 640 || fr.Height != 480 {
		t.Errorf("frame size = %dx%d, want 640x480", fr.Width, fr.Height)
	}
	if fr.DefaultInterval != 33333300*time.Nanosecond {
		t.Errorf("DefaultInterval = %v, want 33.3333ms", fr.DefaultInterval)
	}
	fps := fr.FPS()
	if len(fps) != 2 || int(fps[0]+0.5) != 30 || int(fps[1]+0.5) != 15 {
		t.Errorf("FPS() = %v, want [30 15]", fps)
	}
}

func TestParseMJPEGContinuous(t *testing.T) {
	format := []byte{11, csInterface, subtypeFormatMJPEG, 2, 1, 0, 1, 0, 0, 0, 0}
	frame := make([]byte, 38)
	frame[0], frame[1], frame[2], frame[3] = 38, csInterface, subtypeFrameMJPEG, 1
	binary.LittleEndian.PutUint16(frame[5:], 1280)
	binary.LittleEndian.PutUint16(frame[7:], 720)
	binary.LittleEndian.PutUint32(frame[21:], 333333)
	binary.LittleEndian.PutUint32(frame[26:], 166666)
	binary.LittleEndian.PutUint32(frame[30:], 1000000)
	binary.LittleEndian.PutUint32(frame[34:], 10)

	formats, err := Parse(concat(format, frame))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(formats) != 1 || formats[0].Kind != KindMJPEG {
		t.Fatalf("formats = %+v, want one MJPEG format", formats)
	}
	fr := formats[0].Frames[0]
	if len(fr.Intervals) != 0 {
		t.Errorf("Intervals = %v, want none", fr.Intervals)
	}
	if fr.MinInterval != 16666600*time.Nanosecond || fr.MaxInterval != 100*time.Millisecond {
		t.Errorf("range = %v-%v, want 16.6666ms-100ms", fr.MinInterval, fr.MaxInterval)
	}
	if fourcc, _ := formats[0].FourCC(); fourcc != "MJPG" {
		t.Errorf("FourCC() = %q, want MJPG", fourcc)
	}
}

func TestParseFrameBased(t *testing.T) {
	format := make([]byte, 28)
	format[0], format[1], format[2], format[3] = 28, csInterface, subtypeFormatFrameBased, 1
	copy(format[5:], []byte{'H', '2', '6', '4'})
	copy(format[9:], guidSuffix)
	frame := make([]byte, 30)
	frame[0], frame[1], frame[2], frame[3] = 30, csInterface, subtypeFrameFrameBased, 1
	binary.LittleEndian.PutUint16(frame[5:], 1920)
	binary.LittleEndian.PutUint16(frame[7:], 1080)
	binary.LittleEndian.PutUint32(frame[17:], 333333)
	frame[21] = 1
	binary.LittleEndian.PutUint32(frame[26:], 333333)

	formats, err := Parse(concat(format, frame))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := formats[0].String(); got != "Frame-Based H264" {
		t.Errorf("String() = %q, want %q", got, "Frame-Based H264")
	}
	fr := formats[0].Frames[0]
	if fr.Width != 1920 || fr.DefaultInterval != 33333300*time.Nanosecond || len(fr.Intervals) != 1 {
		t.Errorf("frame = %+v, want 1920 wide with one 33.3333ms interval", fr)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		extra []byte
		want  error
	}{
		{"zero length", []byte{0, csInterface, 0}, ErrInvalidDescriptor},
		{"truncated", []byte{27, csInterface, subtypeFormatUncompressed}, io.ErrShortBuffer},
		{"orphan frame", uncompressedFrame(1, 640, 480, 333333), ErrInvalidDescriptor},
		{"short intervals", concat(yuy2Format(1, 1), func() []byte {
			b := uncompressedFrame(1, 640, 480, 333333)
			b[25] = 3
			return b
		}()), io.ErrShortBuffer},
	}
	for _, tt := range tests {
		if _, err := Parse(tt.extra); !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestFourCCUnknownGUID(t *testing.T) {
	f := Format{Kind: KindUncompressed}
	f.GUID[0] = 1
	if _, ok := f.FourCC(); ok {
		t.Error("FourCC() reported a code for a non-FourCC GUID")
	}
}
