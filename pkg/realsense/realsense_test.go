//go:build integration

package realsense

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kevmo314/go-rgbdt"
)

func openFirst(t *testing.T) (*Context, *Device) {
	t.Helper()
	ctx, err := NewContext()
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	t.Cleanup(func() { ctx.Close() })
	n, err := ctx.DeviceCount()
	if err != nil {
		t.Fatalf("DeviceCount failed: %v", err)
	}
	if n == 0 {
		t.Skip("no RealSense device connected")
	}
	dev, err := ctx.OpenDevice(0)
	if err != nil {
		t.Fatalf("OpenDevice failed: %v", err)
	}
	t.Cleanup(func() { dev.Close() })
	return ctx, dev
}

func TestDeviceInfo(t *testing.T) {
	_, dev := openFirst(t)
	info, err := dev.Info()
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Name == "" || info.Serial == "" {
		t.Errorf("Info() = %+v, want name and serial", info)
	}
	t.Logf("%+v", info)
}

func TestStreamFrames(t *testing.T) {
	_, dev := openFirst(t)
	streams := rgbdt.DefaultStreams(640, 480, 30)
	for _, c := range streams {
		if err := dev.EnableStream(c); err != nil {
			if c.Optional && errors.Is(err, ErrStreamUnavailable) {
				continue
			}
			t.Fatalf("EnableStream(%s) failed: %v", c, err)
		}
	}
	if err := dev.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	in, err := dev.Intrinsics(rgbdt.StreamColor)
	if err != nil {
		t.Fatalf("Intrinsics failed: %v", err)
	}
	if in.Width != 640 || in.Height != 480 {
		t.Errorf("intrinsics size = %dx%d, want 640x480", in.Width, in.Height)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := 0; i < 5; i++ {
		fs, err := dev.WaitForFrames(ctx)
		if err != nil {
			t.Fatalf("WaitForFrames failed: %v", err)
		}
		for _, s := range []rgbdt.Stream{rgbdt.StreamColor, rgbdt.StreamDepth, rgbdt.StreamDepthAlignedToColor} {
			data, err := fs.Data(s)
			if err != nil {
				t.Errorf("Data(%s) failed: %v", s, err)
				continue
			}
			want := 640 * 480 * 2
			if s == rgbdt.StreamColor {
				want = 640 * 480 * 3
			}
			if len(data) < want {
				t.Errorf("Data(%s) returned %d bytes, want at least %d", s, len(data), want)
			}
		}
		fs.Release()
	}
}

func TestWaitForFramesCancelled(t *testing.T) {
	_, dev := openFirst(t)
	if err := dev.EnableStream(rgbdt.StreamConfig{Stream: rgbdt.StreamDepth, Width: 640, Height: 480, Format: rgbdt.FormatZ16, FPS: 30}); err != nil {
		t.Fatal(err)
	}
	if err := dev.Start(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := dev.WaitForFrames(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
