package preview

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/kevmo314/go-rgbdt"
	"golang.org/x/image/draw"
)

func TestDepthToGray(t *testing.T) {
	src := image.NewGray16(image.Rect(0, 0, 4, 1))
	for i, v := range []uint16{0, 1000, 2000, 9000} {
		src.SetGray16(i, 0, color.Gray16{v})
	}
	dst := DepthToGray(2000)(src).(*image.Gray)
	tests := []struct {
		x    int
		want uint8
	}{
		{0, 0},
		{1, 127},
		{2, 255},
		{3, 255},
	}
	for _, tt := range tests {
		if got := dst.GrayAt(tt.x, 0).Y; got != tt.want {
			t.Errorf("pixel %d = %d, want %d", tt.x, got, tt.want)
		}
	}
}

func TestDepthToGrayDefaultRange(t *testing.T) {
	src := image.NewGray16(image.Rect(0, 0, 1, 1))
	src.SetGray16(0, 0, color.Gray16{0xffff})
	if got := DepthToGray(0)(src).(*image.Gray).GrayAt(0, 0).Y; got != 0xff {
		t.Errorf("pixel = %d, want 255", got)
	}
}

func TestClone(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 12, 12))
	src.SetRGBA(11, 11, color.RGBA{1, 2, 3, 255})
	c := Clone(src)
	if c.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Errorf("Bounds() = %v, want (0,0)-(2,2)", c.Bounds())
	}
	if got := c.RGBAAt(1, 1); got != (color.RGBA{1, 2, 3, 255}) {
		t.Errorf("RGBAAt(1, 1) = %v, want {1 2 3 255}", got)
	}
	src.SetRGBA(11, 11, color.RGBA{})
	if got := c.RGBAAt(1, 1); got.R != 1 {
		t.Error("Clone shares memory with its source")
	}
}

func TestGrid(t *testing.T) {
	cells := Grid(4, 320, 240)
	want := []image.Rectangle{
		image.Rect(0, 0, 320, 240),
		image.Rect(320, 0, 640, 240),
		image.Rect(0, 240, 320, 480),
		image.Rect(320, 240, 640, 480),
	}
	for i := range want {
		if cells[i] != want[i] {
			t.Errorf("cell %d = %v, want %v", i, cells[i], want[i])
		}
	}
}

func TestMosaic(t *testing.T) {
	red := image.NewRGBA(image.Rect(0, 0, 4, 4))
	draw.Draw(red, red.Bounds(), image.NewUniform(color.RGBA{255, 0, 0, 255}), image.Point{}, draw.Src)
	m := Mosaic(map[string]*image.RGBA{rgbdt.WindowDepth: red}, 8, 8)
	if m.Bounds() != image.Rect(0, 0, 16, 16) {
		t.Fatalf("Bounds() = %v, want (0,0)-(16,16)", m.Bounds())
	}
	if got := m.RGBAAt(12, 4); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("depth cell = %v, want red", got)
	}
	// smaller tiles are centered, not stretched
	if got := m.RGBAAt(9, 1); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("letterbox = %v, want black", got)
	}
	if got := m.RGBAAt(4, 4); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("empty cell = %v, want black", got)
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	if !s.PollEvents() {
		t.Fatal("PollEvents() = false before Quit")
	}
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	s.Show(rgbdt.WindowColor, img)
	frames, v1 := s.Snapshot()
	if _, ok := frames[rgbdt.WindowColor]; !ok {
		t.Errorf("Snapshot() missing %s", rgbdt.WindowColor)
	}
	s.Show(rgbdt.WindowColor, img)
	if _, v2 := s.Snapshot(); v2 == v1 {
		t.Error("version did not change after Show")
	}

	if _, ok := s.WaitKey(time.Millisecond); ok {
		t.Error("WaitKey() reported a key with none pressed")
	}
	s.Press('q')
	if k, ok := s.WaitKey(time.Second); !ok || k != 'q' {
		t.Errorf("WaitKey() = %q, %v, want 'q', true", k, ok)
	}

	s.Quit()
	s.Quit()
	if s.PollEvents() {
		t.Error("PollEvents() = true after Quit")
	}
	start := time.Now()
	if _, ok := s.WaitKey(time.Minute); ok {
		t.Error("WaitKey() reported a key after Quit")
	}
	if time.Since(start) > 10*time.Second {
		t.Error("WaitKey() blocked after Quit")
	}
}

func TestNone(t *testing.T) {
	var d rgbdt.Display = None{}
	if !d.PollEvents() {
		t.Error("PollEvents() = false, want true")
	}
	if _, ok := d.WaitKey(time.Millisecond); ok {
		t.Error("WaitKey() reported a key")
	}
}
