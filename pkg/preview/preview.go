// Package preview holds what the preview backends share: depth
// visualization, the mosaic layout, and the latest-frame store used by
// backends that run their own event loop.
package preview

import (
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/kevmo314/go-rgbdt"
	"golang.org/x/image/draw"
)

const KeyEscape = 27

// Windows lists the preview windows in the order they are tiled.
var Windows = []string{
	rgbdt.WindowColor,
	rgbdt.WindowDepth,
	rgbdt.WindowThermalIT,
	rgbdt.WindowThermalRGB,
}

// MainLoop is implemented by displays whose event loop has to own the main
// goroutine. Run blocks until the user quits or Close is called.
type MainLoop interface {
	Run() error
}

// DepthToGray returns a converter that maps depth linearly onto 8-bit gray,
// saturating at max. Zero, the "no data" value, stays black.
func DepthToGray(max uint16) func(*image.Gray16) image.Image {
	if max == 0 {
		max = 0xffff
	}
	return func(src *image.Gray16) image.Image {
		b := src.Bounds()
		dst := image.NewGray(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				v := src.Gray16At(x, y).Y
				if v >= max {
					dst.SetGray(x, y, color.Gray{0xff})
					continue
				}
				dst.SetGray(x, y, color.Gray{uint8(uint32(v) * 0xff / uint32(max))})
			}
		}
		return dst
	}
}

// Clone copies img into a new RGBA image with its origin at zero.
func Clone(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Grid returns n cells of cw by ch laid out two per row.
func Grid(n, cw, ch int) []image.Rectangle {
	cells := make([]image.Rectangle, n)
	for i := range cells {
		x, y := (i%2)*cw, (i/2)*ch
		cells[i] = image.Rect(x, y, x+cw, y+ch)
	}
	return cells
}

// Mosaic draws the latest image of every window into its grid cell, shrunk
// to fit and centered. Missing windows stay black.
func Mosaic(frames map[string]*image.RGBA, cw, ch int) *image.RGBA {
	cells := Grid(len(Windows), cw, ch)
	dst := image.NewRGBA(image.Rect(0, 0, 2*cw, ((len(Windows)+1)/2)*ch))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	for i, name := range Windows {
		img, ok := frames[name]
		if !ok {
			continue
		}
		tile := imaging.Fit(img, cw, ch, imaging.Linear)
		tb := tile.Bounds()
		off := cells[i].Min.Add(image.Pt((cw-tb.Dx())/2, (ch-tb.Dy())/2))
		draw.Draw(dst, image.Rectangle{Min: off, Max: off.Add(tb.Size())}, tile, tb.Min, draw.Src)
	}
	return dst
}

// Store keeps the latest image per window and forwards key presses from an
// event loop on another goroutine to the recorder.
type Store struct {
	mu      sync.Mutex
	frames  map[string]*image.RGBA
	version int
	keys    chan rune
	done    chan struct{}
	once    sync.Once
}

func NewStore() *Store {
	return &Store{
		frames: make(map[string]*image.RGBA),
		keys:   make(chan rune, 16),
		done:   make(chan struct{}),
	}
}

// PollEvents reports false once the event loop has quit.
func (s *Store) PollEvents() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Show copies img, since the recorder may reuse or release its memory.
func (s *Store) Show(window string, img image.Image) {
	c := Clone(img)
	s.mu.Lock()
	s.frames[window] = c
	s.version++
	s.mu.Unlock()
}

// Snapshot returns the latest images and a counter that changes whenever one
// of them does. The images must not be modified.
func (s *Store) Snapshot() (map[string]*image.RGBA, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*image.RGBA, len(s.frames))
	for k, v := range s.frames {
		out[k] = v
	}
	return out, s.version
}

// Press queues a key. Keys are dropped when nobody is reading them.
func (s *Store) Press(key rune) {
	select {
	case s.keys <- key:
	default:
	}
}

func (s *Store) WaitKey(timeout time.Duration) (rune, bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case k := <-s.keys:
		return k, true
	case <-s.done:
		return 0, false
	case <-t.C:
		return 0, false
	}
}

// Quit marks the event loop as finished.
func (s *Store) Quit() {
	s.once.Do(func() { close(s.done) })
}

// Done is closed by Quit.
func (s *Store) Done() <-chan struct{} { return s.done }

// None is the display used when no preview is wanted.
type None struct{}

var _ rgbdt.Display = None{}

func (None) PollEvents() bool                   { return true }
func (None) Show(string, image.Image)           {}
func (None) WaitKey(time.Duration) (rune, bool) { return 0, false }
func (None) Close() error                       { return nil }
