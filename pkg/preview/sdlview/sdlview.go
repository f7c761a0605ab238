// Package sdlview shows preview windows with SDL2. All methods must be called
// from the goroutine that called New, which should be locked to the main OS
// thread.
package sdlview

import (
	"fmt"
	"image"
	"log"
	"time"
	"unsafe"

	"github.com/kevmo314/go-rgbdt"
	"github.com/kevmo314/go-rgbdt/pkg/preview"
	"github.com/veandco/go-sdl2/sdl"
)

type window struct {
	win      *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	w, h     int
}

func (w *window) destroy() {
	if w.texture != nil {
		w.texture.Destroy()
	}
	if w.renderer != nil {
		w.renderer.Destroy()
	}
	if w.win != nil {
		w.win.Destroy()
	}
}

type Display struct {
	windows map[string]*window
	failed  map[string]bool
	keys    []rune
	quit    bool
}

var _ rgbdt.Display = &Display{}

func New() (*Display, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("failed to initialize SDL: %w", err)
	}
	return &Display{windows: make(map[string]*window), failed: make(map[string]bool)}, nil
}

func (d *Display) handle(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		d.quit = true
	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_CLOSE {
			d.quit = true
		}
	case *sdl.KeyboardEvent:
		if e.State == sdl.PRESSED && e.Keysym.Sym < 0x80 {
			d.keys = append(d.keys, rune(e.Keysym.Sym))
		}
	}
}

func (d *Display) PollEvents() bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		d.handle(event)
	}
	return !d.quit
}

func (d *Display) open(name string, w, h int) (*window, error) {
	win, ok := d.windows[name]
	if ok && win.w == w && win.h == h {
		return win, nil
	}
	if !ok {
		win = &window{}
		sw, err := sdl.CreateWindow(name, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
			int32(w), int32(h), sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
		if err != nil {
			return nil, err
		}
		win.win = sw
		if win.renderer, err = sdl.CreateRenderer(sw, -1, sdl.RENDERER_ACCELERATED); err != nil {
			win.destroy()
			return nil, err
		}
		d.windows[name] = win
	}
	if win.texture != nil {
		win.texture.Destroy()
	}
	tex, err := win.renderer.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STREAMING, int32(w), int32(h))
	if err != nil {
		return nil, err
	}
	win.texture, win.w, win.h = tex, w, h
	return win, nil
}

func (d *Display) Show(name string, img image.Image) {
	rgba := preview.Clone(img)
	b := rgba.Bounds()
	if b.Empty() {
		return
	}
	win, err := d.open(name, b.Dx(), b.Dy())
	if err != nil {
		if !d.failed[name] {
			log.Printf("failed to open window %s: %v", name, err)
			d.failed[name] = true
		}
		return
	}
	win.texture.Update(nil, unsafe.Pointer(&rgba.Pix[0]), rgba.Stride)
	win.renderer.Clear()
	win.renderer.Copy(win.texture, nil, nil)
	win.renderer.Present()
}

// WaitKey pumps events for up to timeout and returns the first key pressed.
func (d *Display) WaitKey(timeout time.Duration) (rune, bool) {
	deadline := time.Now().Add(timeout)
	for len(d.keys) == 0 && !d.quit {
		left := time.Until(deadline)
		if left <= 0 {
			break
		}
		if event := sdl.WaitEventTimeout(int(left.Milliseconds()) + 1); event != nil {
			d.handle(event)
		}
	}
	if len(d.keys) == 0 {
		return 0, false
	}
	k := d.keys[0]
	d.keys = d.keys[1:]
	return k, true
}

func (d *Display) Close() error {
	for _, w := range d.windows {
		w.destroy()
	}
	d.windows = nil
	sdl.Quit()
	return nil
}
