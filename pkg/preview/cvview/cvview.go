// Package cvview shows preview windows with OpenCV's highgui.
package cvview

import (
	"image"
	"log"
	"time"

	"github.com/kevmo314/go-rgbdt"
	"github.com/kevmo314/go-rgbdt/pkg/preview"
	"gocv.io/x/gocv"
)

type Display struct {
	windows map[string]*gocv.Window
	order   []string
}

var _ rgbdt.Display = &Display{}

func New() *Display {
	return &Display{windows: make(map[string]*gocv.Window)}
}

// PollEvents reports false once any window has been closed by the user.
func (d *Display) PollEvents() bool {
	for _, w := range d.windows {
		if !w.IsOpen() {
			return false
		}
	}
	return true
}

func (d *Display) Show(name string, img image.Image) {
	mat, err := gocv.ImageToMatRGB(preview.Clone(img))
	if err != nil {
		log.Printf("failed to convert %s frame: %v", name, err)
		return
	}
	defer mat.Close()
	w, ok := d.windows[name]
	if !ok {
		w = gocv.NewWindow(name)
		d.windows[name] = w
		d.order = append(d.order, name)
	}
	w.IMShow(mat)
}

func (d *Display) WaitKey(timeout time.Duration) (rune, bool) {
	if len(d.order) == 0 {
		time.Sleep(timeout)
		return 0, false
	}
	ms := int(timeout.Milliseconds())
	if ms < 1 {
		ms = 1
	}
	k := d.windows[d.order[0]].WaitKey(ms)
	if k < 0 {
		return 0, false
	}
	return rune(k & 0xff), true
}

func (d *Display) Close() error {
	for _, w := range d.windows {
		w.Close()
	}
	d.windows = nil
	d.order = nil
	return nil
}
