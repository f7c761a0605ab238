// Package tuiview renders the preview in the terminal, for recording over SSH.
// Run must be called from the main goroutine; it owns the terminal until the
// user quits or Close is called.
package tuiview

import (
	"image"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/kevmo314/go-rgbdt"
	"github.com/kevmo314/go-rgbdt/pkg/preview"
	"github.com/rivo/tview"
	"golang.org/x/image/draw"
)

const refresh = 100 * time.Millisecond

type Display struct {
	*preview.Store

	app    *tview.Application
	images map[string]*tview.Image
	root   tview.Primitive
}

var (
	_ rgbdt.Display    = &Display{}
	_ preview.MainLoop = &Display{}
)

// New builds the layout and redirects the standard logger into a log pane.
func New() *Display {
	d := &Display{
		Store:  preview.NewStore(),
		app:    tview.NewApplication(),
		images: make(map[string]*tview.Image),
	}

	grid := tview.NewGrid().SetRows(0, 0).SetColumns(0, 0)
	for i, name := range preview.Windows {
		img := tview.NewImage()
		img.SetColors(256).SetDithering(tview.DitheringNone).SetBorder(true).SetTitle(name)
		grid.AddItem(img, i/2, i%2, 1, 1, 0, 0, false)
		d.images[name] = img
	}

	logText := tview.NewTextView()
	logText.SetBorder(true).SetTitle("Log")
	logText.SetChangedFunc(func() { d.app.Draw() })
	log.SetOutput(logText)

	d.root = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(grid, 0, 1, true).
		AddItem(logText, 8, 0, false)

	d.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyEscape:
			d.Press(preview.KeyEscape)
			return nil
		case event.Key() == tcell.KeyRune:
			d.Press(event.Rune())
			return nil
		}
		return event
	})
	return d
}

func (d *Display) refresh() {
	t := time.NewTicker(refresh)
	defer t.Stop()
	last := -1
	for {
		select {
		case <-d.Done():
			// queued so that a Close before Run still stops the app
			d.app.QueueUpdate(d.app.Stop)
			return
		case <-t.C:
		}
		frames, version := d.Snapshot()
		if version == last {
			continue
		}
		last = version
		scaled := make(map[string]image.Image, len(frames))
		for name, f := range frames {
			scaled[name] = resize(f, 160, 120)
		}
		d.app.QueueUpdateDraw(func() {
			for name, img := range scaled {
				d.images[name].SetImage(img)
			}
		})
	}
}

func (d *Display) Run() error {
	go d.refresh()
	err := d.app.SetRoot(d.root, true).Run()
	d.Quit()
	log.SetOutput(os.Stderr)
	return err
}

func (d *Display) Close() error {
	d.Quit()
	return nil
}

func resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}
