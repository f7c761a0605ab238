// Package ebitenview shows all preview windows as one mosaic in a single
// ebiten window. Run must be called from the main goroutine.
package ebitenview

import (
	"errors"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/kevmo314/go-rgbdt"
	"github.com/kevmo314/go-rgbdt/pkg/preview"
)

type Display struct {
	*preview.Store

	cellW, cellH int
	version      int
	mosaic       *ebiten.Image
	keys         []ebiten.Key
}

var (
	_ rgbdt.Display    = &Display{}
	_ preview.MainLoop = &Display{}
	_ ebiten.Game      = &Display{}
)

// New creates a display whose tiles are cellW by cellH pixels.
func New(cellW, cellH int) *Display {
	return &Display{Store: preview.NewStore(), cellW: cellW, cellH: cellH, version: -1}
}

func (d *Display) Run() error {
	ebiten.SetWindowTitle("rgbdt")
	ebiten.SetWindowSize(2*d.cellW, 2*d.cellH)
	err := ebiten.RunGame(d)
	d.Quit()
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

func (d *Display) Close() error {
	d.Quit()
	return nil
}

func (d *Display) Update() error {
	select {
	case <-d.Done():
		return ebiten.Termination
	default:
	}
	d.keys = inpututil.AppendJustPressedKeys(d.keys[:0])
	for _, k := range d.keys {
		switch k {
		case ebiten.KeyQ:
			d.Press('q')
		case ebiten.KeyEscape:
			d.Press(preview.KeyEscape)
		}
	}
	frames, version := d.Snapshot()
	if version == d.version {
		return nil
	}
	d.version = version
	if d.mosaic == nil {
		d.mosaic = ebiten.NewImage(2*d.cellW, 2*d.cellH)
	}
	d.mosaic.WritePixels(preview.Mosaic(frames, d.cellW, d.cellH).Pix)
	return nil
}

func (d *Display) Draw(screen *ebiten.Image) {
	if d.mosaic != nil {
		screen.DrawImage(d.mosaic, &ebiten.DrawImageOptions{})
	}
}

func (d *Display) Layout(outsideWidth, outsideHeight int) (int, int) {
	return 2 * d.cellW, 2 * d.cellH
}
