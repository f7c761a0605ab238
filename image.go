package rgbdt

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
)

// RGB is a packed 24-bit image whose At method returns opaque [color.RGBA]
// values. It is used to view RGB8 frame buffers without copying them.
type RGB struct {
	// Pix holds the image's pixels, in R, G, B order. The pixel at
	// (x, y) starts at Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*3].
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

var _ image.Image = &RGB{}

func (p *RGB) ColorModel() color.Model { return color.RGBAModel }

func (p *RGB) Bounds() image.Rectangle { return p.Rect }

func (p *RGB) At(x, y int) color.Color {
	return p.RGBAAt(x, y)
}

func (p *RGB) RGBAAt(x, y int) color.RGBA {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+3 : i+3]
	return color.RGBA{s[0], s[1], s[2], 0xff}
}

// PixOffset returns the index of the first element of Pix that corresponds to
// the pixel at (x, y).
func (p *RGB) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
}

// Opaque lets image/png pick the 8-bit truecolor encoding without scanning.
func (p *RGB) Opaque() bool { return true }

// BGR is RGB with the channel order swapped, as produced by bgr8 streams.
type BGR struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

var _ image.Image = &BGR{}

func (p *BGR) ColorModel() color.Model { return color.RGBAModel }

func (p *BGR) Bounds() image.Rectangle { return p.Rect }

func (p *BGR) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
	s := p.Pix[i : i+3 : i+3]
	return color.RGBA{s[2], s[1], s[0], 0xff}
}

func (p *BGR) Opaque() bool { return true }

func checkSize(buf []byte, width, height, bpp int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if need := width * height * bpp; len(buf) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrShortBuffer, len(buf), need)
	}
	return nil
}

// ColorView wraps a packed rgb8 or bgr8 buffer without copying it.
func ColorView(buf []byte, width, height int, format Format) (image.Image, error) {
	if err := checkSize(buf, width, height, 3); err != nil {
		return nil, err
	}
	r := image.Rect(0, 0, width, height)
	switch format {
	case FormatRGB8:
		return &RGB{Pix: buf, Stride: width * 3, Rect: r}, nil
	case FormatBGR8:
		return &BGR{Pix: buf, Stride: width * 3, Rect: r}, nil
	}
	return nil, fmt.Errorf("unsupported color format: %s", format)
}

// DepthImage converts a little-endian z16 buffer into a 16-bit grayscale
// image. image.Gray16 stores big-endian samples, so the pixels are copied.
func DepthImage(buf []byte, width, height int) (*image.Gray16, error) {
	if err := checkSize(buf, width, height, 2); err != nil {
		return nil, err
	}
	img := image.NewGray16(image.Rect(0, 0, width, height))
	n := width * height
	for i := 0; i < n; i++ {
		binary.BigEndian.PutUint16(img.Pix[2*i:], binary.LittleEndian.Uint16(buf[2*i:]))
	}
	return img, nil
}
