package rgbdt

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// writeFile writes to a uniquely named temporary file next to path and
// renames it into place, so path either holds a complete file or nothing.
func writeFile(path string, write func(w io.Writer) error) error {
	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

type imageWriter struct {
	enc *png.Encoder
}

func newImageWriter(level png.CompressionLevel) *imageWriter {
	return &imageWriter{enc: &png.Encoder{CompressionLevel: level, BufferPool: &bufferPool{ch: make(chan *png.EncoderBuffer, 8)}}}
}

func (w *imageWriter) WritePNG(path string, img image.Image) error {
	if err := writeFile(path, func(f io.Writer) error { return w.enc.Encode(f, img) }); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteRaw dumps buf verbatim.
func (w *imageWriter) WriteRaw(path string, buf []byte) error {
	err := writeFile(path, func(f io.Writer) error {
		_, err := f.Write(buf)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// bufferPool lets concurrent encodes reuse png's internal buffers.
type bufferPool struct {
	ch chan *png.EncoderBuffer
}

func (p *bufferPool) Get() *png.EncoderBuffer {
	select {
	case b := <-p.ch:
		return b
	default:
		return nil
	}
}

func (p *bufferPool) Put(b *png.EncoderBuffer) {
	select {
	case p.ch <- b:
	default:
	}
}
