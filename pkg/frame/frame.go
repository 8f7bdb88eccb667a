// Package frame provides the in-memory frame buffer that renders are written to.
package frame

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/gogpu/gg"
	"golang.org/x/image/bmp"
)

// ErrLocked is returned when locking a locked frame or presenting one that is still locked
var ErrLocked = errors.New("frame: locked")

// PresentFunc is called with the finished frame on every Present
type PresentFunc func(f *Frame) error

// Frame is a fixed-size RGBA surface backed by a gg.Pixmap. Pixels are
// written between Lock and Unlock and published with Present.
//
// A Frame is not safe for concurrent use.
type Frame struct {
	pix       *gg.Pixmap
	locked    bool
	presented int
	onPresent []PresentFunc
}

// New creates a black, fully transparent frame
func New(width, height int) *Frame {
	return &Frame{pix: gg.NewPixmap(width, height)}
}

// Width returns the frame width in pixels
func (f *Frame) Width() int { return f.pix.Width() }

// Height returns the frame height in pixels
func (f *Frame) Height() int { return f.pix.Height() }

// PutPixel stores c at (x, y). Writes outside the frame are ignored.
func (f *Frame) PutPixel(x, y int, c color.RGBA) {
	i, ok := f.offset(x, y)
	if !ok {
		return
	}
	data := f.pix.Data()
	data[i+0] = c.R
	data[i+1] = c.G
	data[i+2] = c.B
	data[i+3] = c.A
}

// PixelAt returns the pixel at (x, y), or the zero colour outside the frame
func (f *Frame) PixelAt(x, y int) color.RGBA {
	i, ok := f.offset(x, y)
	if !ok {
		return color.RGBA{}
	}
	data := f.pix.Data()
	return color.RGBA{R: data[i+0], G: data[i+1], B: data[i+2], A: data[i+3]}
}

func (f *Frame) offset(x, y int) (int, bool) {
	if x < 0 || x >= f.Width() || y < 0 || y >= f.Height() {
		return 0, false
	}
	return (y*f.Width() + x) * 4, true
}

// Fill sets every pixel to c
func (f *Frame) Fill(c color.RGBA) {
	data := f.pix.Data()
	for i := 0; i < len(data); i += 4 {
		data[i+0] = c.R
		data[i+1] = c.G
		data[i+2] = c.B
		data[i+3] = c.A
	}
}

// Lock marks the frame as being written. Locking twice returns ErrLocked.
func (f *Frame) Lock() error {
	if f.locked {
		return ErrLocked
	}
	f.locked = true
	return nil
}

// Unlock ends a write. Unlocking an unlocked frame does nothing.
func (f *Frame) Unlock() { f.locked = false }

// Locked reports whether the frame is between Lock and Unlock
func (f *Frame) Locked() bool { return f.locked }

// OnPresent registers fn to run on every Present, in registration order
func (f *Frame) OnPresent(fn PresentFunc) {
	f.onPresent = append(f.onPresent, fn)
}

// Present publishes the frame to every registered callback. All callbacks
// run even when one fails; their errors are joined.
func (f *Frame) Present() error {
	if f.locked {
		return fmt.Errorf("cannot present: %w", ErrLocked)
	}
	f.presented++

	var errs []error
	for _, fn := range f.onPresent {
		if err := fn(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Presented returns how many times the frame has been presented
func (f *Frame) Presented() int { return f.presented }

// Image returns a copy of the frame as an image.RGBA
func (f *Frame) Image() *image.RGBA { return f.pix.ToImage() }

// Pixmap returns the backing pixmap
func (f *Frame) Pixmap() *gg.Pixmap { return f.pix }

// WriteBMP encodes the frame as an uncompressed BMP surface dump
func (f *Frame) WriteBMP(w io.Writer) error {
	if err := bmp.Encode(w, f.Image()); err != nil {
		return fmt.Errorf("failed to encode BMP: %w", err)
	}
	return nil
}

// SavePNG writes the frame to a PNG file
func (f *Frame) SavePNG(path string) error {
	if err := f.pix.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
