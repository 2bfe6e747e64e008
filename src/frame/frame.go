// Package frame holds raw captured pixels and the single-slot handoff between
// the capture step and the recognition step.
package frame

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"
)

const bytesPerPixel = 4

var (
	ErrReleased        = errors.New("frame already released")
	ErrInvalidGeometry = errors.New("invalid frame geometry")
)

// Frame is an RGBA pixel buffer as delivered by a screen mirror. Stride may be
// wider than Width*4 when the producer pads rows for alignment.
type Frame struct {
	mu       sync.Mutex
	pix      []byte
	width    int
	height   int
	stride   int
	released bool
}

// New wraps pix without copying. The caller hands over ownership.
func New(pix []byte, width, height, stride int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, width, height)
	}
	if stride < width*bytesPerPixel {
		return nil, fmt.Errorf("%w: stride %d shorter than row of %d px", ErrInvalidGeometry, stride, width)
	}
	need := stride*(height-1) + width*bytesPerPixel
	if len(pix) < need {
		return nil, fmt.Errorf("%w: buffer %d bytes, need %d", ErrInvalidGeometry, len(pix), need)
	}
	return &Frame{pix: pix, width: width, height: height, stride: stride}, nil
}

// FromRGBA adopts an RGBA image, keeping its stride as-is.
func FromRGBA(img *image.RGBA) (*Frame, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidGeometry)
	}
	b := img.Bounds()
	off := img.PixOffset(b.Min.X, b.Min.Y)
	return New(img.Pix[off:], b.Dx(), b.Dy(), img.Stride)
}

func (f *Frame) Width() int  { return f.width }
func (f *Frame) Height() int { return f.height }
func (f *Frame) Stride() int { return f.stride }

// Padded reports whether rows carry alignment padding past Width*4 bytes.
func (f *Frame) Padded() bool { return f.stride != f.width*bytesPerPixel }

// Compact returns a frame whose rows are exactly Width*4 bytes. A frame that is
// already compact is returned unchanged.
func (f *Frame) Compact() (*Frame, error) {
	src, err := f.view()
	if err != nil {
		return nil, err
	}
	if !f.Padded() {
		return f, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	draw.Copy(dst, image.Point{}, src, src.Bounds(), draw.Src, nil)
	return FromRGBA(dst)
}

// Image returns a compact RGBA copy suitable for handing to OCR.
func (f *Frame) Image() (*image.RGBA, error) {
	src, err := f.view()
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	draw.Copy(dst, image.Point{}, src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// view exposes the buffer as an RGBA image without copying; the stride padding
// is skipped by image.RGBA's own addressing.
func (f *Frame) view() (*image.RGBA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released {
		return nil, ErrReleased
	}
	return &image.RGBA{
		Pix:    f.pix,
		Stride: f.stride,
		Rect:   image.Rect(0, 0, f.width, f.height),
	}, nil
}

// Release drops the pixel buffer. Safe to call more than once.
func (f *Frame) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pix = nil
	f.released = true
}

func (f *Frame) Released() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}
