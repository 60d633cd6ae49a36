// Package render produces final composited wallpaper frames in the
// XRGB8888 pixel layout that wl_shm buffers use. Every render is a pure
// function of its RenderKey, so identical keys always produce identical
// pixels regardless of render order.
package render

import (
	"errors"
	"fmt"
	"image"
	"os"

	"golang.org/x/image/draw"

	"github.com/dustpile/fresco/internal/spec"
)

// Frame is a fully composited wallpaper at one output's resolution.
// Pix holds Width*Height packed 0x00RRGGBB pixels in row-major order.
type Frame struct {
	Width  int
	Height int
	Pix    []uint32
}

func NewFrame(w, h int) *Frame {
	return &Frame{Width: w, Height: h, Pix: make([]uint32, w*h)}
}

// Clone returns an independent copy, used when a shared cached frame needs
// to become the mutable starting point of a transition.
func (f *Frame) Clone() *Frame {
	c := &Frame{Width: f.Width, Height: f.Height, Pix: make([]uint32, len(f.Pix))}
	copy(c.Pix, f.Pix)
	return c
}

func (f *Frame) Fill(c uint32) {
	for i := range f.Pix {
		f.Pix[i] = c
	}
}

// DecodeError marks failures that are the image file's fault rather than
// the daemon's, so callers can report them per-output without tearing
// anything down.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Render produces the frame for a key. For image keys the file is read and
// decoded on every call; caching is the caller's concern.
func Render(key spec.RenderKey) (*Frame, error) {
	if key.Width <= 0 || key.Height <= 0 {
		return nil, fmt.Errorf("render: invalid size %dx%d", key.Width, key.Height)
	}
	switch key.Kind {
	case spec.KindColour:
		f := NewFrame(key.Width, key.Height)
		f.Fill(key.Colour.XRGB())
		return f, nil
	case spec.KindNone:
		// Unset renders as black so it can still fade and wipe.
		return NewFrame(key.Width, key.Height), nil
	case spec.KindImage:
		return renderImage(key)
	}
	return nil, fmt.Errorf("render: unknown kind %q", key.Kind)
}

func renderImage(key spec.RenderKey) (*Frame, error) {
	file, err := os.Open(key.Path)
	if err != nil {
		return nil, &DecodeError{Path: key.Path, Err: err}
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, &DecodeError{Path: key.Path, Err: err}
	}
	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()
	if srcW <= 0 || srcH <= 0 {
		return nil, &DecodeError{Path: key.Path, Err: errors.New("empty image")}
	}

	// Letterbox bars and any uncovered area show the background colour.
	dst := image.NewRGBA(image.Rect(0, 0, key.Width, key.Height))
	bg := key.Colour
	fillRGBA(dst, bg.R, bg.G, bg.B)

	switch key.Mode {
	case spec.ModeStretch:
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	case spec.ModeFit:
		draw.CatmullRom.Scale(dst, fitRect(srcW, srcH, key.Width, key.Height), img, img.Bounds(), draw.Over, nil)
	case spec.ModeCenter:
		x := (key.Width - srcW) / 2
		y := (key.Height - srcH) / 2
		draw.Copy(dst, image.Pt(x, y), img, img.Bounds(), draw.Over, nil)
	case spec.ModeTile:
		for y := 0; y < key.Height; y += srcH {
			for x := 0; x < key.Width; x += srcW {
				draw.Copy(dst, image.Pt(x, y), img, img.Bounds(), draw.Over, nil)
			}
		}
	case spec.ModeFill, "":
		draw.CatmullRom.Scale(dst, fillRect(srcW, srcH, key.Width, key.Height), img, img.Bounds(), draw.Over, nil)
	default:
		return nil, fmt.Errorf("render: unknown mode %q", key.Mode)
	}

	return rgbaToFrame(dst, key.Width, key.Height), nil
}

// fitRect scales src to the largest rectangle that fits entirely inside the
// target, preserving aspect ratio, centered.
func fitRect(srcW, srcH, dstW, dstH int) image.Rectangle {
	sx := float64(dstW) / float64(srcW)
	sy := float64(dstH) / float64(srcH)
	s := sx
	if sy < s {
		s = sy
	}
	w := int(float64(srcW)*s + 0.5)
	h := int(float64(srcH)*s + 0.5)
	x := (dstW - w) / 2
	y := (dstH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

// fillRect scales src to the smallest rectangle that covers the whole
// target, preserving aspect ratio, centered. The overflow is clipped by the
// scaler against the destination bounds.
func fillRect(srcW, srcH, dstW, dstH int) image.Rectangle {
	sx := float64(dstW) / float64(srcW)
	sy := float64(dstH) / float64(srcH)
	s := sx
	if sy > s {
		s = sy
	}
	w := int(float64(srcW)*s + 0.5)
	h := int(float64(srcH)*s + 0.5)
	x := (dstW - w) / 2
	y := (dstH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

func fillRGBA(dst *image.RGBA, r, g, b uint8) {
	row := dst.Pix[:dst.Bounds().Dx()*4]
	for i := 0; i < len(row); i += 4 {
		row[i] = r
		row[i+1] = g
		row[i+2] = b
		row[i+3] = 0xff
	}
	for y := 1; y < dst.Bounds().Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+len(row)], row)
	}
}

func rgbaToFrame(src *image.RGBA, w, h int) *Frame {
	f := NewFrame(w, h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		out := f.Pix[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			r := uint32(row[x*4])
			g := uint32(row[x*4+1])
			b := uint32(row[x*4+2])
			out[x] = r<<16 | g<<8 | b
		}
	}
	return f
}
