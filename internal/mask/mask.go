// Package mask turns overlay drawings into binary black/white masks for
// region-limited edits.
//
// White (255,255,255,255) marks the selected region, black (0,0,0,255)
// everything else. No other pixel value is ever produced: a stroke pixel of
// any non-zero alpha, however faint, becomes fully white.
package mask

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"

	"github.com/fpang/noksha/internal/design"
)

// Mask is a binary raster with the dimensions of the surface it was drawn on.
type Mask struct {
	img      *image.RGBA
	selected int
}

// Rasterize builds a mask from the overlay pixels. The output has the
// overlay's dimensions and pixel placement; nothing is scaled.
func Rasterize(overlay image.Image) *Mask {
	if overlay == nil {
		return &Mask{img: image.NewRGBA(image.Rect(0, 0, 0, 0))}
	}
	b := overlay.Bounds()
	rect := image.Rect(0, 0, b.Dx(), b.Dy())

	// Opaque black base.
	out := image.NewRGBA(rect)
	draw.Draw(out, rect, image.Black, image.Point{}, draw.Src)

	// Overlay content on top, same placement.
	src := toRGBA(overlay)
	draw.Draw(out, rect, src, image.Point{}, draw.Over)

	// Binary threshold on the overlay's coverage.
	selected := 0
	for i := 0; i < len(out.Pix); i += 4 {
		v := uint8(0)
		if src.Pix[i+3] != 0 {
			v = 255
			selected++
		}
		out.Pix[i+0] = v
		out.Pix[i+1] = v
		out.Pix[i+2] = v
		out.Pix[i+3] = 255
	}

	log.Debug().
		Int("width", rect.Dx()).
		Int("height", rect.Dy()).
		Int("selected_pixels", selected).
		Msg("Mask rasterized")

	return &Mask{img: out, selected: selected}
}

// toRGBA copies img into a zero-origin *image.RGBA.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Bounds returns the mask dimensions.
func (m *Mask) Bounds() image.Rectangle {
	return m.img.Bounds()
}

// Empty reports whether no pixel is selected.
func (m *Mask) Empty() bool {
	return m.selected == 0
}

// Selected returns the number of white pixels.
func (m *Mask) Selected() int {
	return m.selected
}

// RGBA exposes the mask pixels. Callers must not modify them.
func (m *Mask) RGBA() *image.RGBA {
	return m.img
}

// Scale returns a copy resampled to width x height. Nearest-neighbour
// sampling keeps every pixel strictly black or white.
func (m *Mask) Scale(width, height int) *Mask {
	b := m.img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return m
	}
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(out, out.Bounds(), m.img, b, draw.Src, nil)

	selected := 0
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i] != 0 {
			selected++
		}
	}
	return &Mask{img: out, selected: selected}
}

// PNG encodes the mask losslessly.
func (m *Mask) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m.img); err != nil {
		return nil, fmt.Errorf("failed to encode mask: %w", err)
	}
	return buf.Bytes(), nil
}

// Image encodes the mask as a PNG design.Image.
func (m *Mask) Image() (design.Image, error) {
	data, err := m.PNG()
	if err != nil {
		return design.Image{}, err
	}
	return design.Image{Data: data, MIMEType: "image/png"}, nil
}
